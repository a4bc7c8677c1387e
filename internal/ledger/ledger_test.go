package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestRecordAppendsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "processed_raw_videos.txt")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if l.Contains("beach_run") {
		t.Fatal("new ledger should be empty")
	}

	for i := 0; i < 3; i++ {
		if err := l.Record("beach_run"); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}
	if err := l.Record("city_walk"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if got := string(data); got != "beach_run\ncity_walk\n" {
		t.Fatalf("unexpected ledger content %q", got)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 ids, got %d", l.Len())
	}
}

func TestOpenReadsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	if err := os.WriteFile(path, []byte("a\n\n  b  \nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got := strings.Join(l.IDs(), ","); got != "a,b,c" {
		t.Fatalf("unexpected ids %q", got)
	}
}

func TestRecordHonoursOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Record("shared"); err != nil {
		t.Fatal(err)
	}
	if err := second.Record("shared"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "shared") != 1 {
		t.Fatalf("expected a single entry, got %q", data)
	}
}

func TestRecordConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.txt")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Record("same"); err != nil {
				t.Errorf("Record returned error: %v", err)
			}
		}()
	}
	wg.Wait()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "same\n" {
		t.Fatalf("unexpected ledger content %q", data)
	}
}

func TestRecordRejectsInvalidIDs(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "ledger.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"", "  ", "two\nlines"} {
		if err := l.Record(id); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
