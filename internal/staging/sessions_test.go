package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/logging"
)

func TestNewSessionAndStoryDir(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)
	session, err := NewSession(root, now)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if session.Name != "20260309_140507" {
		t.Fatalf("unexpected session name %q", session.Name)
	}
	story, err := session.StoryDir("abc/../x y")
	if err != nil {
		t.Fatalf("StoryDir: %v", err)
	}
	if filepath.Dir(story) != session.Path || strings.ContainsAny(filepath.Base(story), "/ .") {
		t.Fatalf("unexpected story dir %q", story)
	}
	if info, err := os.Stat(story); err != nil || !info.IsDir() {
		t.Fatalf("story dir not created: %v", err)
	}
	if _, err := NewSession("  ", now); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestCleanOldKeepsNewest(t *testing.T) {
	root := t.TempDir()
	names := []string{
		"20260101_000000", "20260102_000000", "20260103_000000",
		"20260104_000000", "20260105_000000", "20260106_000000", "20260107_000000",
	}
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(root, name, "story_1"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "keepme"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "20260100_000000"), []byte("file"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := CleanOld(root, 5, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if len(result.Kept) != 5 || len(result.Removed) != 2 {
		t.Fatalf("kept=%v removed=%v", result.Kept, result.Removed)
	}
	for _, gone := range []string{"20260101_000000", "20260102_000000"} {
		if _, err := os.Stat(filepath.Join(root, gone)); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", gone)
		}
	}
	for _, kept := range []string{"20260107_000000", "keepme", "20260100_000000"} {
		if _, err := os.Stat(filepath.Join(root, kept)); err != nil {
			t.Fatalf("expected %s kept: %v", kept, err)
		}
	}
}

func TestListSessionsMissingRoot(t *testing.T) {
	sessions, err := ListSessions(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(sessions) != 0 {
		t.Fatalf("expected empty result, got %v %v", sessions, err)
	}
	if result := CleanOld("", 5, nil); len(result.Errors) != 0 || len(result.Removed) != 0 {
		t.Fatalf("expected no-op for empty root, got %+v", result)
	}
}

func TestDescribeReportsSize(t *testing.T) {
	root := t.TempDir()
	session, err := NewSession(root, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(session.Path, "final.mp4"), make([]byte, 300), 0o644); err != nil {
		t.Fatal(err)
	}
	infos, err := Describe(root)
	if err != nil || len(infos) != 1 || infos[0].Size != 300 {
		t.Fatalf("unexpected describe result %+v err=%v", infos, err)
	}
}
