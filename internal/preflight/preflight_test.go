package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLedgerWritable(t *testing.T) {
	dir := t.TempDir()

	missing := CheckLedgerWritable(filepath.Join(dir, "processed.txt"))
	if !missing.Passed || !strings.Contains(missing.Detail, "will be created") {
		t.Fatalf("expected a not-yet-created ledger to pass, got %#v", missing)
	}

	existing := filepath.Join(dir, "existing.txt")
	if err := os.WriteFile(existing, []byte("a.mp4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckLedgerWritable(existing); !r.Passed {
		t.Fatalf("expected existing ledger to pass, got %#v", r)
	}

	if r := CheckLedgerWritable(dir); r.Passed {
		t.Fatal("expected a directory ledger path to fail")
	}
	if r := CheckLedgerWritable(""); r.Passed {
		t.Fatal("expected an empty ledger path to fail")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 1); !r.Passed {
		t.Fatalf("expected at least one free byte, got %#v", r)
	}
	if r := CheckFreeSpace("space", dir, 1<<62); r.Passed {
		t.Fatalf("expected an absurd requirement to fail, got %#v", r)
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatal("expected statfs of a missing path to fail")
	}
}

func TestCheckFontsDir(t *testing.T) {
	if r := CheckFontsDir(""); !r.Passed {
		t.Fatal("an unset fonts dir falls back to system fonts")
	}
	if r := CheckFontsDir(filepath.Join(t.TempDir(), "fonts")); r.Passed {
		t.Fatal("expected a missing fonts dir to fail")
	}
}

func TestCheckSystemDepsStubbed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	statuses := CheckSystemDeps(context.Background(), cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected ffmpeg, ffprobe and uvx, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Available {
			t.Fatalf("expected stub %s to resolve, got %#v", s.Name, s)
		}
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	results := RunAll(context.Background(), cfg)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for _, r := range results {
		if r.Name == "Sessions free space" {
			continue
		}
		if !r.Passed {
			t.Fatalf("check %q failed: %s", r.Name, r.Detail)
		}
	}

	cfg.Tools.FFmpeg = "clearly-not-present-ffmpeg"
	failed := Failed(RunAll(context.Background(), cfg))
	found := false
	for _, r := range failed {
		if r.Name == "FFmpeg" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected FFmpeg failure, got %#v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
