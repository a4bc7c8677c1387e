package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if !AnyMissing(results) {
		t.Fatal("expected AnyMissing to report the missing binary")
	}
}

func TestCheckBinariesOptionalMissing(t *testing.T) {
	results := CheckBinaries(context.Background(), []Requirement{
		{Name: "Extra", Command: "clearly-not-present-binary", Optional: true},
	})
	if results[0].Available {
		t.Fatal("expected optional binary to be unavailable")
	}
	if AnyMissing(results) {
		t.Fatal("optional dependencies must not count as missing")
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries(context.Background(), []Requirement{{Name: "Blank", Command: "  "}})
	if results[0].Available || results[0].Detail != "command not configured" {
		t.Fatalf("unexpected status for blank command: %#v", results[0])
	}
}

func TestCheckBinariesVersion(t *testing.T) {
	binDir := t.TempDir()
	tool := writeStub(t, binDir, "tool", "echo\necho 'tool version 6.1.1'\necho 'built with gcc'")

	results := CheckBinaries(context.Background(), []Requirement{
		{Name: "Tool", Command: tool, VersionArgs: []string{"-version"}},
	})
	if !results[0].Available {
		t.Fatalf("expected tool to be available: %#v", results[0])
	}
	if results[0].Version != "tool version 6.1.1" {
		t.Fatalf("unexpected version %q", results[0].Version)
	}
}

func TestCheckBinariesVersionFailure(t *testing.T) {
	binDir := t.TempDir()
	tool := writeStub(t, binDir, "broken", "exit 3")

	results := CheckBinaries(context.Background(), []Requirement{
		{Name: "Broken", Command: tool, VersionArgs: []string{"--version"}},
	})
	if !results[0].Available {
		t.Fatal("a binary that resolves stays available even when the version probe fails")
	}
	if results[0].Version != "" || results[0].Detail == "" {
		t.Fatalf("expected a probe failure detail, got %#v", results[0])
	}
}
