package preflight

import (
	"context"
	"fmt"

	"reelsmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for the given config: working
// directories, the ledger, free space under the sessions directory, the fonts
// directory and the external executables.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	named := []struct {
		name string
		path string
	}{
		{"Raw videos directory", cfg.Paths.RawVideosDir},
		{"Segments directory", cfg.Paths.SegmentsDir},
		{"Sessions directory", cfg.Paths.SessionsDir},
		{"State directory", cfg.Paths.StateDir},
		{"Log directory", cfg.Paths.LogDir},
	}

	results := make([]Result, 0, len(named)+6)
	for _, dir := range named {
		results = append(results, CheckDirectoryAccess(dir.name, dir.path))
	}
	results = append(results, CheckLedgerWritable(cfg.Paths.ProcessedLedger))
	results = append(results, CheckFreeSpace("Sessions free space", cfg.Paths.SessionsDir, MinFreeBytes))
	results = append(results, CheckFontsDir(cfg.Subtitles.FontsDir))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional}
		switch {
		case !status.Available:
			result.Detail = status.Detail
		case status.Version != "":
			result.Detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
		default:
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
