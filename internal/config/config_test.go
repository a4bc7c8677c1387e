package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HF_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "reelsmith", "segments"); cfg.Paths.SegmentsDir != want {
		t.Fatalf("unexpected segments dir: got %q want %q", cfg.Paths.SegmentsDir, want)
	}
	wantLedger := filepath.Join(tempHome, ".local", "share", "reelsmith", "processed_raw_videos.txt")
	if cfg.Paths.ProcessedLedger != wantLedger {
		t.Fatalf("unexpected ledger path: got %q want %q", cfg.Paths.ProcessedLedger, wantLedger)
	}
	if cfg.Segments.DurationSeconds != 120 {
		t.Fatalf("expected 120s segments, got %d", cfg.Segments.DurationSeconds)
	}
	if cfg.Segments.MinSegmentBytes != 100*1024 {
		t.Fatalf("expected 100KB segment floor, got %d", cfg.Segments.MinSegmentBytes)
	}
	if cfg.Library.MinSegments != 10 {
		t.Fatalf("expected watermark 10, got %d", cfg.Library.MinSegments)
	}
	if cfg.Render.Width != 1080 || cfg.Render.Height != 1920 || cfg.Render.FPS != 30 {
		t.Fatalf("unexpected render profile: %+v", cfg.Render)
	}
	if cfg.Subtitles.StrokeColors["female"] != "#49B6C2" {
		t.Fatalf("unexpected female stroke color: %q", cfg.Subtitles.StrokeColors["female"])
	}
	if cfg.Sessions.Keep != 5 {
		t.Fatalf("expected five sessions kept, got %d", cfg.Sessions.Keep)
	}
}

func TestLoadCustomConfigOverridesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HF_TOKEN", "from-env")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[paths]
raw_videos_dir = "~/footage"
segments_dir = "` + filepath.Join(dir, "segments") + `"

[segments]
duration_seconds = 60
trim_enabled = false

[subtitles]
color = "#ffee00"

[subtitles.stroke_colors]
male = "#123abc"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.RawVideosDir != filepath.Join(tempHome, "footage") {
		t.Fatalf("unexpected raw dir: %q", cfg.Paths.RawVideosDir)
	}
	if cfg.Segments.DurationSeconds != 60 || cfg.Segments.TrimEnabled {
		t.Fatalf("segment overrides not applied: %+v", cfg.Segments)
	}
	if cfg.Subtitles.Color != "#FFEE00" {
		t.Fatalf("expected upper-cased color, got %q", cfg.Subtitles.Color)
	}
	if cfg.Subtitles.StrokeColors["male"] != "#123ABC" {
		t.Fatalf("expected male override, got %q", cfg.Subtitles.StrokeColors["male"])
	}
	if cfg.Subtitles.StrokeColors["neutral"] != "#000000" {
		t.Fatalf("expected neutral default retained, got %q", cfg.Subtitles.StrokeColors["neutral"])
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Transcription.HFToken != "from-env" {
		t.Fatalf("expected HF token from env, got %q", cfg.Transcription.HFToken)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero segment duration", func(c *config.Config) { c.Segments.DurationSeconds = 0 }, "segments.duration_seconds"},
		{"inverted brightness", func(c *config.Config) { c.Quality.MinBrightness = 240 }, "quality.min_brightness"},
		{"no frame samples", func(c *config.Config) { c.Quality.FrameSamples = 0 }, "quality.frame_samples"},
		{"bad stroke color", func(c *config.Config) { c.Subtitles.StrokeColors["male"] = "orange" }, "subtitles.stroke_colors.male"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"same raw and segments dir", func(c *config.Config) { c.Paths.SegmentsDir = c.Paths.RawVideosDir }, "paths.segments_dir"},
		{"no sessions kept", func(c *config.Config) { c.Sessions.Keep = 0 }, "sessions.keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.ProcessedLedger = "/tmp/ledger.txt"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Render.Preset != "superfast" {
		t.Fatalf("unexpected preset in sample: %q", decoded.Render.Preset)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesLayout(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RawVideosDir = filepath.Join(base, "raw")
	cfg.Paths.SegmentsDir = filepath.Join(base, "segments")
	cfg.Paths.SessionsDir = filepath.Join(base, "sessions")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ProcessedLedger = filepath.Join(base, "ledger", "processed.txt")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range append(cfg.Directories(), filepath.Join(base, "ledger")) {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
}
