package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory contract shared by every stage.
type Paths struct {
	RawVideosDir    string `toml:"raw_videos_dir"`
	SegmentsDir     string `toml:"segments_dir"`
	SessionsDir     string `toml:"sessions_dir"`
	StateDir        string `toml:"state_dir"`
	LogDir          string `toml:"log_dir"`
	ProcessedLedger string `toml:"processed_ledger"`
}

// Segments controls how raw footage is cut into library segments.
type Segments struct {
	DurationSeconds  int   `toml:"duration_seconds"`
	TrimEnabled      bool  `toml:"trim_enabled"`
	TrimStartSeconds int   `toml:"trim_start_seconds"`
	TrimEndSeconds   int   `toml:"trim_end_seconds"`
	MinSegmentBytes  int64 `toml:"min_segment_bytes"`
}

// Quality holds the admission thresholds applied to every new segment.
type Quality struct {
	Enabled            bool    `toml:"enabled"`
	FrameSamples       int     `toml:"frame_samples"`
	MinBrightness      float64 `toml:"min_brightness"`
	MaxBrightness      float64 `toml:"max_brightness"`
	MinMotionScore     float64 `toml:"min_motion_score"`
	PixelDiffThreshold int     `toml:"pixel_diff_threshold"`
}

// Library contains inventory policy for the segment pool.
type Library struct {
	MinSegments int `toml:"min_segments"`
}

// Render contains the fixed output profile for composed videos.
type Render struct {
	Width             int     `toml:"width"`
	Height            int     `toml:"height"`
	FPS               int     `toml:"fps"`
	VideoCodec        string  `toml:"video_codec"`
	AudioCodec        string  `toml:"audio_codec"`
	VideoBitrate      string  `toml:"video_bitrate"`
	AudioBitrate      string  `toml:"audio_bitrate"`
	Preset            string  `toml:"preset"`
	MinOutputBytes    int64   `toml:"min_output_bytes"`
	ProgressSteepness float64 `toml:"progress_steepness"`
}

// Subtitles controls caption appearance.
type Subtitles struct {
	Font         string            `toml:"font"`
	FontsDir     string            `toml:"fonts_dir"`
	FontSize     int               `toml:"font_size"`
	Color        string            `toml:"color"`
	OutlineWidth int               `toml:"outline_width"`
	Position     float64           `toml:"position"`
	MinVisibleMS int               `toml:"min_visible_ms"`
	StrokeColors map[string]string `toml:"stroke_colors"`
}

// Transcription configures the WhisperX recognizer.
type Transcription struct {
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
}

// Sessions controls per-run working directories.
type Sessions struct {
	Keep int `toml:"keep"`
}

// Tools names the external executables.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	UVX     string `toml:"uvx"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: raw footage, segment library, sessions, state and logs
//   - Segments: trimming and cut length for the extractor
//   - Quality: brightness and motion admission thresholds
//   - Library: minimum inventory watermark
//   - Render: output geometry, codecs and bitrates
//   - Subtitles: caption font, layout and gender palette
//   - Transcription: WhisperX model settings
//   - Sessions: run directory retention
//   - Tools: ffmpeg/ffprobe/uvx executables
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Segments      Segments      `toml:"segments"`
	Quality       Quality       `toml:"quality"`
	Library       Library       `toml:"library"`
	Render        Render        `toml:"render"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Transcription Transcription `toml:"transcription"`
	Sessions      Sessions      `toml:"sessions"`
	Tools         Tools         `toml:"tools"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates every directory the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range c.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.ProcessedLedger); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}
	return nil
}

// Directories lists the configured working directories in pipeline order.
func (c *Config) Directories() []string {
	return []string{
		c.Paths.RawVideosDir,
		c.Paths.SegmentsDir,
		c.Paths.SessionsDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	}
}

// JobsDatabasePath returns the SQLite job history location.
func (c *Config) JobsDatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "jobs.db")
}

// LockPath returns the file used to serialize library writers across processes.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "reelsmith.lock")
}

// SegmentDuration returns the configured segment length.
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.Segments.DurationSeconds) * time.Second
}

// MinVisible returns the minimum on-screen time for a caption.
func (c *Config) MinVisible() time.Duration {
	return time.Duration(c.Subtitles.MinVisibleMS) * time.Millisecond
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFmpeg) == "" {
		return defaultFFmpegBinary
	}
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return defaultFFprobeBinary
	}
	return c.Tools.FFprobe
}

// UVXBinary returns the uvx launcher used to run WhisperX.
func (c *Config) UVXBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.UVX) == "" {
		return defaultUVXBinary
	}
	return c.Tools.UVX
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
