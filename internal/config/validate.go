package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSegments(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Library.MinSegments < 0 {
		return errors.New("library.min_segments must be zero or positive")
	}
	if c.Sessions.Keep < 1 {
		return errors.New("sessions.keep must be at least 1")
	}
	return nil
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.raw_videos_dir":   c.Paths.RawVideosDir,
		"paths.segments_dir":     c.Paths.SegmentsDir,
		"paths.sessions_dir":     c.Paths.SessionsDir,
		"paths.state_dir":        c.Paths.StateDir,
		"paths.processed_ledger": c.Paths.ProcessedLedger,
	}
	keys := make([]string, 0, len(required))
	for key := range required {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if required[key] == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Paths.RawVideosDir == c.Paths.SegmentsDir {
		return errors.New("paths.segments_dir must differ from paths.raw_videos_dir")
	}
	return nil
}

func (c *Config) validateSegments() error {
	if c.Segments.DurationSeconds <= 0 {
		return errors.New("segments.duration_seconds must be positive")
	}
	if c.Segments.TrimStartSeconds < 0 || c.Segments.TrimEndSeconds < 0 {
		return errors.New("segments.trim_start_seconds and segments.trim_end_seconds must not be negative")
	}
	if c.Segments.MinSegmentBytes <= 0 {
		return errors.New("segments.min_segment_bytes must be positive")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.FrameSamples < 1 {
		return errors.New("quality.frame_samples must be at least 1")
	}
	if c.Quality.MinBrightness < 0 || c.Quality.MaxBrightness > 255 {
		return errors.New("quality brightness bounds must be within 0-255")
	}
	if c.Quality.MinBrightness > c.Quality.MaxBrightness {
		return errors.New("quality.min_brightness must not exceed quality.max_brightness")
	}
	if c.Quality.MinMotionScore < 0 || c.Quality.MinMotionScore > 100 {
		return errors.New("quality.min_motion_score must be a percentage between 0 and 100")
	}
	if c.Quality.PixelDiffThreshold < 0 || c.Quality.PixelDiffThreshold > 255 {
		return errors.New("quality.pixel_diff_threshold must be within 0-255")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New("render.width and render.height must be positive")
	}
	if c.Render.FPS <= 0 {
		return errors.New("render.fps must be positive")
	}
	if c.Render.VideoCodec == "" || c.Render.AudioCodec == "" {
		return errors.New("render.video_codec and render.audio_codec must be set")
	}
	if c.Render.MinOutputBytes <= 0 {
		return errors.New("render.min_output_bytes must be positive")
	}
	if c.Render.ProgressSteepness <= 0 {
		return errors.New("render.progress_steepness must be positive")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.FontSize <= 0 {
		return errors.New("subtitles.font_size must be positive")
	}
	if c.Subtitles.OutlineWidth < 0 {
		return errors.New("subtitles.outline_width must not be negative")
	}
	if c.Subtitles.Position < 0 || c.Subtitles.Position > 1 {
		return errors.New("subtitles.position must be a fraction of the frame height between 0 and 1")
	}
	if c.Subtitles.MinVisibleMS <= 0 {
		return errors.New("subtitles.min_visible_ms must be positive")
	}
	if !hexColorPattern.MatchString(c.Subtitles.Color) {
		return fmt.Errorf("subtitles.color must be a #RRGGBB value, got %q", c.Subtitles.Color)
	}
	for gender, value := range c.Subtitles.StrokeColors {
		if !hexColorPattern.MatchString(value) {
			return fmt.Errorf("subtitles.stroke_colors.%s must be a #RRGGBB value, got %q", gender, value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
