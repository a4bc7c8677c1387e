package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeSubtitles()
	c.normalizeTranscription()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.raw_videos_dir", &c.Paths.RawVideosDir},
		{"paths.segments_dir", &c.Paths.SegmentsDir},
		{"paths.sessions_dir", &c.Paths.SessionsDir},
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}

	ledger := strings.TrimSpace(c.Paths.ProcessedLedger)
	if ledger == "" && c.Paths.StateDir != "" {
		ledger = filepath.Join(c.Paths.StateDir, defaultLedgerName)
	}
	expanded, err := expandPath(ledger)
	if err != nil {
		return fmt.Errorf("paths.processed_ledger: %w", err)
	}
	c.Paths.ProcessedLedger = expanded
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	c.Render.AudioCodec = strings.TrimSpace(c.Render.AudioCodec)
	c.Render.VideoBitrate = strings.TrimSpace(c.Render.VideoBitrate)
	c.Render.AudioBitrate = strings.TrimSpace(c.Render.AudioBitrate)
	c.Render.Preset = strings.ToLower(strings.TrimSpace(c.Render.Preset))
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Font = strings.TrimSpace(c.Subtitles.Font)
	if c.Subtitles.Font == "" {
		c.Subtitles.Font = defaultFont
	}
	if dir := strings.TrimSpace(c.Subtitles.FontsDir); dir != "" {
		if expanded, err := expandPath(dir); err == nil {
			c.Subtitles.FontsDir = expanded
		}
	}
	c.Subtitles.Color = strings.ToUpper(strings.TrimSpace(c.Subtitles.Color))

	colors := defaultStrokeColors()
	for gender, value := range c.Subtitles.StrokeColors {
		key := strings.ToLower(strings.TrimSpace(gender))
		value = strings.ToUpper(strings.TrimSpace(value))
		if key == "" || value == "" {
			continue
		}
		colors[key] = value
	}
	c.Subtitles.StrokeColors = colors
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperXModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.UVX = strings.TrimSpace(c.Tools.UVX)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
