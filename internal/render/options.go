package render

import (
	"reelsmith/internal/config"
	"reelsmith/internal/subtitles"
)

// OptionsFromConfig maps the [render] and [subtitles] sections onto encode
// options. Zero values fall back to DefaultOptions.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	r := cfg.Render
	if r.Width > 0 && r.Height > 0 {
		opts.Width, opts.Height = r.Width, r.Height
	}
	if r.FPS > 0 {
		opts.FPS = r.FPS
	}
	opts.VideoCodec = orDefault(r.VideoCodec, opts.VideoCodec)
	opts.AudioCodec = orDefault(r.AudioCodec, opts.AudioCodec)
	opts.VideoBitrate = orDefault(r.VideoBitrate, opts.VideoBitrate)
	opts.AudioBitrate = orDefault(r.AudioBitrate, opts.AudioBitrate)
	opts.Preset = orDefault(r.Preset, opts.Preset)
	if r.ProgressSteepness > 0 {
		opts.Steepness = r.ProgressSteepness
	}
	if v := cfg.MinVisible(); v > 0 {
		opts.MinVisible = v
	}

	s := cfg.Subtitles
	opts.Look.Font = orDefault(s.Font, opts.Look.Font)
	if s.FontSize > 0 {
		opts.Look.FontSize = s.FontSize
	}
	opts.Look.Color = orDefault(s.Color, opts.Look.Color)
	if s.OutlineWidth > 0 {
		opts.Look.OutlineWidth = s.OutlineWidth
	}
	if s.Position > 0 && s.Position < 1 {
		opts.Look.Position = s.Position
	}
	opts.Look.Palette = subtitles.PaletteFromMap(s.StrokeColors)
	opts.FontsDir = s.FontsDir
	return opts
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
