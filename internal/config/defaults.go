package config

const (
	defaultConfigPath         = "~/.config/reelsmith/config.toml"
	defaultRawVideosDir       = "~/reelsmith/raw_videos"
	defaultSegmentsDir        = "~/reelsmith/segments"
	defaultSessionsDir        = "~/reelsmith/sessions"
	defaultStateDir           = "~/.local/share/reelsmith"
	defaultLogDir             = "~/.local/share/reelsmith/logs"
	defaultLedgerName         = "processed_raw_videos.txt"
	defaultSegmentSeconds     = 120
	defaultTrimSeconds        = 30
	defaultMinSegmentBytes    = 100 * 1024
	defaultFrameSamples       = 5
	defaultMinBrightness      = 30
	defaultMaxBrightness      = 220
	defaultMinMotionScore     = 1.0
	defaultPixelDiffThreshold = 25
	defaultMinSegments        = 10
	defaultWidth              = 1080
	defaultHeight             = 1920
	defaultFPS                = 30
	defaultVideoCodec         = "libx264"
	defaultAudioCodec         = "aac"
	defaultVideoBitrate       = "8000k"
	defaultAudioBitrate       = "192k"
	defaultPreset             = "superfast"
	defaultMinOutputBytes     = 1024
	defaultProgressSteepness  = 10
	defaultFont               = "Anton"
	defaultFontSize           = 138
	defaultTextColor          = "#FFFFFF"
	defaultOutlineWidth       = 7
	defaultTextPosition       = 0.4
	defaultMinVisibleMS       = 100
	defaultWhisperXModel      = "base"
	defaultVADMethod          = "silero"
	defaultSessionsKeep       = 5
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultUVXBinary          = "uvx"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Stroke colors keyed by speaker gender. Unknown genders fall back to neutral.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderNeutral = "neutral"
)

func defaultStrokeColors() map[string]string {
	return map[string]string{
		GenderMale:    "#FF4500",
		GenderFemale:  "#49B6C2",
		GenderNeutral: "#000000",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawVideosDir: defaultRawVideosDir,
			SegmentsDir:  defaultSegmentsDir,
			SessionsDir:  defaultSessionsDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Segments: Segments{
			DurationSeconds:  defaultSegmentSeconds,
			TrimEnabled:      true,
			TrimStartSeconds: defaultTrimSeconds,
			TrimEndSeconds:   defaultTrimSeconds,
			MinSegmentBytes:  defaultMinSegmentBytes,
		},
		Quality: Quality{
			Enabled:            true,
			FrameSamples:       defaultFrameSamples,
			MinBrightness:      defaultMinBrightness,
			MaxBrightness:      defaultMaxBrightness,
			MinMotionScore:     defaultMinMotionScore,
			PixelDiffThreshold: defaultPixelDiffThreshold,
		},
		Library: Library{
			MinSegments: defaultMinSegments,
		},
		Render: Render{
			Width:             defaultWidth,
			Height:            defaultHeight,
			FPS:               defaultFPS,
			VideoCodec:        defaultVideoCodec,
			AudioCodec:        defaultAudioCodec,
			VideoBitrate:      defaultVideoBitrate,
			AudioBitrate:      defaultAudioBitrate,
			Preset:            defaultPreset,
			MinOutputBytes:    defaultMinOutputBytes,
			ProgressSteepness: defaultProgressSteepness,
		},
		Subtitles: Subtitles{
			Font:         defaultFont,
			FontSize:     defaultFontSize,
			Color:        defaultTextColor,
			OutlineWidth: defaultOutlineWidth,
			Position:     defaultTextPosition,
			MinVisibleMS: defaultMinVisibleMS,
			StrokeColors: defaultStrokeColors(),
		},
		Transcription: Transcription{
			Model:     defaultWhisperXModel,
			VADMethod: defaultVADMethod,
		},
		Sessions: Sessions{
			Keep: defaultSessionsKeep,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
			UVX:     defaultUVXBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
