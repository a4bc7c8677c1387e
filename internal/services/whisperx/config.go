package whisperx

import "strings"

// Config holds the settings used to launch WhisperX for narration audio.
type Config struct {
	Model    string // e.g. "base", "small", "large-v3"
	Language string // BCP 47 tag; empty lets WhisperX detect it

	CUDAEnabled bool
	VADMethod   string // "silero" or "pyannote"
	HFToken     string // only passed for pyannote

	UVXBinary    string
	FFmpegBinary string
}

const (
	DefaultModel      = "base"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Package indexes handed to uvx. The CUDA wheel index must come first so
// torch resolves to a GPU build.
const (
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"
)

// Decoding knobs for short narration clips.
const (
	batchSize         = "4"
	chunkSize         = "15"
	beamSize          = "5"
	segmentResolution = "sentence"
	outputFormat      = "json"
	cpuComputeType    = "float32"
)

const (
	defaultUVX    = "uvx"
	defaultFFmpeg = "ffmpeg"
)

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.VADMethod) == "" {
		c.VADMethod = VADMethodSilero
	}
	if strings.TrimSpace(c.UVXBinary) == "" {
		c.UVXBinary = defaultUVX
	}
	if strings.TrimSpace(c.FFmpegBinary) == "" {
		c.FFmpegBinary = defaultFFmpeg
	}
	return c
}

func (c Config) device() []string {
	if c.CUDAEnabled {
		return []string{"--device", "cuda"}
	}
	return []string{"--device", "cpu", "--compute_type", cpuComputeType}
}
