// Package whisperx runs WhisperX through uvx to obtain word-level timestamps
// for narration audio.
//
// Input audio is first normalized to mono 16kHz WAV with ffmpeg, WhisperX is
// invoked with JSON output into a private work directory, and the resulting
// segments (each with aligned words) are decoded and returned. Configuration
// options (model, language, CUDA, VAD method) are passed via Config.
package whisperx
