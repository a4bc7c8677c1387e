// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Prober: runs ffprobe with an injectable command runner
//
// Helper methods on Result and Stream provide duration parsing, frame rate
// and frame count estimation used by segment extraction, quality sampling
// and render planning.
package ffprobe
