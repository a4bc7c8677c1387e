// Package services defines shared utilities consumed by the pipeline stages and
// the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so callers can tell an
//     exhausted library from a corrupt asset or a failing ffmpeg invocation
//     with errors.Is.
//
// Adapters for external recognizers live in subpackages (see whisperx).
package services
