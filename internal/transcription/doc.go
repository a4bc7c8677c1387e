// Package transcription turns narration audio into a flat, chronologically
// ordered list of timed words.
//
// Recognition is delegated to a Recognizer (WhisperX in production). The
// Aligner runs it on a dedicated goroutine so callers can prepare other
// inputs meanwhile; Task.Wait is the single join point. A failing or empty
// recognition yields no words rather than an error, so a render proceeds
// without subtitles.
package transcription
