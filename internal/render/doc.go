// Package render composes a finished short: background segment, burned-in
// word subtitles, the eased progress bar, and the narration track.
//
// Assembler probes both inputs, reconciles their durations (random
// sub-interval or playback-rate stretch), centre-crops to 9:16, scales to the
// output resolution, and drives a single ffmpeg encode. Intermediate files
// live in a per-render workspace that is removed on every exit path, and a
// failed encode never leaves a partial output behind.
package render
