// Package subtitles builds the word-by-word "karaoke" subtitle timeline.
//
// Compose maps timed words to Events (upper-cased text, a floored minimum
// duration, and a style variant chosen from the narrator gender). RenderASS
// serializes those events to an Advanced SubStation Alpha script that ffmpeg
// burns into the output.
package subtitles
