// Package ffmpeg wraps the ffmpeg invocations reelsmith depends on:
// stream-copy cuts for segmentation, single-frame grayscale decoding for
// quality sampling, and arbitrary argument lists for the final render.
//
// Command execution is injectable through WithCommandRunner so callers can
// assert argument construction without an ffmpeg binary.
package ffmpeg
