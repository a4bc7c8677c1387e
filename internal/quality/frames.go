package quality

import (
	"context"
	"errors"
	"image"

	"reelsmith/internal/media/ffprobe"
)

type prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

type grayDecoder interface {
	GrayFrame(ctx context.Context, src string, index, width, height int) (*image.Gray, error)
}

// FFmpegFrames reads frames through ffprobe for stream geometry and ffmpeg for decoding.
type FFmpegFrames struct {
	probe  prober
	decode grayDecoder
}

// NewFFmpegFrames wires a FrameReader from an ffprobe prober and an ffmpeg runner.
func NewFFmpegFrames(probe prober, decode grayDecoder) *FFmpegFrames {
	return &FFmpegFrames{probe: probe, decode: decode}
}

// Probe reports the frame count and native dimensions of the first video stream.
func (f *FFmpegFrames) Probe(ctx context.Context, path string) (FrameInfo, error) {
	result, err := f.probe.Inspect(ctx, path)
	if err != nil {
		return FrameInfo{}, err
	}
	stream, ok := result.VideoStream()
	if !ok {
		return FrameInfo{}, errors.New("no video stream")
	}
	return FrameInfo{
		Count:  stream.FrameCount(result.DurationSeconds()),
		Width:  stream.Width,
		Height: stream.Height,
	}, nil
}

// ReadGray decodes one frame at the stream's native size.
func (f *FFmpegFrames) ReadGray(ctx context.Context, path string, info FrameInfo, index int) (*image.Gray, error) {
	return f.decode.GrayFrame(ctx, path, index, info.Width, info.Height)
}
