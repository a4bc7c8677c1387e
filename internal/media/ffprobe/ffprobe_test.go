package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	stream, ok := result.VideoStream()
	if !ok || stream.Width != 1920 {
		t.Fatalf("unexpected video stream %+v ok=%v", stream, ok)
	}
	duration, err := result.Duration()
	if err != nil || duration != 123450*time.Millisecond {
		t.Fatalf("unexpected duration %v err=%v", duration, err)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if _, err := result.Duration(); err == nil {
		t.Fatal("expected error when no duration is reported")
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio", Duration: "12.5"}, {CodecType: "video", Duration: "12.0"}}}
	duration, err := result.Duration()
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if duration != 12500*time.Millisecond {
		t.Fatalf("expected longest stream duration, got %v", duration)
	}
}

func TestStreamFrameCount(t *testing.T) {
	tests := []struct {
		name      string
		stream    Stream
		container float64
		want      int
	}{
		{"nb_frames reported", Stream{NBFrames: "3600", AvgFrameRate: "30/1"}, 0, 3600},
		{"estimated from stream duration", Stream{Duration: "10", AvgFrameRate: "30000/1001"}, 0, 299},
		{"estimated from container", Stream{RFrameRate: "25/1", AvgFrameRate: "0/0"}, 4, 100},
		{"unknown rate", Stream{Duration: "10"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stream.FrameCount(tt.container); got != tt.want {
				t.Fatalf("FrameCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProberInspectUsesRunner(t *testing.T) {
	var gotArgs []string
	prober := NewProber("probe-bin").WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "probe-bin" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return []byte(`{"streams":[{"codec_type":"video","width":640,"height":360,"nb_frames":"90"}],"format":{"duration":"3.0"}}`), nil
	})

	duration, err := prober.Duration(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if duration != 3*time.Second {
		t.Fatalf("unexpected duration %v", duration)
	}
	if got := strings.Join(gotArgs, " "); !strings.HasSuffix(got, "-of json -- /tmp/clip.mp4") {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestProberInspectWrapsErrors(t *testing.T) {
	base := errors.New("exit status 1")
	prober := NewProber("").WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, base
	})
	if _, err := prober.Inspect(context.Background(), "/tmp/missing.mp4"); !errors.Is(err, base) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	if _, err := prober.Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
