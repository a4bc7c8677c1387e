package quality

import (
	"context"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"
)

type fakeFrames struct {
	info     FrameInfo
	probeErr error
	frame    func(index int) (*image.Gray, error)
	read     []int
}

func (f *fakeFrames) Probe(context.Context, string) (FrameInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeFrames) ReadGray(_ context.Context, _ string, _ FrameInfo, index int) (*image.Gray, error) {
	f.read = append(f.read, index)
	return f.frame(index)
}

func grayOf(v uint8) color.Gray { return color.Gray{Y: v} }

func uniformFrame(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

// checkerFrame alternates lo/hi pixels; phase flips the pattern.
func checkerFrame(w, h int, lo, hi uint8, phase int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y+phase)%2 == 0 {
				img.SetGray(x, y, grayOf(lo))
			} else {
				img.SetGray(x, y, grayOf(hi))
			}
		}
	}
	return img
}

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{100, 5, []int{0, 24, 49, 74, 99}},
		{5, 5, []int{0, 1, 2, 3, 4}},
		{3600, 5, []int{0, 899, 1799, 2699, 3599}},
		{10, 1, []int{0}},
		{0, 5, nil},
	}
	for _, tt := range tests {
		if got := SampleIndices(tt.total, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("SampleIndices(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
		}
	}
}

func TestMotionPercentCountsPixelsAboveThreshold(t *testing.T) {
	a := uniformFrame(10, 10, 100)
	b := uniformFrame(10, 10, 100)
	for x := 0; x < 10; x++ {
		b.SetGray(x, 0, grayOf(126)) // diff 26 > 25
		b.SetGray(x, 1, grayOf(125)) // diff 25, not counted
	}
	if got := MotionPercent(a, b, 25); got != 10 {
		t.Fatalf("MotionPercent = %v, want 10", got)
	}
	if got := MotionPercent(b, a, 25); got != 10 {
		t.Fatalf("MotionPercent should be symmetric, got %v", got)
	}
}

func TestValidateUniformFrameAlwaysRejected(t *testing.T) {
	for _, value := range []uint8{0, 128, 255} {
		frames := &fakeFrames{
			info:  FrameInfo{Count: 300, Width: 8, Height: 8},
			frame: func(int) (*image.Gray, error) { return uniformFrame(8, 8, value), nil },
		}
		report := NewValidator(frames).Validate(context.Background(), "seg.mp4")
		if report.Admitted {
			t.Fatalf("uniform frame %d should be rejected", value)
		}
		if report.MeanMotion != 0 {
			t.Fatalf("expected zero motion, got %v", report.MeanMotion)
		}
	}
}

func TestValidateRejectsDarkFootageDespiteMotion(t *testing.T) {
	frames := &fakeFrames{
		info:  FrameInfo{Count: 300, Width: 8, Height: 8},
		frame: func(i int) (*image.Gray, error) { return checkerFrame(8, 8, 0, 40, i), nil },
	}
	report := NewValidator(frames).Validate(context.Background(), "seg.mp4")
	if report.Admitted || report.Rejection != RejectBrightness {
		t.Fatalf("expected brightness rejection, got %+v", report)
	}
	if report.MeanBrightness != 20 {
		t.Fatalf("expected brightness 20, got %v", report.MeanBrightness)
	}
}

func TestValidateAdmitsBrightMovingFootage(t *testing.T) {
	frames := &fakeFrames{
		info:  FrameInfo{Count: 3600, Width: 8, Height: 8},
		frame: func(i int) (*image.Gray, error) { return checkerFrame(8, 8, 60, 200, i), nil },
	}
	report := NewValidator(frames).Validate(context.Background(), "seg.mp4")
	if !report.Admitted {
		t.Fatalf("expected admission, got %+v", report)
	}
	if report.MeanBrightness != 130 {
		t.Fatalf("expected brightness 130, got %v", report.MeanBrightness)
	}
	if report.Samples != 5 {
		t.Fatalf("expected five samples, got %d", report.Samples)
	}
	if !reflect.DeepEqual(frames.read, []int{0, 899, 1799, 2699, 3599}) {
		t.Fatalf("unexpected sampled indices %v", frames.read)
	}
}

func TestValidateRejectsTooFewFrames(t *testing.T) {
	frames := &fakeFrames{info: FrameInfo{Count: 4, Width: 8, Height: 8}}
	report := NewValidator(frames).Validate(context.Background(), "seg.mp4")
	if report.Admitted || report.Rejection != RejectTooShort {
		t.Fatalf("expected too-short rejection, got %+v", report)
	}
	if len(frames.read) != 0 {
		t.Fatalf("no frames should be decoded, read %v", frames.read)
	}
}

func TestValidateUnreadable(t *testing.T) {
	probeFail := &fakeFrames{probeErr: errors.New("moov atom not found")}
	if report := NewValidator(probeFail).Validate(context.Background(), "seg.mp4"); report.Rejection != RejectUnreadable {
		t.Fatalf("expected unreadable rejection on probe failure, got %+v", report)
	}

	decodeFail := &fakeFrames{
		info:  FrameInfo{Count: 100, Width: 8, Height: 8},
		frame: func(int) (*image.Gray, error) { return nil, errors.New("decode") },
	}
	if report := NewValidator(decodeFail).Validate(context.Background(), "seg.mp4"); report.Rejection != RejectUnreadable {
		t.Fatalf("expected unreadable rejection on decode failure, got %+v", report)
	}
}

func TestValidateSkipsUnreadableSamples(t *testing.T) {
	frames := &fakeFrames{
		info: FrameInfo{Count: 100, Width: 8, Height: 8},
		frame: func(i int) (*image.Gray, error) {
			if i == 49 {
				return nil, errors.New("corrupt packet")
			}
			return checkerFrame(8, 8, 60, 200, i), nil
		},
	}
	report := NewValidator(frames).Validate(context.Background(), "seg.mp4")
	if !report.Admitted || report.Samples != 4 {
		t.Fatalf("expected admission from four samples, got %+v", report)
	}
}

func TestDisabledValidatorAdmitsEverything(t *testing.T) {
	frames := &fakeFrames{probeErr: errors.New("should not be called")}
	v := NewValidator(frames, WithEnabled(false))
	if v.Enabled() {
		t.Fatal("expected validator to be disabled")
	}
	if report := v.Validate(context.Background(), "seg.mp4"); !report.Admitted {
		t.Fatalf("disabled validator should admit, got %+v", report)
	}
}

func TestWithThresholdsTightensMotion(t *testing.T) {
	frames := &fakeFrames{
		info:  FrameInfo{Count: 100, Width: 8, Height: 8},
		frame: func(i int) (*image.Gray, error) { return checkerFrame(8, 8, 60, 200, i), nil },
	}
	th := DefaultThresholds()
	th.MinMotion = 100.5
	report := NewValidator(frames, WithThresholds(th)).Validate(context.Background(), "seg.mp4")
	if report.Admitted || report.Rejection != RejectMotion {
		t.Fatalf("expected motion rejection, got %+v", report)
	}
}
