package quality

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"reelsmith/internal/logging"
)

// FrameInfo describes the decodable video stream of a segment.
type FrameInfo struct {
	Count  int
	Width  int
	Height int
}

// FrameReader decodes individual frames of a video file.
type FrameReader interface {
	Probe(ctx context.Context, path string) (FrameInfo, error)
	ReadGray(ctx context.Context, path string, info FrameInfo, index int) (*image.Gray, error)
}

// Thresholds are the admission bounds applied to sampled frames.
type Thresholds struct {
	Samples            int
	MinBrightness      float64
	MaxBrightness      float64
	MinMotion          float64
	PixelDiffThreshold uint8
}

// DefaultThresholds returns the production admission bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Samples:            5,
		MinBrightness:      30,
		MaxBrightness:      220,
		MinMotion:          1.0,
		PixelDiffThreshold: 25,
	}
}

// Rejection classifies why a segment was not admitted.
type Rejection string

const (
	RejectNone       Rejection = ""
	RejectTooShort   Rejection = "too_short"
	RejectUnreadable Rejection = "unreadable"
	RejectBrightness Rejection = "brightness"
	RejectMotion     Rejection = "motion"
)

// Report is the outcome of validating one segment.
type Report struct {
	Admitted       bool
	MeanBrightness float64
	MeanMotion     float64
	Samples        int
	Rejection      Rejection
	Reason         string
}

// Validator scores segments by sampled brightness and motion.
type Validator struct {
	frames     FrameReader
	thresholds Thresholds
	enabled    bool
	logger     *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithThresholds overrides the admission bounds.
func WithThresholds(t Thresholds) Option {
	return func(v *Validator) {
		if t.Samples < 1 {
			t.Samples = 1
		}
		v.thresholds = t
	}
}

// WithEnabled toggles validation; a disabled validator admits everything.
func WithEnabled(enabled bool) Option {
	return func(v *Validator) { v.enabled = enabled }
}

// WithLogger sets the logger used for admission decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// NewValidator returns an enabled Validator with default thresholds.
func NewValidator(frames FrameReader, opts ...Option) *Validator {
	v := &Validator{
		frames:     frames,
		thresholds: DefaultThresholds(),
		enabled:    true,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = logging.NewComponentLogger(v.logger, "quality")
	return v
}

// Enabled reports whether validation is active.
func (v *Validator) Enabled() bool {
	return v != nil && v.enabled
}

// Validate samples frames of path and decides admission. Decode failures are
// reported as a rejection, never as an error.
func (v *Validator) Validate(ctx context.Context, path string) Report {
	if !v.Enabled() {
		return Report{Admitted: true}
	}
	logger := logging.WithContext(ctx, v.logger).With(logging.String("segment", path))

	info, err := v.frames.Probe(ctx, path)
	if err != nil {
		return v.reject(logger, Report{}, RejectUnreadable, fmt.Sprintf("probe failed: %v", err))
	}
	if info.Count < v.thresholds.Samples {
		return v.reject(logger, Report{}, RejectTooShort,
			fmt.Sprintf("video too short: %d frames, need %d", info.Count, v.thresholds.Samples))
	}

	var (
		brightness []float64
		motion     []float64
		prev       *image.Gray
	)
	for _, idx := range SampleIndices(info.Count, v.thresholds.Samples) {
		if err := ctx.Err(); err != nil {
			return v.reject(logger, Report{}, RejectUnreadable, fmt.Sprintf("cancelled: %v", err))
		}
		frame, err := v.frames.ReadGray(ctx, path, info, idx)
		if err != nil {
			logger.Debug("frame sample skipped", logging.Int("frame_index", idx), logging.Error(err))
			continue
		}
		brightness = append(brightness, MeanBrightness(frame))
		if prev != nil {
			motion = append(motion, MotionPercent(prev, frame, v.thresholds.PixelDiffThreshold))
		}
		prev = frame
	}

	report := Report{
		MeanBrightness: mean(brightness),
		MeanMotion:     mean(motion),
		Samples:        len(brightness),
	}
	if len(brightness) == 0 {
		return v.reject(logger, report, RejectUnreadable, "could not read any frames")
	}
	if report.MeanBrightness < v.thresholds.MinBrightness || report.MeanBrightness > v.thresholds.MaxBrightness {
		return v.reject(logger, report, RejectBrightness,
			fmt.Sprintf("bad brightness: %.1f outside [%.0f, %.0f]", report.MeanBrightness, v.thresholds.MinBrightness, v.thresholds.MaxBrightness))
	}
	if report.MeanMotion < v.thresholds.MinMotion {
		return v.reject(logger, report, RejectMotion,
			fmt.Sprintf("too static: motion %.2f%% below %.2f%%", report.MeanMotion, v.thresholds.MinMotion))
	}

	report.Admitted = true
	report.Reason = "passed"
	logger.Debug("segment admitted",
		logging.Args(append(logging.DecisionAttrs("segment_admission", "admitted", "passed"),
			logging.Float64("brightness", report.MeanBrightness),
			logging.Float64("motion_percent", report.MeanMotion),
		)...)...)
	return report
}

func (v *Validator) reject(logger *slog.Logger, report Report, kind Rejection, reason string) Report {
	report.Admitted = false
	report.Rejection = kind
	report.Reason = reason
	attrs := logging.DecisionAttrs("segment_admission", "rejected", string(kind))
	attrs = append(attrs,
		logging.String("detail", reason),
		logging.Float64("brightness", report.MeanBrightness),
		logging.Float64("motion_percent", report.MeanMotion),
		logging.String(logging.FieldImpact, "segment will be discarded"),
		logging.String(logging.FieldErrorHint, "adjust quality thresholds if too many segments are rejected"),
	)
	logging.WarnWithContext(logger, "segment rejected", "segment_rejected", attrs...)
	return report
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
