package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"time"
)

// DefaultSteepness is the logistic slope used when none is configured.
const DefaultSteepness = 10.0

var (
	gradientStart = color.RGBA{R: 255, G: 69, B: 0, A: 255}
	gradientEnd   = color.RGBA{R: 73, G: 182, B: 194, A: 255}
)

// Ease returns the logistic progress in (0, 1) for t within total, centred
// on the midpoint.
func Ease(t, total time.Duration, steepness float64) float64 {
	if total <= 0 {
		return 1
	}
	x := steepness * (t.Seconds()/total.Seconds() - 0.5)
	return 1 / (1 + math.Exp(-x))
}

// BarHeight is 1% of the frame height with a 10px floor.
func BarHeight(frameHeight int) int {
	return max(10, frameHeight/100)
}

// Bar is a progress bar for one render.
type Bar struct {
	Width     int
	Height    int
	Duration  time.Duration
	Steepness float64

	strip []color.RGBA
}

// New precomputes the gradient for a frame of width x height.
func New(duration time.Duration, width, height int, steepness float64) (*Bar, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("overlay: invalid frame size %dx%d", width, height)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("overlay: duration must be positive, got %s", duration)
	}
	if steepness <= 0 {
		steepness = DefaultSteepness
	}
	return &Bar{
		Width:     width,
		Height:    height,
		Duration:  duration,
		Steepness: steepness,
		strip:     gradient(width),
	}, nil
}

func gradient(width int) []color.RGBA {
	colors := make([]color.RGBA, width)
	for x := range colors {
		frac := 0.0
		if width > 1 {
			frac = float64(x) / float64(width-1)
		}
		colors[x] = color.RGBA{
			R: lerp(gradientStart.R, gradientEnd.R, frac),
			G: lerp(gradientStart.G, gradientEnd.G, frac),
			B: lerp(gradientStart.B, gradientEnd.B, frac),
			A: 255,
		}
	}
	return colors
}

func lerp(a, b uint8, frac float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*frac)
}

// StripHeight is the bar thickness in pixels.
func (b *Bar) StripHeight() int {
	return BarHeight(b.Height)
}

// ColorAt returns the gradient colour at column x.
func (b *Bar) ColorAt(x int) color.RGBA {
	if x < 0 || x >= len(b.strip) {
		return color.RGBA{}
	}
	return b.strip[x]
}

// FilledWidth is the number of opaque columns at time t.
func (b *Bar) FilledWidth(t time.Duration) int {
	return int(Ease(t, b.Duration, b.Steepness) * float64(b.Width))
}

// Frame renders the full-frame layer at time t. Pixels outside the filled
// strip are fully transparent.
func (b *Bar) Frame(t time.Duration) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	filled := b.FilledWidth(t)
	top := b.Height - b.StripHeight()
	for y := top; y < b.Height; y++ {
		for x := 0; x < filled; x++ {
			img.SetRGBA(x, y, b.strip[x])
		}
	}
	return img
}

// Strip renders the fully filled bar without the transparent frame area.
func (b *Bar) Strip() *image.RGBA {
	h := b.StripHeight()
	img := image.NewRGBA(image.Rect(0, 0, b.Width, h))
	for y := 0; y < h; y++ {
		for x := 0; x < b.Width; x++ {
			img.SetRGBA(x, y, b.strip[x])
		}
	}
	return img
}

// WritePNG stores the gradient strip at path.
func (b *Bar) WritePNG(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("overlay: create strip: %w", err)
	}
	if err := png.Encode(file, b.Strip()); err != nil {
		_ = file.Close()
		return fmt.Errorf("overlay: encode strip: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("overlay: close strip: %w", err)
	}
	return nil
}

// AlphaExpr is the ffmpeg geq alpha expression that masks the strip with
// the same easing Frame uses.
func (b *Bar) AlphaExpr() string {
	return fmt.Sprintf("if(lt(X,W/(1+exp(-%s*(T/%s-0.5)))),255,0)",
		formatFloat(b.Steepness), formatFloat(b.Duration.Seconds()))
}

// Filter turns the looped strip input into the animated bar layer.
func (b *Bar) Filter() string {
	return fmt.Sprintf("format=rgba,geq=r='r(X,Y)':g='g(X,Y)':b='b(X,Y)':a='%s'", b.AlphaExpr())
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
