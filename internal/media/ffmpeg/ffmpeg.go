package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes name with args and returns stdout. Implementations
// should include stderr in the returned error when the command fails.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner issues ffmpeg invocations against a single binary.
type Runner struct {
	binary string
	run    CommandRunner
}

// New returns a Runner for the given ffmpeg binary.
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, run: execRunner}
}

// WithCommandRunner overrides command execution (primarily for tests).
func (r *Runner) WithCommandRunner(run CommandRunner) *Runner {
	if run != nil {
		r.run = run
	}
	return r
}

// Binary returns the configured ffmpeg executable.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes ffmpeg with the supplied arguments.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)
	if _, err := r.run(ctx, r.binary, full...); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// CopyCut stream-copies length of src starting at start into dest. When
// faststart is set the moov atom is relocated so the file starts playing
// before it is fully read.
func (r *Runner) CopyCut(ctx context.Context, src string, start, length time.Duration, dest string, faststart bool) error {
	args := []string{
		"-ss", FormatSeconds(start),
		"-i", src,
		"-t", FormatSeconds(length),
		"-c", "copy",
	}
	if faststart {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, "-y", dest)
	if err := r.Run(ctx, args...); err != nil {
		return fmt.Errorf("cut %s [%s+%s]: %w", src, FormatSeconds(start), FormatSeconds(length), err)
	}
	return nil
}

// GrayFrame decodes frame index of src as an 8-bit grayscale image of the given size.
func (r *Runner) GrayFrame(ctx context.Context, src string, index, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gray frame: invalid size %dx%d", width, height)
	}
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", src,
		"-vf", fmt.Sprintf(`select=eq(n\,%d),scale=%d:%d,format=gray`, index, width, height),
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	}
	out, err := r.run(ctx, r.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode frame %d of %s: %w", index, src, err)
	}
	want := width * height
	if len(out) < want {
		return nil, fmt.Errorf("frame %d of %s: got %d bytes, want %d", index, src, len(out), want)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, out[:want])
	return img, nil
}

// FormatSeconds renders d as fractional seconds with millisecond precision.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// EscapeFilterPath escapes a filesystem path for use inside a filtergraph option.
func EscapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, ":", `\:`)
	p = strings.ReplaceAll(p, "'", `\'`)
	return p
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, lastLines(msg, 5))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
