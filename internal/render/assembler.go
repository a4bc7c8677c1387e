package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/overlay"
	"reelsmith/internal/services"
	"reelsmith/internal/subtitles"
	"reelsmith/internal/transcription"
)

const stageName = "render"

// Prober inspects media files.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Encoder runs ffmpeg.
type Encoder interface {
	Run(ctx context.Context, args ...string) error
}

// WordAligner starts narration transcription.
type WordAligner interface {
	Start(ctx context.Context, audioPath string) *transcription.Task
}

// Options holds fixed encode parameters.
type Options struct {
	Width        int
	Height       int
	FPS          int
	VideoCodec   string
	AudioCodec   string
	VideoBitrate string
	AudioBitrate string
	Preset       string
	Steepness    float64
	MinVisible   time.Duration
	Look         subtitles.Look
	FontsDir     string
	// WorkRoot is where per-render workspaces are created; empty uses the
	// system temp directory.
	WorkRoot string
}

// DefaultOptions returns the stock 1080x1920 encode settings.
func DefaultOptions() Options {
	return Options{
		Width:        1080,
		Height:       1920,
		FPS:          30,
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		VideoBitrate: "8000k",
		AudioBitrate: "192k",
		Preset:       "superfast",
		Steepness:    overlay.DefaultSteepness,
		MinVisible:   subtitles.DefaultMinVisible,
		Look:         subtitles.DefaultLook(),
	}
}

// Request describes one composition.
type Request struct {
	JobID      string
	Background string
	Audio      string
	Output     string
	Gender     string
}

// Result summarizes a finished render.
type Result struct {
	Output          string
	Size            int64
	Duration        time.Duration
	BackgroundStart time.Duration
	SpeedFactor     float64
	Crop            Crop
	Words           int
	Events          int
}

// Assembler renders requests with ffmpeg.
type Assembler struct {
	opts    Options
	prober  Prober
	encoder Encoder
	aligner WordAligner
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAssembler wires the render dependencies. rng may be nil; when set it is
// shared by concurrent Assemble calls under a lock.
func NewAssembler(opts Options, prober Prober, encoder Encoder, aligner WordAligner, rng *rand.Rand, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Look.Palette == nil {
		opts.Look.Palette = subtitles.DefaultPalette()
	}
	opts.Look.Width = opts.Width
	opts.Look.Height = opts.Height
	return &Assembler{
		opts:    opts,
		prober:  prober,
		encoder: encoder,
		aligner: aligner,
		rng:     rng,
		logger:  logging.NewComponentLogger(logger, stageName),
	}
}

type sourceInfo struct {
	duration time.Duration
	width    int
	height   int
}

// Assemble renders req.Output. Any failure removes the partial output and is
// returned with its cause attached.
func (a *Assembler) Assemble(ctx context.Context, req Request) (result Result, err error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	if req.JobID != "" {
		ctx = services.WithJobID(ctx, req.JobID)
	}
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, a.logger)

	alignCtx, cancelAlign := context.WithCancel(ctx)
	task := a.aligner.Start(alignCtx, req.Audio)
	defer func() {
		cancelAlign()
		task.Wait()
	}()

	audio, background, err := a.probe(ctx, req)
	if err != nil {
		return Result{}, err
	}

	timeline := a.planTimeline(background.duration, audio.duration)
	crop := PlanCrop(background.width, background.height, TargetAspect)
	logger.Info("render plan",
		logging.String(logging.FieldEventType, "render_plan"),
		logging.String("background", req.Background),
		logging.Duration("audio_duration", timeline.Audio),
		logging.Duration("background_duration", timeline.Background),
		logging.Duration("background_start", timeline.Start),
		logging.Float64("speed_factor", timeline.Speed),
		logging.Bool("crop_applied", crop.Applied),
	)
	if timeline.Stretched() {
		logging.WarnWithContext(logger, "background shorter than narration; retiming playback", "background_stretched",
			logging.Float64("speed_factor", timeline.Speed),
			logging.String(logging.FieldImpact, "background motion speed differs from the admitted segment"),
			logging.String(logging.FieldErrorHint, "keep segments longer than the narration"),
		)
	}

	workDir, err := os.MkdirTemp(a.opts.WorkRoot, "reelsmith-render-")
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "workspace", "create render workspace", err)
	}
	defer os.RemoveAll(workDir)

	bar, err := overlay.New(timeline.Audio, a.opts.Width, a.opts.Height, a.opts.Steepness)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "overlay", "build progress bar", err)
	}
	barPath := filepath.Join(workDir, "progress.png")
	if err := bar.WritePNG(barPath); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "overlay", "write progress bar", err)
	}

	words := task.Wait()
	events := subtitles.Compose(words, req.Gender, a.opts.MinVisible)
	subtitlePath := ""
	if len(events) > 0 {
		subtitlePath = filepath.Join(workDir, "words.ass")
		if err := subtitles.WriteASS(subtitlePath, events, a.opts.Look); err != nil {
			return Result{}, services.Wrap(services.ErrTransient, stageName, "subtitles", "write subtitle script", err)
		}
	}

	if dir := filepath.Dir(req.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, services.Wrap(services.ErrTransient, stageName, "output", "create output directory", err)
		}
	}
	defer func() {
		if err != nil {
			_ = fileutil.RemoveIfExists(req.Output)
		}
	}()

	args := a.buildArgs(req, timeline, crop, bar, barPath, subtitlePath)
	started := time.Now()
	if err := a.encoder.Run(ctx, args...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "encode", "ffmpeg render failed", err)
	}
	info, statErr := os.Stat(req.Output)
	if statErr != nil {
		return Result{}, services.Wrap(services.ErrCorruptAsset, stageName, "encode", "render produced no output", statErr)
	}

	result = Result{
		Output:          req.Output,
		Size:            info.Size(),
		Duration:        timeline.Audio,
		BackgroundStart: timeline.Start,
		SpeedFactor:     timeline.Speed,
		Crop:            crop,
		Words:           len(words),
		Events:          len(events),
	}
	logger.Info("render complete",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("output", req.Output),
		logging.Int64("size_bytes", result.Size),
		logging.Int("subtitle_events", result.Events),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (a *Assembler) planTimeline(background, audio time.Duration) Timeline {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return PlanTimeline(background, audio, a.rng)
}

func validateRequest(req Request) error {
	for _, input := range []struct{ name, path string }{
		{"background", req.Background},
		{"audio", req.Audio},
	} {
		if strings.TrimSpace(input.path) == "" {
			return services.Wrap(services.ErrValidation, stageName, "request", input.name+" path required", nil)
		}
		if !fileutil.Exists(input.path) {
			return services.Wrap(services.ErrNotFound, stageName, "request", input.name+" missing: "+input.path, nil)
		}
	}
	if strings.TrimSpace(req.Output) == "" {
		return services.Wrap(services.ErrValidation, stageName, "request", "output path required", nil)
	}
	return nil
}

func (a *Assembler) probe(ctx context.Context, req Request) (sourceInfo, sourceInfo, error) {
	var audio, background sourceInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.prober.Inspect(gctx, req.Audio)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, stageName, "probe audio", req.Audio, err)
		}
		if res.AudioStreamCount() == 0 {
			return services.Wrap(services.ErrCorruptAsset, stageName, "probe audio", "no audio stream in "+req.Audio, nil)
		}
		d, err := res.Duration()
		if err != nil || d <= 0 {
			return services.Wrap(services.ErrCorruptAsset, stageName, "probe audio", "unknown audio duration", err)
		}
		audio.duration = d
		return nil
	})
	g.Go(func() error {
		res, err := a.prober.Inspect(gctx, req.Background)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, stageName, "probe background", req.Background, err)
		}
		stream, ok := res.VideoStream()
		if !ok || stream.Width <= 0 || stream.Height <= 0 {
			return services.Wrap(services.ErrCorruptAsset, stageName, "probe background", "no video stream in "+req.Background, nil)
		}
		d, err := res.Duration()
		if err != nil || d <= 0 {
			return services.Wrap(services.ErrCorruptAsset, stageName, "probe background", "unknown background duration", err)
		}
		background = sourceInfo{duration: d, width: stream.Width, height: stream.Height}
		return nil
	})
	if err := g.Wait(); err != nil {
		return sourceInfo{}, sourceInfo{}, err
	}
	return audio, background, nil
}

func (a *Assembler) buildArgs(req Request, timeline Timeline, crop Crop, bar *overlay.Bar, barPath, subtitlePath string) []string {
	audioLen := ffmpeg.FormatSeconds(timeline.Audio)
	fps := strconv.Itoa(a.opts.FPS)

	args := []string{"-y"}
	if timeline.Stretched() {
		args = append(args, "-i", req.Background)
	} else {
		args = append(args, "-ss", ffmpeg.FormatSeconds(timeline.Start), "-t", audioLen, "-i", req.Background)
	}
	args = append(args,
		"-loop", "1", "-framerate", fps, "-t", audioLen, "-i", barPath,
		"-i", req.Audio,
		"-filter_complex", a.filterGraph(timeline, crop, bar, subtitlePath),
		"-map", "[v]",
		"-map", "2:a:0",
		"-c:v", a.opts.VideoCodec,
		"-preset", a.opts.Preset,
		"-b:v", a.opts.VideoBitrate,
		"-r", fps,
		"-pix_fmt", "yuv420p",
		"-c:a", a.opts.AudioCodec,
		"-b:a", a.opts.AudioBitrate,
		"-t", audioLen,
		"-movflags", "+faststart",
		req.Output,
	)
	return args
}

func (a *Assembler) filterGraph(timeline Timeline, crop Crop, bar *overlay.Bar, subtitlePath string) string {
	chain := make([]string, 0, 6)
	if timeline.Stretched() {
		chain = append(chain, fmt.Sprintf("setpts=%s*PTS", strconv.FormatFloat(timeline.Speed, 'f', 6, 64)))
	}
	if crop.Applied {
		chain = append(chain, fmt.Sprintf("crop=%d:%d:%d:%d", crop.Width, crop.Height, crop.X, crop.Y))
	}
	chain = append(chain,
		fmt.Sprintf("scale=%d:%d", a.opts.Width, a.opts.Height),
		"setsar=1",
		fmt.Sprintf("fps=%d", a.opts.FPS),
	)
	if subtitlePath != "" {
		sub := "subtitles=filename=" + ffmpeg.EscapeFilterPath(subtitlePath)
		if a.opts.FontsDir != "" {
			sub += ":fontsdir=" + ffmpeg.EscapeFilterPath(a.opts.FontsDir)
		}
		chain = append(chain, sub)
	}
	return fmt.Sprintf("[0:v]%s[bg];[1:v]%s[bar];[bg][bar]overlay=0:H-h[v]",
		strings.Join(chain, ","), bar.Filter())
}

// ErrOutputTooSmall marks a render below the success floor.
var ErrOutputTooSmall = errors.New("render output below size floor")

// VerifyOutput checks that path exists and is larger than minBytes.
func VerifyOutput(path string, minBytes int64) (int64, error) {
	ok, size, err := fileutil.SizeAtLeast(path, minBytes+1)
	if err != nil {
		return 0, services.Wrap(services.ErrCorruptAsset, stageName, "verify", "stat output", err)
	}
	if !ok {
		return size, services.Wrap(services.ErrCorruptAsset, stageName, "verify",
			fmt.Sprintf("%s is %d bytes, need more than %d", path, size, minBytes), ErrOutputTooSmall)
	}
	return size, nil
}
