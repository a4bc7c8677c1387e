package main

import (
	"context"
	"fmt"
	"log/slog"

	"reelsmith/internal/config"
	"reelsmith/internal/jobs"
	"reelsmith/internal/ledger"
	"reelsmith/internal/library"
	"reelsmith/internal/media/ffmpeg"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/quality"
	"reelsmith/internal/render"
	"reelsmith/internal/segmenter"
	"reelsmith/internal/services/whisperx"
	"reelsmith/internal/transcription"
	"reelsmith/internal/workflow"
)

// pipeline is the wired component graph shared by the mutating commands.
type pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobs.Store
	ledger    *ledger.Ledger
	pool      *library.Pool
	validator *quality.Validator
	extractor *segmenter.Extractor
	producer  *workflow.Producer
}

func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	prober := ffprobe.NewProber(cfg.FFprobeBinary())
	runner := ffmpeg.New(cfg.FFmpegBinary())

	validator := quality.NewValidator(
		quality.NewFFmpegFrames(prober, runner),
		quality.WithThresholds(thresholdsFromConfig(cfg)),
		quality.WithEnabled(cfg.Quality.Enabled),
		quality.WithLogger(logger),
	)

	led, err := ledger.Open(cfg.Paths.ProcessedLedger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	extractor := segmenter.New(segmenter.Options{
		RawDir:          cfg.Paths.RawVideosDir,
		SegmentDir:      cfg.Paths.SegmentsDir,
		SegmentDuration: cfg.SegmentDuration(),
		TrimEnabled:     cfg.Segments.TrimEnabled,
		TrimStart:       seconds(cfg.Segments.TrimStartSeconds),
		TrimEnd:         seconds(cfg.Segments.TrimEndSeconds),
		MinSegmentBytes: cfg.Segments.MinSegmentBytes,
	}, prober, runner, validator, led, logger)

	pool := library.NewPool(cfg.Paths.SegmentsDir,
		library.WithMinBytes(cfg.Segments.MinSegmentBytes),
		library.WithLogger(logger),
	)

	recognizer := transcription.WhisperX{Service: whisperx.NewService(whisperx.Config{
		Model:        cfg.Transcription.Model,
		Language:     cfg.Transcription.Language,
		CUDAEnabled:  cfg.Transcription.CUDAEnabled,
		VADMethod:    cfg.Transcription.VADMethod,
		HFToken:      cfg.Transcription.HFToken,
		UVXBinary:    cfg.UVXBinary(),
		FFmpegBinary: cfg.FFmpegBinary(),
	})}
	assembler := render.NewAssembler(
		render.OptionsFromConfig(cfg),
		prober,
		runner,
		transcription.NewAligner(recognizer, logger),
		nil,
		logger,
	)

	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job history: %w", err)
	}

	return &pipeline{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		ledger:    led,
		pool:      pool,
		validator: validator,
		extractor: extractor,
		producer:  workflow.NewProducer(cfg, pool, extractor, assembler, store, logger),
	}, nil
}

// recoverJobs restores reservations held by undelivered jobs from earlier runs.
func (p *pipeline) recoverJobs(ctx context.Context) error {
	_, _, err := p.producer.Recover(ctx)
	return err
}

func (p *pipeline) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}

func thresholdsFromConfig(cfg *config.Config) quality.Thresholds {
	t := quality.DefaultThresholds()
	q := cfg.Quality
	if q.FrameSamples > 0 {
		t.Samples = q.FrameSamples
	}
	t.MinBrightness = q.MinBrightness
	t.MaxBrightness = q.MaxBrightness
	t.MinMotion = q.MinMotionScore
	if q.PixelDiffThreshold >= 0 && q.PixelDiffThreshold <= 255 {
		t.PixelDiffThreshold = uint8(q.PixelDiffThreshold) //nolint:gosec
	}
	return t
}
