package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/jobs"
	"reelsmith/internal/library"
	"reelsmith/internal/logging"
	"reelsmith/internal/render"
	"reelsmith/internal/segmenter"
	"reelsmith/internal/services"
)

const stageName = "workflow"

// SegmentPool is the subset of library.Pool used by the producer.
type SegmentPool interface {
	Allocate(jobID string) (string, error)
	Consume(jobID string) error
	Release(jobID string) bool
	Restore(jobID, path string) error
	Reservation(jobID string) (string, bool)
	BelowWatermark(watermark int) (bool, library.Inventory, error)
}

// Extractor replenishes the library from raw footage.
type Extractor interface {
	ProcessPending(ctx context.Context) (segmenter.BatchResult, error)
}

// Renderer composes one video.
type Renderer interface {
	Assemble(ctx context.Context, req render.Request) (render.Result, error)
}

// JobStore persists job history.
type JobStore interface {
	Create(ctx context.Context, job jobs.Job) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Active(ctx context.Context) ([]*jobs.Job, error)
	MarkRendering(ctx context.Context, id string) error
	MarkRendered(ctx context.Context, id string, info jobs.RenderInfo) error
	MarkConsumed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
	MarkReleased(ctx context.Context, id string) error
}

// Producer coordinates maintenance and production jobs.
type Producer struct {
	pool           SegmentPool
	extractor      Extractor
	renderer       Renderer
	store          JobStore
	watermark      int
	minOutputBytes int64
	sessionsDir    string
	keepSessions   int
	logger         *slog.Logger
}

// NewProducer wires a producer from configuration and collaborators.
func NewProducer(cfg *config.Config, pool SegmentPool, extractor Extractor, renderer Renderer, store JobStore, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Producer{
		pool:           pool,
		extractor:      extractor,
		renderer:       renderer,
		store:          store,
		watermark:      cfg.Library.MinSegments,
		minOutputBytes: cfg.Render.MinOutputBytes,
		sessionsDir:    cfg.Paths.SessionsDir,
		keepSessions:   cfg.Sessions.Keep,
		logger:         logging.NewComponentLogger(logger, stageName),
	}
}

// MaintenanceResult reports what a maintenance pass did.
type MaintenanceResult struct {
	Ran    bool
	Before library.Inventory
	After  library.Inventory
	Batch  segmenter.BatchResult
}

// Maintain runs the extractor when fewer than the watermark segments are
// available. Running out of raw footage is logged, not returned.
func (p *Producer) Maintain(ctx context.Context) (MaintenanceResult, error) {
	logger := logging.WithContext(ctx, p.logger)
	below, inv, err := p.pool.BelowWatermark(p.watermark)
	if err != nil {
		return MaintenanceResult{}, err
	}
	result := MaintenanceResult{Before: inv, After: inv}
	if !below {
		logger.Debug("library above watermark",
			logging.Int("available", inv.Available()),
			logging.Int("watermark", p.watermark),
		)
		return result, nil
	}

	logging.WarnWithContext(logger, "segment inventory low; running maintenance", "library_low",
		logging.Int("available", inv.Available()),
		logging.Int("watermark", p.watermark),
		logging.String(logging.FieldImpact, "extracting new segments before production"),
	)
	result.Ran = true
	batch, err := p.extractor.ProcessPending(ctx)
	result.Batch = batch
	if err != nil {
		if !errors.Is(err, services.ErrResourceExhausted) {
			return result, err
		}
		logging.WarnWithContext(logger, "no raw videos available for maintenance", "raw_videos_exhausted",
			logging.String(logging.FieldImpact, "library will keep depleting"),
			logging.String(logging.FieldErrorHint, "add source videos to raw_videos_dir"),
		)
	}

	if _, after, err := p.pool.BelowWatermark(p.watermark); err == nil {
		result.After = after
	}
	logger.Info("maintenance complete",
		logging.String(logging.FieldEventType, "maintenance_complete"),
		logging.Int("admitted", batch.Admitted()),
		logging.Int("failed_sources", len(batch.Failed)),
		logging.Int("available", result.After.Available()),
	)
	return result, nil
}

// JobRequest describes one production job.
type JobRequest struct {
	JobID  string
	Audio  string
	Gender string
	// Output is the render destination.
	Output     string
	SessionDir string
}

// Produce allocates a segment, renders the job, and verifies the output. On
// failure the job is marked failed and its segment returned to the pool.
func (p *Producer) Produce(ctx context.Context, req JobRequest) (*jobs.Job, render.Result, error) {
	if strings.TrimSpace(req.JobID) == "" {
		req.JobID = uuid.NewString()
	}
	if strings.TrimSpace(req.Output) == "" {
		return nil, render.Result{}, services.Wrap(services.ErrValidation, stageName, "produce", "output path required", nil)
	}
	ctx = services.WithJobID(ctx, req.JobID)
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, p.logger)

	if err := p.ensureNewJob(ctx, req.JobID); err != nil {
		return nil, render.Result{}, err
	}

	segment, err := p.pool.Allocate(req.JobID)
	if err != nil {
		logging.ErrorWithContext(logger, "segment allocation failed", "allocation_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job not started"),
			logging.String(logging.FieldErrorHint, "replenish the library with reelsmith segment"),
		)
		return nil, render.Result{}, err
	}

	job, err := p.store.Create(ctx, jobs.Job{
		ID:          req.JobID,
		SegmentPath: segment,
		AudioPath:   req.Audio,
		OutputPath:  req.Output,
		Gender:      req.Gender,
		SessionDir:  req.SessionDir,
	})
	if err != nil {
		p.pool.Release(req.JobID)
		return nil, render.Result{}, err
	}
	if err := p.store.MarkRendering(ctx, job.ID); err != nil {
		return nil, render.Result{}, p.fail(ctx, job.ID, err)
	}

	result, err := p.renderer.Assemble(ctx, render.Request{
		JobID:      job.ID,
		Background: segment,
		Audio:      req.Audio,
		Output:     req.Output,
		Gender:     req.Gender,
	})
	if err == nil {
		if result.Size, err = render.VerifyOutput(req.Output, p.minOutputBytes); err != nil {
			_ = fileutil.RemoveIfExists(req.Output)
		}
	}
	if err != nil {
		return nil, render.Result{}, p.fail(ctx, job.ID, err)
	}

	if err := p.store.MarkRendered(ctx, job.ID, jobs.RenderInfo{
		OutputPath:      result.Output,
		OutputBytes:     result.Size,
		Duration:        result.Duration,
		BackgroundStart: result.BackgroundStart,
		SpeedFactor:     result.SpeedFactor,
		SubtitleEvents:  result.Events,
	}); err != nil {
		return nil, result, err
	}
	logger.Info("job rendered",
		logging.String(logging.FieldEventType, "job_rendered"),
		logging.String("segment", filepath.Base(segment)),
		logging.String("output", result.Output),
		logging.Int64("size_bytes", result.Size),
	)
	job, err = p.store.Get(ctx, job.ID)
	return job, result, err
}

// ensureNewJob rejects ids that already own a reservation or a history row,
// so a duplicate request never touches another job's segment.
func (p *Producer) ensureNewJob(ctx context.Context, jobID string) error {
	if path, ok := p.pool.Reservation(jobID); ok {
		return services.Wrap(services.ErrValidation, stageName, "produce",
			fmt.Sprintf("job %s already holds %s", jobID, filepath.Base(path)), nil)
	}
	existing, err := p.store.Get(ctx, jobID)
	switch {
	case err == nil:
		return services.Wrap(services.ErrValidation, stageName, "produce",
			fmt.Sprintf("job %s already exists (%s)", jobID, existing.Status), nil)
	case errors.Is(err, jobs.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (p *Producer) fail(ctx context.Context, jobID string, cause error) error {
	logger := logging.WithContext(ctx, p.logger)
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.Error(cause),
		logging.String("error_kind", services.Kind(cause)),
		logging.Bool("retryable", services.Retryable(cause)),
		logging.String(logging.FieldImpact, "segment returned to the library"),
	)
	p.pool.Release(jobID)
	if err := p.store.MarkFailed(ctx, jobID, cause); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	return cause
}

// Consume destroys the segment of a rendered job once its video has been
// delivered.
func (p *Producer) Consume(ctx context.Context, jobID string) error {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, p.logger)
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "consume", jobID, err)
	}
	if job.Status != jobs.StatusRendered {
		return services.Wrap(services.ErrValidation, stageName, "consume",
			"job "+jobID+" is "+string(job.Status)+", not rendered", nil)
	}
	if err := p.ensureReservation(job); err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			return err
		}
		logging.WarnWithContext(logger, "segment already gone before consumption", "segment_missing",
			logging.String("segment", job.SegmentPath),
			logging.String(logging.FieldImpact, "job marked consumed without deleting a file"),
		)
	}
	if err := p.pool.Consume(jobID); err != nil {
		return err
	}
	return p.store.MarkConsumed(ctx, jobID)
}

// Abandon returns the segment of an unfinished or undelivered job to the pool.
func (p *Producer) Abandon(ctx context.Context, jobID string) error {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return services.Wrap(services.ErrNotFound, stageName, "abandon", jobID, err)
	}
	p.pool.Release(jobID)
	if job.Status == jobs.StatusReleased {
		return nil
	}
	return p.store.MarkReleased(ctx, jobID)
}

func (p *Producer) ensureReservation(job *jobs.Job) error {
	if _, ok := p.pool.Reservation(job.ID); ok {
		return nil
	}
	return p.pool.Restore(job.ID, job.SegmentPath)
}

// Recover reconciles job history with a fresh pool after a restart. Rendered
// jobs get their reservation back; jobs interrupted mid-render are failed
// so their segments become allocatable again.
func (p *Producer) Recover(ctx context.Context) (restored, interrupted int, err error) {
	logger := logging.WithContext(ctx, p.logger)
	active, err := p.store.Active(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, job := range active {
		if job.Status == jobs.StatusRendered {
			if err := p.ensureReservation(job); err != nil {
				logging.WarnWithContext(logger, "could not restore reservation", "reservation_restore_failed",
					logging.String(logging.FieldJobID, job.ID),
					logging.String("segment", job.SegmentPath),
					logging.Error(err),
					logging.String(logging.FieldImpact, "job cannot delete its segment on consume"),
				)
				continue
			}
			restored++
			continue
		}
		cause := services.Wrap(services.ErrTransient, stageName, "recover", "interrupted before render completed", nil)
		if err := p.store.MarkFailed(ctx, job.ID, cause); err != nil {
			return restored, interrupted, err
		}
		interrupted++
	}
	if restored > 0 || interrupted > 0 {
		logger.Info("job history recovered",
			logging.String(logging.FieldEventType, "jobs_recovered"),
			logging.Int("restored", restored),
			logging.Int("interrupted", interrupted),
		)
	}
	return restored, interrupted, nil
}
