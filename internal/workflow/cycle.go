package workflow

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/jobs"
	"reelsmith/internal/logging"
	"reelsmith/internal/render"
	"reelsmith/internal/staging"
)

// OutputName is the file name of a rendered video inside its story folder.
const OutputName = "final_video.mp4"

// CycleRequest is the input of one full production run.
type CycleRequest struct {
	JobID   string
	Audio   string
	Gender  string
	Consume bool
	Now     time.Time
}

// CycleResult reports a full production run.
type CycleResult struct {
	Session     staging.Session
	Maintenance MaintenanceResult
	Job         *jobs.Job
	Render      render.Result
	Consumed    bool
	Cleanup     staging.CleanResult
}

// RunOnce creates a session, tops up the library, produces one job, and
// prunes old sessions. Old sessions are pruned even when the job fails.
func (p *Producer) RunOnce(ctx context.Context, req CycleRequest) (result CycleResult, err error) {
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	if strings.TrimSpace(req.JobID) == "" {
		req.JobID = uuid.NewString()
	}
	defer func() {
		result.Cleanup = staging.CleanOld(p.sessionsDir, p.keepSessions, p.logger)
	}()

	session, err := staging.NewSession(p.sessionsDir, req.Now)
	if err != nil {
		return result, err
	}
	result.Session = session
	logger := logging.WithContext(ctx, p.logger).With(logging.String("session", session.Name))

	maintenance, err := p.Maintain(ctx)
	result.Maintenance = maintenance
	if err != nil {
		logging.WarnWithContext(logger, "maintenance failed; continuing with current library", "maintenance_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "library not replenished this cycle"),
		)
	}

	storyDir, err := session.StoryDir(req.JobID)
	if err != nil {
		return result, err
	}
	job, rendered, err := p.Produce(ctx, JobRequest{
		JobID:      req.JobID,
		Audio:      req.Audio,
		Gender:     req.Gender,
		Output:     filepath.Join(storyDir, OutputName),
		SessionDir: session.Path,
	})
	result.Job = job
	result.Render = rendered
	if err != nil {
		return result, err
	}

	if req.Consume {
		if err := p.Consume(ctx, job.ID); err != nil {
			return result, err
		}
		result.Consumed = true
		if refreshed, err := p.store.Get(ctx, job.ID); err == nil {
			result.Job = refreshed
		}
	}
	return result, nil
}
