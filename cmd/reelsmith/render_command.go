package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/jobs"
	"reelsmith/internal/preflight"
	"reelsmith/internal/render"
	"reelsmith/internal/staging"
	"reelsmith/internal/subtitles"
	"reelsmith/internal/workflow"
)

// produceFlags are shared by render and run.
type produceFlags struct {
	audio   string
	gender  string
	out     string
	jobID   string
	consume bool
}

func (f *produceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.audio, "audio", "a", "", "Narration audio file (required)")
	cmd.Flags().StringVarP(&f.gender, "gender", "g", string(subtitles.VariantNeutral), "Narrator gender for subtitle colours: male, female or neutral")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Copy the finished video to this path")
	cmd.Flags().StringVar(&f.jobID, "job", "", "Job identifier (generated when empty)")
	cmd.Flags().BoolVar(&f.consume, "consume", false, "Delete the background segment once the video is delivered")
	_ = cmd.MarkFlagRequired("audio")
}

func (f *produceFlags) resolve() error {
	audio, err := config.ExpandPath(strings.TrimSpace(f.audio))
	if err != nil {
		return err
	}
	info, err := os.Stat(audio)
	if err != nil {
		return fmt.Errorf("narration audio: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("narration audio %s is a directory", audio)
	}
	f.audio = audio
	if gender := strings.ToLower(strings.TrimSpace(f.gender)); gender != "" && string(subtitles.ParseVariant(gender)) != gender {
		return fmt.Errorf("unknown gender %q (want male, female or neutral)", f.gender)
	}
	if f.out != "" {
		if f.out, err = config.ExpandPath(f.out); err != nil {
			return err
		}
	}
	return nil
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags produceFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one video from a library segment and a narration track",
		Long: `Reserve one background segment, transcribe the narration, and render a
1080x1920 video with word-timed subtitles and a progress bar. The video is
written to a story folder inside a new session directory.

The segment stays reserved until the video is delivered: pass --consume to
delete it straight away, or use "reelsmith jobs consume" later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.resolve(); err != nil {
				return err
			}
			return ctx.withPipeline(func(p *pipeline) error {
				if err := p.recoverJobs(cmd.Context()); err != nil {
					return err
				}
				session, err := staging.NewSession(p.cfg.Paths.SessionsDir, time.Now())
				if err != nil {
					return err
				}
				jobID := flags.jobID
				if jobID == "" {
					jobID = newJobID()
				}
				storyDir, err := session.StoryDir(jobID)
				if err != nil {
					return err
				}
				job, result, err := p.producer.Produce(cmd.Context(), workflow.JobRequest{
					JobID:      jobID,
					Audio:      flags.audio,
					Gender:     flags.gender,
					Output:     filepath.Join(storyDir, workflow.OutputName),
					SessionDir: session.Path,
				})
				if err != nil {
					return err
				}
				job, err = deliver(cmd.Context(), p, job, flags)
				if err != nil {
					return err
				}
				return printProduced(cmd, ctx, job, result, flags.out)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags produceFlags
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full production cycle",
		Long: `Create a session, top up the segment library when it is below the
watermark, render one video, and prune old sessions. Readiness checks run
first unless --skip-checks is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.resolve(); err != nil {
				return err
			}
			if !skipChecks {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					for _, r := range failed {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Name, r.Detail)
					}
					return errors.New("readiness checks failed; run `reelsmith doctor` for details")
				}
			}
			return ctx.withPipeline(func(p *pipeline) error {
				if err := p.recoverJobs(cmd.Context()); err != nil {
					return err
				}
				cycle, err := p.producer.RunOnce(cmd.Context(), workflow.CycleRequest{
					JobID:  flags.jobID,
					Audio:  flags.audio,
					Gender: flags.gender,
				})
				if err != nil {
					return err
				}
				job, err := deliver(cmd.Context(), p, cycle.Job, flags)
				if err != nil {
					return err
				}
				if !ctx.JSONMode() {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Session: %s\n", cycle.Session.Path)
					if cycle.Maintenance.Ran {
						fmt.Fprintf(out, "Maintenance: %d segments admitted (%d -> %d available)\n",
							cycle.Maintenance.Batch.Admitted(),
							cycle.Maintenance.Before.Available(),
							cycle.Maintenance.After.Available())
					}
					if n := len(cycle.Cleanup.Removed); n > 0 {
						fmt.Fprintf(out, "Pruned %d old sessions\n", n)
					}
				}
				return printProduced(cmd, ctx, job, cycle.Render, flags.out)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip readiness checks")
	return cmd
}

// deliver copies the rendered video to --out and consumes the segment when
// requested. Consumption only happens after the copy has been verified.
func deliver(ctx context.Context, p *pipeline, job *jobs.Job, flags produceFlags) (*jobs.Job, error) {
	if flags.out != "" {
		if err := fileutil.CopyFileVerified(job.OutputPath, flags.out); err != nil {
			return job, fmt.Errorf("deliver %s: %w (job %s stays rendered; its segment is kept)", flags.out, err, job.ID)
		}
	}
	if !flags.consume {
		return job, nil
	}
	if err := p.producer.Consume(ctx, job.ID); err != nil {
		return job, err
	}
	return p.store.Get(ctx, job.ID)
}

func printProduced(cmd *cobra.Command, ctx *commandContext, job *jobs.Job, result render.Result, delivered string) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"job":       jobView(job),
			"render":    result,
			"delivered": delivered,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s %s\n", job.ID, job.Status)
	fmt.Fprintf(out, "Output: %s (%s, %s)\n", job.OutputPath, formatBytes(job.OutputBytes), formatSeconds(job.Duration))
	fmt.Fprintf(out, "Background: %s", filepath.Base(job.SegmentPath))
	if job.SpeedFactor != 1 && job.SpeedFactor != 0 {
		fmt.Fprintf(out, " stretched x%.3f", job.SpeedFactor)
	} else {
		fmt.Fprintf(out, " from %s", formatSeconds(job.BackgroundStart))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Subtitles: %d words\n", job.SubtitleEvents)
	if delivered != "" {
		fmt.Fprintf(out, "Delivered: %s\n", delivered)
	}
	if job.Status == jobs.StatusRendered {
		fmt.Fprintf(out, "Segment reserved; run `reelsmith jobs consume %s` after publishing\n", job.ID)
	}
	return nil
}
