package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelsmith/internal/jobs"
)

func newJobID() string {
	return uuid.NewString()
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and settle production jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsConsumeCommand(ctx))
	jobsCmd.AddCommand(newJobsAbandonCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

// withStore opens job history without taking the library lock. Read-only
// commands use it so they work while a render is in progress.
func (c *commandContext) withStore(fn func(*jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]jobs.Status, 0, len(statusFlags))
			for _, value := range statusFlags {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(store *jobs.Store) error {
				list, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]map[string]any, 0, len(list))
					for _, job := range list {
						views = append(views, jobView(job))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, job := range list {
					rows = append(rows, []string{
						shortID(job.ID),
						string(job.Status),
						job.Gender,
						filepath.Base(job.SegmentPath),
						formatSeconds(job.Duration),
						formatAge(time.Since(job.UpdatedAt)),
						job.ErrorKind,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Job", "Status", "Gender", "Segment", "Length", "Updated", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				job, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, jobView(job))
				}
				out := cmd.OutOrStdout()
				fields := [][2]string{
					{"ID", job.ID},
					{"Status", string(job.Status)},
					{"Gender", job.Gender},
					{"Audio", job.AudioPath},
					{"Segment", job.SegmentPath},
					{"Output", job.OutputPath},
					{"Session", job.SessionDir},
					{"Size", formatBytes(job.OutputBytes)},
					{"Length", formatSeconds(job.Duration)},
					{"Background start", formatSeconds(job.BackgroundStart)},
					{"Speed factor", strconv.FormatFloat(job.SpeedFactor, 'f', 3, 64)},
					{"Subtitle events", strconv.Itoa(job.SubtitleEvents)},
					{"Error", job.ErrorMessage},
					{"Created", job.CreatedAt.Local().Format(time.DateTime)},
					{"Updated", job.UpdatedAt.Local().Format(time.DateTime)},
				}
				for _, f := range fields {
					if f[1] == "" {
						continue
					}
					fmt.Fprintf(out, "%-17s %s\n", f[0]+":", f[1])
				}
				return nil
			})
		},
	}
}

func newJobsConsumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "consume <job-id>",
		Short: "Delete the segment of a delivered job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline) error {
				if err := p.producer.Consume(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s consumed\n", args[0])
				return nil
			})
		},
	}
}

func newJobsAbandonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <job-id>",
		Short: "Return the segment of an undelivered job to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline) error {
				if err := p.producer.Abandon(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s released\n", args[0])
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from history",
		Long: `Remove consumed, failed and released jobs from history. With --all, jobs
that still hold a segment are removed too; their segments return to the
library on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibraryLock(func() error {
				return ctx.withStore(func(store *jobs.Store) error {
					var statuses []jobs.Status
					if all {
						statuses = jobs.AllStatuses()
					}
					removed, err := store.Clear(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"removed": removed})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", removed)
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove jobs that still hold a segment")
	return cmd
}

func jobView(job *jobs.Job) map[string]any {
	if job == nil {
		return nil
	}
	return map[string]any{
		"id":                  job.ID,
		"status":              job.Status,
		"gender":              job.Gender,
		"audio_path":          job.AudioPath,
		"segment_path":        job.SegmentPath,
		"output_path":         job.OutputPath,
		"session_dir":         job.SessionDir,
		"output_bytes":        job.OutputBytes,
		"duration_ms":         job.Duration.Milliseconds(),
		"background_start_ms": job.BackgroundStart.Milliseconds(),
		"speed_factor":        job.SpeedFactor,
		"subtitle_events":     job.SubtitleEvents,
		"error_kind":          job.ErrorKind,
		"error_message":       job.ErrorMessage,
		"created_at":          job.CreatedAt,
		"updated_at":          job.UpdatedAt,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
