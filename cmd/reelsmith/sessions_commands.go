package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/staging"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage per-run session directories",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsCleanCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List session directories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.Describe(cfg.Paths.SessionsDir)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				var total int64
				for _, dir := range dirs {
					total += dir.Size
				}
				return writeJSON(cmd, map[string]any{
					"sessions_dir":     cfg.Paths.SessionsDir,
					"sessions":         dirs,
					"total_size_bytes": total,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}
			fmt.Fprintf(out, "Sessions directory: %s\n", cfg.Paths.SessionsDir)
			var total int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				total += dir.Size
				rows = append(rows, []string{
					dir.Name,
					formatAge(time.Since(dir.ModTime)),
					formatBytes(dir.Size),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Session", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
				fmt.Sprintf("%d sessions", len(dirs)), "", formatBytes(total),
			))
			return nil
		},
	}
}

func newSessionsCleanCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all but the newest sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = cfg.Sessions.Keep
			}
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			result := staging.CleanOld(cfg.Paths.SessionsDir, keep, logger)

			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{
					"kept":    len(result.Kept),
					"removed": len(result.Removed),
					"errors":  errs,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Kept %d sessions, removed %d\n", len(result.Kept), len(result.Removed))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Number of sessions to keep (default from config)")
	return cmd
}
