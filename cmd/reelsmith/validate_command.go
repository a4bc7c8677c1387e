package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/quality"
)

type validationRow struct {
	Path   string         `json:"path"`
	Report quality.Report `json:"report"`
	Pruned bool           `json:"pruned"`
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "validate [segment...]",
		Short: "Score segments by brightness and motion",
		Long: `Run the admission check against the given segment files, or against every
segment in the library when none are given. With --prune, library segments
that fail are deleted unless a job has them reserved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline) error {
				if err := p.recoverJobs(cmd.Context()); err != nil {
					return err
				}
				targets, err := validationTargets(p, args)
				if err != nil {
					return err
				}

				rows := make([]validationRow, 0, len(targets))
				for _, path := range targets {
					report := p.validator.Validate(cmd.Context(), path)
					row := validationRow{Path: path, Report: report}
					if prune && !report.Admitted {
						if err := p.pool.Discard(path); err != nil {
							logging.WarnWithContext(p.logger, "rejected segment kept", "prune_skipped",
								logging.String("segment", path),
								logging.Error(err),
								logging.String(logging.FieldImpact, "segment stays in the library"),
							)
						} else {
							row.Pruned = true
						}
					}
					rows = append(rows, row)
				}
				return printValidation(cmd, ctx, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Delete library segments that fail validation")
	return cmd
}

func validationTargets(p *pipeline, args []string) ([]string, error) {
	if len(args) > 0 {
		targets := make([]string, 0, len(args))
		for _, arg := range args {
			path, err := config.ExpandPath(arg)
			if err != nil {
				return nil, err
			}
			targets = append(targets, path)
		}
		return targets, nil
	}
	segments, err := p.pool.Segments()
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(segments))
	for _, seg := range segments {
		targets = append(targets, seg.Path)
	}
	return targets, nil
}

func printValidation(cmd *cobra.Command, ctx *commandContext, rows []validationRow) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, rows)
	}
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No segments to validate")
		return nil
	}
	colorize := isTerminal(out)
	table := make([][]string, 0, len(rows))
	admitted := 0
	for _, row := range rows {
		if row.Report.Admitted {
			admitted++
		}
		note := row.Report.Reason
		if row.Pruned {
			note = "pruned: " + note
		}
		table = append(table, []string{
			filepath.Base(row.Path),
			passLabel(row.Report.Admitted, colorize),
			fmt.Sprintf("%.1f", row.Report.MeanBrightness),
			fmt.Sprintf("%.2f%%", row.Report.MeanMotion),
			strconv.Itoa(row.Report.Samples),
			note,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Segment", "Result", "Brightness", "Motion", "Samples", "Notes"},
		table,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "%d of %d segments admitted\n", admitted, len(rows))
	return nil
}
