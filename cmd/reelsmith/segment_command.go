package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"reelsmith/internal/segmenter"
	"reelsmith/internal/services"
)

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var listOnly bool

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Cut unprocessed raw videos into validated library segments",
		Long: `Cut every raw video that is not yet in the processed ledger into
fixed-length segments, validate each one, and add the admitted segments to
the library. Processed sources are recorded in the ledger and deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline) error {
				if listOnly {
					pending, err := p.extractor.Pending()
					if err != nil {
						return err
					}
					return printPending(cmd, ctx, pending)
				}

				out := cmd.ErrOrStderr()
				if !ctx.JSONMode() && isTerminal(out) {
					p.extractor.SetProgress(newSegmentProgress(out))
				}
				batch, err := p.extractor.ProcessPending(cmd.Context())
				if errors.Is(err, services.ErrResourceExhausted) {
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"sources": []any{}, "admitted": 0})
					}
					fmt.Fprintln(cmd.OutOrStdout(), "No unprocessed raw videos")
					return nil
				}
				if err != nil {
					return err
				}
				return printBatch(cmd, ctx, batch)
			})
		},
	}

	cmd.Flags().BoolVar(&listOnly, "list", false, "List pending raw videos without processing them")
	return cmd
}

// newSegmentProgress draws one bar per source, sized by its segment count.
func newSegmentProgress(out io.Writer) segmenter.ProgressFunc {
	var bar *progressbar.ProgressBar
	var current string
	return func(source segmenter.RawVideo, done, total int) {
		if bar == nil || current != source.ID {
			current = source.ID
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(out),
				progressbar.OptionSetDescription(source.ID),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
			)
		}
		_ = bar.Set(done)
	}
}

func printPending(cmd *cobra.Command, ctx *commandContext, pending []segmenter.RawVideo) error {
	if ctx.JSONMode() {
		if pending == nil {
			pending = []segmenter.RawVideo{}
		}
		return writeJSON(cmd, pending)
	}
	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintln(out, "No unprocessed raw videos")
		return nil
	}
	rows := make([][]string, 0, len(pending))
	for _, raw := range pending {
		rows = append(rows, []string{raw.ID, filepath.Base(raw.Path)})
	}
	fmt.Fprint(out, renderTable([]string{"Source", "File"}, rows, nil))
	return nil
}

func printBatch(cmd *cobra.Command, ctx *commandContext, batch segmenter.BatchResult) error {
	if ctx.JSONMode() {
		failed := make([]string, 0, len(batch.Failed))
		for _, raw := range batch.Failed {
			failed = append(failed, raw.ID)
		}
		return writeJSON(cmd, map[string]any{
			"sources":  batch.Sources,
			"failed":   failed,
			"admitted": batch.Admitted(),
		})
	}

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(batch.Sources))
	var attempted, admitted, rejected, corrupt int
	for _, src := range batch.Sources {
		rows = append(rows, []string{
			src.Source.ID,
			formatSeconds(src.Duration),
			yesNo(src.Trimmed),
			strconv.Itoa(src.Attempted),
			strconv.Itoa(src.Admitted),
			strconv.Itoa(src.Rejected),
			strconv.Itoa(src.Corrupt + src.Failed),
		})
		attempted += src.Attempted
		admitted += src.Admitted
		rejected += src.Rejected
		corrupt += src.Corrupt + src.Failed
	}
	fmt.Fprint(out, renderTable(
		[]string{"Source", "Duration", "Trimmed", "Cut", "Admitted", "Rejected", "Errors"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
		"Total", "", "", strconv.Itoa(attempted), strconv.Itoa(admitted), strconv.Itoa(rejected), strconv.Itoa(corrupt),
	))
	for _, raw := range batch.Failed {
		fmt.Fprintf(out, "Failed: %s (left in place for the next run)\n", raw.Path)
	}
	return nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
