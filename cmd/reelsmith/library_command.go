package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/library"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	var listSegments bool

	cmd := &cobra.Command{
		Use:   "library",
		Short: "Show segment library inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(p *pipeline) error {
				if err := p.recoverJobs(cmd.Context()); err != nil {
					return err
				}
				inv, err := p.pool.Inventory()
				if err != nil {
					return err
				}
				var segments []library.Segment
				if listSegments {
					if segments, err = p.pool.Segments(); err != nil {
						return err
					}
				}
				watermark := p.cfg.Library.MinSegments

				if ctx.JSONMode() {
					if segments == nil {
						segments = []library.Segment{}
					}
					return writeJSON(cmd, map[string]any{
						"directory":       p.pool.Dir(),
						"inventory":       inv,
						"available":       inv.Available(),
						"watermark":       watermark,
						"below_watermark": inv.Available() < watermark,
						"processed":       p.ledger.Len(),
						"segments":        segments,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Library: %s\n", p.pool.Dir())
				fmt.Fprintf(out, "Segments: %d total, %d available, %d reserved, %d undersized (%s)\n",
					inv.Total, inv.Available(), inv.Reserved, inv.Undersized, formatBytes(inv.Bytes))
				fmt.Fprintf(out, "Watermark: %d", watermark)
				if inv.Available() < watermark {
					fmt.Fprint(out, " (below; the next run cuts new segments)")
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Processed raw videos: %d\n", p.ledger.Len())

				if listSegments && len(segments) > 0 {
					rows := make([][]string, 0, len(segments))
					for _, seg := range segments {
						rows = append(rows, []string{
							filepath.Base(seg.Path),
							formatBytes(seg.Size),
							formatAge(time.Since(seg.ModTime)),
							seg.ReservedBy,
						})
					}
					fmt.Fprintln(out)
					fmt.Fprint(out, renderTable(
						[]string{"Segment", "Size", "Age", "Reserved by"},
						rows,
						[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&listSegments, "segments", "s", false, "List every segment")
	return cmd
}
