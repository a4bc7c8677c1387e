package segmenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/quality"
	"reelsmith/internal/services"
)

const (
	stageName     = "segmenter"
	trimmedSuffix = "_trimmed"
)

var rawExtensions = map[string]struct{}{".mp4": {}, ".mov": {}, ".mkv": {}}

// DurationProber reports the playable length of a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Cutter produces stream-copied sub-ranges of a media file.
type Cutter interface {
	CopyCut(ctx context.Context, src string, start, length time.Duration, dest string, faststart bool) error
}

// Admitter decides whether a produced segment may join the library.
type Admitter interface {
	Validate(ctx context.Context, path string) quality.Report
}

// Ledger tracks which sources have been fully processed.
type Ledger interface {
	Contains(id string) bool
	Record(id string) error
}

// Options configures extraction.
type Options struct {
	RawDir          string
	SegmentDir      string
	SegmentDuration time.Duration
	TrimEnabled     bool
	TrimStart       time.Duration
	TrimEnd         time.Duration
	MinSegmentBytes int64
}

// RawVideo is one unprocessed source file.
type RawVideo struct {
	ID   string
	Path string
}

// SourceResult summarizes extraction of one source.
type SourceResult struct {
	Source    RawVideo
	Duration  time.Duration
	Trimmed   bool
	Attempted int
	Skipped   int
	Admitted  int
	Rejected  int
	Corrupt   int
	Failed    int
	Segments  []string
}

// BatchResult summarizes a ProcessPending run.
type BatchResult struct {
	Sources []SourceResult
	Failed  []RawVideo
}

// Admitted returns the number of segments added to the library.
func (b BatchResult) Admitted() int {
	total := 0
	for _, src := range b.Sources {
		total += src.Admitted
	}
	return total
}

// ProgressFunc is invoked after every segment attempt of a source.
type ProgressFunc func(source RawVideo, done, total int)

// Extractor turns raw footage into validated library segments.
type Extractor struct {
	opts     Options
	prober   DurationProber
	cutter   Cutter
	admitter Admitter
	ledger   Ledger
	logger   *slog.Logger
	progress ProgressFunc
}

// New constructs an Extractor.
func New(opts Options, prober DurationProber, cutter Cutter, admitter Admitter, ledger Ledger, logger *slog.Logger) *Extractor {
	return &Extractor{
		opts:     opts,
		prober:   prober,
		cutter:   cutter,
		admitter: admitter,
		ledger:   ledger,
		logger:   logging.NewComponentLogger(logger, stageName),
	}
}

// SetProgress installs a per-segment progress callback.
func (e *Extractor) SetProgress(fn ProgressFunc) {
	e.progress = fn
}

// Pending lists raw videos that have not been recorded in the ledger, sorted by name.
func (e *Extractor) Pending() ([]RawVideo, error) {
	entries, err := os.ReadDir(e.opts.RawDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, stageName, "scan", "read raw videos directory", err)
	}
	var pending []RawVideo
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := rawExtensions[ext]; !ok {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.HasSuffix(id, trimmedSuffix) || e.ledger.Contains(id) {
			continue
		}
		pending = append(pending, RawVideo{ID: id, Path: filepath.Join(e.opts.RawDir, name)})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Path < pending[j].Path })
	return pending, nil
}

// ProcessPending extracts every pending source. A failing source is logged and
// skipped; ErrResourceExhausted is returned when there is nothing to process.
func (e *Extractor) ProcessPending(ctx context.Context) (BatchResult, error) {
	pending, err := e.Pending()
	if err != nil {
		return BatchResult{}, err
	}
	if len(pending) == 0 {
		return BatchResult{}, services.Wrap(services.ErrResourceExhausted, stageName, "scan", "no unprocessed raw videos", nil)
	}

	e.logger.Info("processing raw videos", logging.Int("pending", len(pending)))
	var batch BatchResult
	for _, raw := range pending {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		result, err := e.ProcessSource(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			batch.Failed = append(batch.Failed, raw)
			logging.ErrorWithContext(e.logger, "raw video processing failed", "source_failed",
				logging.String("source", raw.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the source stays in the raw directory and is retried next run"),
			)
			continue
		}
		batch.Sources = append(batch.Sources, result)
	}
	e.logger.Info("raw video processing finished",
		logging.Int("sources", len(batch.Sources)),
		logging.Int("failed_sources", len(batch.Failed)),
		logging.Int("segments_admitted", batch.Admitted()),
	)
	return batch, nil
}

// ProcessSource cuts one raw video into segments, validates each, records the
// source in the ledger and finally deletes the source and any trimmed copy.
func (e *Extractor) ProcessSource(ctx context.Context, raw RawVideo) (SourceResult, error) {
	result := SourceResult{Source: raw}
	logger := e.logger.With(logging.String("source", raw.Path))
	segmentLen := e.opts.SegmentDuration
	if segmentLen <= 0 {
		return result, services.Wrap(services.ErrConfiguration, stageName, "plan", "segment duration must be positive", nil)
	}

	duration, err := e.prober.Duration(ctx, raw.Path)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, stageName, "probe", raw.ID, err)
	}

	working := raw.Path
	trimmedPath := ""
	if e.opts.TrimEnabled && duration > e.opts.TrimStart+e.opts.TrimEnd {
		trimmedPath = filepath.Join(filepath.Dir(raw.Path), raw.ID+trimmedSuffix+".mp4")
		trimmedLen, err := e.trim(ctx, raw, trimmedPath, duration)
		if err != nil {
			logging.WarnWithContext(logger, "trim failed; segmenting untrimmed source", "trim_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "segments may include intro and outro footage"),
			)
			_ = fileutil.RemoveIfExists(trimmedPath)
			trimmedPath = ""
		} else {
			working = trimmedPath
			duration = trimmedLen
			result.Trimmed = true
		}
	}
	result.Duration = duration

	count := int(duration / segmentLen)
	if count == 0 {
		logging.WarnWithContext(logger, "source shorter than one segment", "source_too_short",
			logging.Duration("duration", duration),
			logging.Duration("segment_duration", segmentLen),
			logging.String(logging.FieldImpact, "source is recorded and removed without producing segments"),
		)
	} else if err := os.MkdirAll(e.opts.SegmentDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, stageName, "prepare", "create segments directory", err)
	}

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.cutOne(ctx, logger, raw, working, i, segmentLen, &result)
		if e.progress != nil {
			e.progress(raw, i+1, count)
		}
	}

	if err := e.ledger.Record(raw.ID); err != nil {
		return result, services.Wrap(services.ErrTransient, stageName, "record", raw.ID, err)
	}
	for _, path := range []string{raw.Path, trimmedPath} {
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(logger, "failed to remove processed source", "source_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk space is not reclaimed; the ledger prevents reprocessing"),
			)
		}
	}

	logger.Info("raw video segmented",
		logging.Duration("duration", result.Duration),
		logging.Bool("trimmed", result.Trimmed),
		logging.Int("attempted", result.Attempted),
		logging.Int("admitted", result.Admitted),
		logging.Int("rejected", result.Rejected),
		logging.Int("corrupt", result.Corrupt),
		logging.Int("failed", result.Failed),
		logging.Int("skipped_existing", result.Skipped),
	)
	return result, nil
}

func (e *Extractor) trim(ctx context.Context, raw RawVideo, dest string, duration time.Duration) (time.Duration, error) {
	length := duration - e.opts.TrimStart - e.opts.TrimEnd
	if err := e.cutter.CopyCut(ctx, raw.Path, e.opts.TrimStart, length, dest, false); err != nil {
		return 0, err
	}
	trimmed, err := e.prober.Duration(ctx, dest)
	if err != nil || trimmed <= 0 {
		return length, nil
	}
	return trimmed, nil
}

// cutOne cuts segment i into a hidden temporary file and promotes it to its
// final name only after the size floor and quality checks pass.
func (e *Extractor) cutOne(ctx context.Context, logger *slog.Logger, raw RawVideo, working string, i int, segmentLen time.Duration, result *SourceResult) {
	name := fmt.Sprintf("%s_seg%d.mp4", raw.ID, i+1)
	final := filepath.Join(e.opts.SegmentDir, name)
	if fileutil.Exists(final) {
		result.Skipped++
		logger.Debug("segment already exists", logging.String("segment", final))
		return
	}
	result.Attempted++
	tmp := filepath.Join(e.opts.SegmentDir, "."+name)
	segLogger := logger.With(logging.String("segment", final))

	if err := e.cutter.CopyCut(ctx, working, time.Duration(i)*segmentLen, segmentLen, tmp, true); err != nil {
		result.Failed++
		_ = fileutil.RemoveIfExists(tmp)
		logging.WarnWithContext(segLogger, "segment cut failed", "segment_cut_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment skipped"),
		)
		return
	}

	ok, size, err := fileutil.SizeAtLeast(tmp, e.opts.MinSegmentBytes)
	if err != nil || !ok {
		result.Corrupt++
		_ = fileutil.RemoveIfExists(tmp)
		logging.WarnWithContext(segLogger, "segment below size floor", "segment_corrupt",
			logging.Int64("size_bytes", size),
			logging.Int64("min_bytes", e.opts.MinSegmentBytes),
			logging.String(logging.FieldImpact, "segment discarded"),
		)
		return
	}

	if e.admitter != nil {
		if report := e.admitter.Validate(ctx, tmp); !report.Admitted {
			result.Rejected++
			_ = fileutil.RemoveIfExists(tmp)
			return
		}
	}

	if err := os.Rename(tmp, final); err != nil {
		result.Failed++
		_ = fileutil.RemoveIfExists(tmp)
		logging.WarnWithContext(segLogger, "segment promotion failed", "segment_promote_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment discarded"),
		)
		return
	}
	result.Admitted++
	result.Segments = append(result.Segments, final)
}
