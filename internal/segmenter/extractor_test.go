package segmenter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/ledger"
	"reelsmith/internal/quality"
	"reelsmith/internal/services"
)

type fakeProber struct {
	durations map[string]time.Duration
	err       error
}

func (p *fakeProber) Duration(_ context.Context, path string) (time.Duration, error) {
	if p.err != nil {
		return 0, p.err
	}
	d, ok := p.durations[filepath.Base(path)]
	if !ok {
		return 0, fmt.Errorf("no duration for %s", path)
	}
	return d, nil
}

type cutCall struct {
	src       string
	start     time.Duration
	length    time.Duration
	dest      string
	faststart bool
}

type fakeCutter struct {
	mu    sync.Mutex
	calls []cutCall
	size  func(dest string) int
	fail  func(dest string) error
}

func (c *fakeCutter) CopyCut(_ context.Context, src string, start, length time.Duration, dest string, faststart bool) error {
	c.mu.Lock()
	c.calls = append(c.calls, cutCall{src, start, length, dest, faststart})
	c.mu.Unlock()
	if c.fail != nil {
		if err := c.fail(dest); err != nil {
			return err
		}
	}
	size := 200 * 1024
	if c.size != nil {
		size = c.size(dest)
	}
	return os.WriteFile(dest, make([]byte, size), 0o644)
}

func (c *fakeCutter) segmentCalls() []cutCall {
	var out []cutCall
	for _, call := range c.calls {
		if call.faststart {
			out = append(out, call)
		}
	}
	return out
}

type fakeAdmitter struct {
	reject map[string]bool
	seen   []string
}

func (a *fakeAdmitter) Validate(_ context.Context, path string) quality.Report {
	a.seen = append(a.seen, path)
	name := strings.TrimPrefix(filepath.Base(path), ".")
	if a.reject[name] {
		return quality.Report{Rejection: quality.RejectMotion, Reason: "too static"}
	}
	return quality.Report{Admitted: true}
}

type fixture struct {
	rawDir   string
	segDir   string
	ledger   *ledger.Ledger
	prober   *fakeProber
	cutter   *fakeCutter
	admitter *fakeAdmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		rawDir:   filepath.Join(base, "raw"),
		segDir:   filepath.Join(base, "segments"),
		prober:   &fakeProber{durations: map[string]time.Duration{}},
		cutter:   &fakeCutter{},
		admitter: &fakeAdmitter{reject: map[string]bool{}},
	}
	if err := os.MkdirAll(f.rawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	l, err := ledger.Open(filepath.Join(base, "state", "processed.txt"))
	if err != nil {
		t.Fatal(err)
	}
	f.ledger = l
	return f
}

func (f *fixture) addRaw(t *testing.T, name string, duration time.Duration) string {
	t.Helper()
	path := filepath.Join(f.rawDir, name)
	if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.prober.durations[name] = duration
	return path
}

func (f *fixture) extractor(trim bool) *Extractor {
	return New(Options{
		RawDir:          f.rawDir,
		SegmentDir:      f.segDir,
		SegmentDuration: 120 * time.Second,
		TrimEnabled:     trim,
		TrimStart:       30 * time.Second,
		TrimEnd:         30 * time.Second,
		MinSegmentBytes: 100 * 1024,
	}, f.prober, f.cutter, f.admitter, f.ledger, nil)
}

func listSegments(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read segments: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestProcessSourceWithoutTrim(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "walk.mp4", 310*time.Second)

	result, err := f.extractor(false).ProcessSource(context.Background(), RawVideo{ID: "walk", Path: path})
	if err != nil {
		t.Fatalf("ProcessSource returned error: %v", err)
	}
	if result.Attempted != 2 || result.Admitted != 2 {
		t.Fatalf("expected two admitted segments, got %+v", result)
	}
	calls := f.cutter.segmentCalls()
	if len(calls) != 2 || calls[0].start != 0 || calls[1].start != 120*time.Second || calls[1].length != 120*time.Second {
		t.Fatalf("unexpected cut calls %+v", calls)
	}
	if got := strings.Join(listSegments(t, f.segDir), ","); got != "walk_seg1.mp4,walk_seg2.mp4" {
		t.Fatalf("unexpected segments %q", got)
	}
	if !f.ledger.Contains("walk") {
		t.Fatal("expected source to be recorded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected raw source to be deleted, stat err=%v", err)
	}
}

func TestProcessSourceTrimsAndFiltersRejects(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "drone.mov", 3000*time.Second)
	f.prober.durations["drone_trimmed.mp4"] = 2940 * time.Second
	f.admitter.reject["drone_seg3.mp4"] = true
	f.admitter.reject["drone_seg17.mp4"] = true

	result, err := f.extractor(true).ProcessSource(context.Background(), RawVideo{ID: "drone", Path: path})
	if err != nil {
		t.Fatalf("ProcessSource returned error: %v", err)
	}
	if !result.Trimmed {
		t.Fatal("expected trimmed source")
	}
	if result.Attempted != 24 || result.Admitted != 22 || result.Rejected != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	trim := f.cutter.calls[0]
	if trim.faststart || trim.start != 30*time.Second || trim.length != 2940*time.Second {
		t.Fatalf("unexpected trim call %+v", trim)
	}
	for _, call := range f.cutter.segmentCalls() {
		if filepath.Base(call.src) != "drone_trimmed.mp4" {
			t.Fatalf("segments must be cut from the trimmed copy, got %s", call.src)
		}
	}

	segments := listSegments(t, f.segDir)
	if len(segments) != 22 {
		t.Fatalf("expected 22 segments on disk, got %d: %v", len(segments), segments)
	}
	for _, name := range segments {
		if name == "drone_seg3.mp4" || name == "drone_seg17.mp4" || strings.HasPrefix(name, ".") {
			t.Fatalf("unexpected file left in library: %s", name)
		}
	}
	for _, leftover := range []string{path, filepath.Join(f.rawDir, "drone_trimmed.mp4")} {
		if _, err := os.Stat(leftover); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed, stat err=%v", leftover, err)
		}
	}
	data, err := os.ReadFile(f.ledger.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "drone\n" {
		t.Fatalf("expected ledger to contain the source exactly once, got %q", data)
	}
}

func TestProcessSourceSkipsTrimForShortSources(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "short.mp4", 59*time.Second)

	result, err := f.extractor(true).ProcessSource(context.Background(), RawVideo{ID: "short", Path: path})
	if err != nil {
		t.Fatalf("ProcessSource returned error: %v", err)
	}
	if result.Trimmed || result.Attempted != 0 {
		t.Fatalf("expected no trim and no segments, got %+v", result)
	}
	if len(f.cutter.calls) != 0 {
		t.Fatalf("expected no ffmpeg calls, got %+v", f.cutter.calls)
	}
	if !f.ledger.Contains("short") {
		t.Fatal("short sources are still recorded")
	}
}

func TestProcessSourceFallsBackWhenTrimFails(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "clip.mkv", 400*time.Second)
	f.cutter.fail = func(dest string) error {
		if strings.HasSuffix(dest, "_trimmed.mp4") {
			return errors.New("trim exploded")
		}
		return nil
	}

	result, err := f.extractor(true).ProcessSource(context.Background(), RawVideo{ID: "clip", Path: path})
	if err != nil {
		t.Fatalf("ProcessSource returned error: %v", err)
	}
	if result.Trimmed || result.Admitted != 3 {
		t.Fatalf("expected three untrimmed segments, got %+v", result)
	}
	for _, call := range f.cutter.segmentCalls() {
		if call.src != path {
			t.Fatalf("expected original source to be cut, got %s", call.src)
		}
	}
}

func TestProcessSourceDropsUndersizedAndFailedCuts(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "mix.mp4", 480*time.Second)
	f.cutter.size = func(dest string) int {
		if strings.HasSuffix(dest, "mix_seg2.mp4") {
			return 512
		}
		return 200 * 1024
	}
	f.cutter.fail = func(dest string) error {
		if strings.HasSuffix(dest, "mix_seg3.mp4") {
			return errors.New("ffmpeg: exit status 1")
		}
		return nil
	}

	result, err := f.extractor(false).ProcessSource(context.Background(), RawVideo{ID: "mix", Path: path})
	if err != nil {
		t.Fatalf("ProcessSource returned error: %v", err)
	}
	if result.Attempted != 4 || result.Admitted != 2 || result.Corrupt != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := strings.Join(listSegments(t, f.segDir), ","); got != "mix_seg1.mp4,mix_seg4.mp4" {
		t.Fatalf("unexpected segments %q", got)
	}
	for _, seen := range f.admitter.seen {
		if strings.Contains(seen, "mix_seg2") {
			t.Fatal("undersized segment should not reach quality validation")
		}
	}
}

func TestProcessSourceSkipsExistingSegments(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "again.mp4", 240*time.Second)
	if err := os.MkdirAll(f.segDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.segDir, "again_seg1.mp4"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := f.extractor(false).ProcessSource(context.Background(), RawVideo{ID: "again", Path: path})
	if err != nil {
		t.Fatalf("ProcessSource returned error: %v", err)
	}
	if result.Skipped != 1 || result.Attempted != 1 || result.Admitted != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(f.cutter.segmentCalls()) != 1 {
		t.Fatalf("expected a single cut, got %d", len(f.cutter.segmentCalls()))
	}
}

func TestProcessSourceProbeFailureLeavesSource(t *testing.T) {
	f := newFixture(t)
	path := f.addRaw(t, "broken.mp4", 0)
	f.prober.err = errors.New("invalid data found")

	_, err := f.extractor(false).ProcessSource(context.Background(), RawVideo{ID: "broken", Path: path})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if f.ledger.Contains("broken") {
		t.Fatal("failed source must not be recorded")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("failed source must stay in place: %v", err)
	}
}

func TestPendingFiltersLedgerAndWorkFiles(t *testing.T) {
	f := newFixture(t)
	f.addRaw(t, "b.MP4", time.Minute)
	f.addRaw(t, "a.mkv", time.Minute)
	f.addRaw(t, "done.mp4", time.Minute)
	f.addRaw(t, "a_trimmed.mp4", time.Minute)
	f.addRaw(t, "notes.txt", 0)
	f.addRaw(t, ".hidden.mp4", time.Minute)
	if err := f.ledger.Record("done"); err != nil {
		t.Fatal(err)
	}

	pending, err := f.extractor(false).Pending()
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	var ids []string
	for _, raw := range pending {
		ids = append(ids, raw.ID)
	}
	if got := strings.Join(ids, ","); got != "a,b" {
		t.Fatalf("unexpected pending ids %q", got)
	}
}

func TestProcessPendingWithNothingToDo(t *testing.T) {
	f := newFixture(t)
	_, err := f.extractor(false).ProcessPending(context.Background())
	if !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected resource exhausted, got %v", err)
	}
}

func TestProcessPendingContinuesAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.addRaw(t, "good.mp4", 250*time.Second)
	bad := filepath.Join(f.rawDir, "bad.mp4")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var progress []string
	ex := f.extractor(false)
	ex.SetProgress(func(src RawVideo, done, total int) {
		progress = append(progress, fmt.Sprintf("%s:%d/%d", src.ID, done, total))
	})
	batch, err := ex.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("ProcessPending returned error: %v", err)
	}
	if len(batch.Failed) != 1 || batch.Failed[0].ID != "bad" {
		t.Fatalf("expected bad source to fail, got %+v", batch.Failed)
	}
	if batch.Admitted() != 2 {
		t.Fatalf("expected two admitted segments, got %d", batch.Admitted())
	}
	if got := strings.Join(progress, ","); got != "good:1/2,good:2/2" {
		t.Fatalf("unexpected progress %q", got)
	}
}
