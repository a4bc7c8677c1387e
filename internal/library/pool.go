package library

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const (
	stageName       = "library"
	segmentExt      = ".mp4"
	defaultMinBytes = 100 * 1024
)

// Inventory is a snapshot of the library contents.
type Inventory struct {
	Total      int
	Eligible   int
	Reserved   int
	Undersized int
	Bytes      int64
}

// Available returns segments that can be allocated right now.
func (i Inventory) Available() int {
	if n := i.Eligible - i.Reserved; n > 0 {
		return n
	}
	return 0
}

// Segment describes one file in the library.
type Segment struct {
	Path       string
	Size       int64
	ModTime    time.Time
	ReservedBy string
}

// Pool hands out library segments to jobs. Each job holds at most one
// reservation and a segment is reserved by at most one job. All state is
// guarded by a single mutex so concurrent Allocate calls never race on the
// directory scan.
type Pool struct {
	dir      string
	minBytes int64
	logger   *slog.Logger

	mu           sync.Mutex
	rng          *rand.Rand
	reservations map[string]string
}

// Option configures a Pool.
type Option func(*Pool)

// WithMinBytes sets the size floor below which segments are never allocated.
func WithMinBytes(n int64) Option {
	return func(p *Pool) {
		if n > 0 {
			p.minBytes = n
		}
	}
}

// WithRand replaces the random source used for selection.
func WithRand(r *rand.Rand) Option {
	return func(p *Pool) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// NewPool manages the segments stored in dir.
func NewPool(dir string, opts ...Option) *Pool {
	p := &Pool{
		dir:          dir,
		minBytes:     defaultMinBytes,
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		reservations: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, stageName)
	return p
}

// Dir returns the library directory.
func (p *Pool) Dir() string {
	return p.dir
}

// Allocate reserves a random eligible segment for jobID and returns its path.
// Calling Allocate again for the same job returns the same segment while it
// still exists.
func (p *Pool) Allocate(jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", services.Wrap(services.ErrValidation, stageName, "allocate", "empty job id", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if path, ok := p.reservations[jobID]; ok {
		if fileutil.Exists(path) {
			return path, nil
		}
		delete(p.reservations, jobID)
		logging.WarnWithContext(p.logger, "reserved segment disappeared", "reservation_lost",
			logging.String(logging.FieldJobID, jobID),
			logging.String("segment", path),
			logging.String(logging.FieldImpact, "a new segment will be allocated"),
		)
	}

	segments, err := p.scanLocked()
	if err != nil {
		return "", err
	}
	candidates := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Size >= p.minBytes && seg.ReservedBy == "" {
			candidates = append(candidates, seg.Path)
		}
	}
	if len(candidates) == 0 {
		return "", services.Wrap(services.ErrResourceExhausted, stageName, "allocate",
			fmt.Sprintf("no unreserved segments of at least %d bytes in %s", p.minBytes, p.dir), nil)
	}

	chosen := candidates[p.rng.IntN(len(candidates))]
	p.reservations[jobID] = chosen
	p.logger.Info("segment allocated",
		logging.String(logging.FieldJobID, jobID),
		logging.String("segment", chosen),
		logging.Int("candidates", len(candidates)),
	)
	return chosen, nil
}

// Consume deletes the segment reserved by jobID and clears the reservation.
// The reservation survives a failed delete. It is a no-op when the job holds
// no reservation.
func (p *Pool) Consume(jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, ok := p.reservations[jobID]
	if !ok {
		p.logger.Debug("consume without reservation", logging.String(logging.FieldJobID, jobID))
		return nil
	}
	if err := fileutil.RemoveIfExists(path); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "consume", path, err)
	}
	delete(p.reservations, jobID)
	p.logger.Info("segment consumed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("segment", path),
	)
	return nil
}

// Release drops the reservation held by jobID without deleting the segment,
// returning it to the pool. It reports whether a reservation existed.
func (p *Pool) Release(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	path, ok := p.reservations[jobID]
	if !ok {
		return false
	}
	delete(p.reservations, jobID)
	p.logger.Info("segment released",
		logging.String(logging.FieldJobID, jobID),
		logging.String("segment", path),
	)
	return true
}

// Restore re-establishes a reservation recorded by an earlier process so a
// rendered job can still be consumed or released after a restart.
func (p *Pool) Restore(jobID, path string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return services.Wrap(services.ErrValidation, stageName, "restore", "empty job id", nil)
	}
	path = filepath.Clean(path)
	if filepath.Dir(path) != filepath.Clean(p.dir) {
		return services.Wrap(services.ErrValidation, stageName, "restore", path+" is outside "+p.dir, nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.reservations[jobID]; ok {
		if existing == path {
			return nil
		}
		return services.Wrap(services.ErrValidation, stageName, "restore",
			fmt.Sprintf("job %s already holds %s", jobID, existing), nil)
	}
	for other, reserved := range p.reservations {
		if reserved == path {
			return services.Wrap(services.ErrValidation, stageName, "restore",
				fmt.Sprintf("%s is reserved by job %s", path, other), nil)
		}
	}
	if !fileutil.Exists(path) {
		return services.Wrap(services.ErrNotFound, stageName, "restore", path, nil)
	}
	p.reservations[jobID] = path
	p.logger.Info("segment reservation restored",
		logging.String(logging.FieldJobID, jobID),
		logging.String("segment", path),
	)
	return nil
}

// Discard deletes an unreserved library segment, for example one that fails
// re-validation. Reserved segments are refused with ErrValidation.
func (p *Pool) Discard(path string) error {
	path = filepath.Clean(path)
	if filepath.Dir(path) != filepath.Clean(p.dir) {
		return services.Wrap(services.ErrValidation, stageName, "discard", path+" is outside "+p.dir, nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for job, reserved := range p.reservations {
		if reserved == path {
			return services.Wrap(services.ErrValidation, stageName, "discard",
				fmt.Sprintf("%s is reserved by job %s", path, job), nil)
		}
	}
	if err := fileutil.RemoveIfExists(path); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "discard", path, err)
	}
	p.logger.Info("segment discarded", logging.String("segment", path))
	return nil
}

// Reservation returns the segment currently reserved by jobID.
func (p *Pool) Reservation(jobID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path, ok := p.reservations[jobID]
	return path, ok
}

// Segments lists the library contents, annotated with reservations.
func (p *Pool) Segments() ([]Segment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scanLocked()
}

// Inventory summarizes the library contents.
func (p *Pool) Inventory() (Inventory, error) {
	segments, err := p.Segments()
	if err != nil {
		return Inventory{}, err
	}
	var inv Inventory
	for _, seg := range segments {
		inv.Total++
		inv.Bytes += seg.Size
		if seg.Size < p.minBytes {
			inv.Undersized++
			continue
		}
		inv.Eligible++
		if seg.ReservedBy != "" {
			inv.Reserved++
		}
	}
	return inv, nil
}

// BelowWatermark reports whether fewer than watermark segments are available for allocation.
func (p *Pool) BelowWatermark(watermark int) (bool, Inventory, error) {
	inv, err := p.Inventory()
	if err != nil {
		return false, Inventory{}, err
	}
	return inv.Available() < watermark, inv, nil
}

func (p *Pool) scanLocked() ([]Segment, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, stageName, "scan", "segments directory does not exist: "+p.dir, err)
		}
		return nil, services.Wrap(services.ErrTransient, stageName, "scan", p.dir, err)
	}

	reservedBy := make(map[string]string, len(p.reservations))
	for job, path := range p.reservations {
		reservedBy[path] = job
	}

	segments := make([]Segment, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), segmentExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		path := filepath.Join(p.dir, name)
		segments = append(segments, Segment{
			Path:       path,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			ReservedBy: reservedBy[path],
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Path < segments[j].Path })
	return segments, nil
}
