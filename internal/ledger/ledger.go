package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Ledger is a newline-delimited, append-only record of processed source ids.
// Appends are serialized in-process by a mutex and across processes by a
// lock file next to the ledger.
type Ledger struct {
	path string
	lock *flock.Flock

	mu  sync.Mutex
	ids map[string]struct{}
}

// Open loads the ledger at path, creating its directory when needed. A missing
// file is treated as an empty ledger.
func Open(path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	l := &Ledger{
		path: path,
		lock: flock.New(path + ".lock"),
		ids:  make(map[string]struct{}),
	}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether id has been recorded.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of recorded ids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// IDs returns the recorded ids in sorted order.
func (l *Ledger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Record appends id unless it is already present. Records written by other
// processes since Open are honoured.
func (l *Ledger) Record(id string) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("ledger: invalid id %q", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return nil
	}

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("ledger: acquire lock: %w", err)
	}
	defer func() {
		_ = l.lock.Unlock()
	}()

	if err := l.reloadLocked(); err != nil {
		return err
	}
	if _, ok := l.ids[id]; ok {
		return nil
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open for append: %w", err)
	}
	if _, err := file.WriteString(id + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("ledger: append: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("ledger: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

func (l *Ledger) reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reloadLocked()
}

func (l *Ledger) reloadLocked() error {
	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ledger: open: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			l.ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ledger: read: %w", err)
	}
	return nil
}
