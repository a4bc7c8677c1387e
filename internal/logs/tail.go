package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes        = 1024 * 1024
	defaultPollInterval = 250 * time.Millisecond
)

// Entry is one log record with its continuation lines.
type Entry []string

// String joins the entry lines with newlines.
func (e Entry) String() string {
	return strings.Join(e, "\n")
}

// Filter selects entries containing every term. An empty filter matches all.
type Filter struct {
	Terms []string
}

// Match reports whether entry contains all filter terms.
func (f Filter) Match(entry Entry) bool {
	if len(f.Terms) == 0 {
		return true
	}
	text := entry.String()
	for _, term := range f.Terms {
		if term != "" && !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// Last returns up to n matching entries from the end of path and the byte
// offset at which following should resume. A missing file yields no entries.
func Last(path string, n int, filter Filter) ([]Entry, int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	ring := make([]Entry, 0, max(n, 0))
	next := 0
	offset, err := scanEntries(file, func(entry Entry) {
		if n <= 0 || !filter.Match(entry) {
			return
		}
		if len(ring) < n {
			ring = append(ring, entry)
			return
		}
		ring[next] = entry
		next = (next + 1) % n
	})
	if err != nil {
		return nil, 0, err
	}

	ordered := make([]Entry, 0, len(ring))
	ordered = append(ordered, ring[next:]...)
	ordered = append(ordered, ring[:next]...)
	return ordered, offset, nil
}

// ReadFrom returns the matching entries written after offset together with
// the new offset. An offset past the end of the file means it was truncated
// or rotated, and reading restarts at the beginning.
func ReadFrom(path string, offset int64, filter Filter) ([]Entry, int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	var entries []Entry
	consumed, err := scanEntries(file, func(entry Entry) {
		if filter.Match(entry) {
			entries = append(entries, entry)
		}
	})
	if err != nil {
		return nil, offset, err
	}
	return entries, offset + consumed, nil
}

// Follow emits matching entries appended after offset until ctx is done.
// A poll of zero uses a 250ms interval.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, filter Filter, emit func(Entry)) error {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		entries, next, err := ReadFrom(path, offset, filter)
		if err != nil {
			return err
		}
		offset = next
		for _, entry := range entries {
			emit(entry)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// scanEntries groups complete lines from r into entries and returns the
// number of bytes consumed. A trailing line without a newline is left for the
// next read.
func scanEntries(r io.Reader, emit func(Entry)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var (
		consumed int64
		pending  Entry
	)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		if !strings.HasSuffix(line, "\n") {
			break
		}
		consumed += int64(len(line))
		text := strings.TrimRight(line, "\r\n")
		if len(text) > maxLineBytes {
			text = text[:maxLineBytes]
		}
		if isContinuation(text) && len(pending) > 0 {
			pending = append(pending, text)
		} else {
			if len(pending) > 0 {
				emit(pending)
			}
			pending = Entry{text}
		}
		if err != nil {
			break
		}
	}
	if len(pending) > 0 {
		emit(pending)
	}
	return consumed, nil
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}
