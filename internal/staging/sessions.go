package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/logging"
)

// SessionLayout is the time format used for session directory names.
const SessionLayout = "20060102_150405"

var sessionPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// Session is one run's working directory.
type Session struct {
	Name string
	Path string
}

// NewSession creates root/<timestamp> for now.
func NewSession(root string, now time.Time) (Session, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return Session{}, fmt.Errorf("sessions directory not configured")
	}
	name := now.Format(SessionLayout)
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Session{}, fmt.Errorf("create session %s: %w", name, err)
	}
	return Session{Name: name, Path: path}, nil
}

// StoryDir creates and returns the working folder for jobID.
func (s Session) StoryDir(jobID string) (string, error) {
	dir := filepath.Join(s.Path, "story_"+sanitizeID(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create story dir: %w", err)
	}
	return dir, nil
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// CleanResult contains the outcome of a session cleanup.
type CleanResult struct {
	Kept    []string
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanOld keeps the newest keep session directories under root and removes
// the rest. Directories not named like a session are never touched.
func CleanOld(root string, keep int, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if keep < 0 {
		keep = 0
	}

	sessions, err := ListSessions(root)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		return result
	}

	for i, session := range sessions {
		if i < keep {
			result.Kept = append(result.Kept, session.Path)
			continue
		}
		if err := os.RemoveAll(session.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: session.Path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove old session directory",
					logging.String("path", session.Path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "session_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check sessions_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, session.Path)
		if logger != nil {
			logger.Info("removed old session directory",
				logging.String("path", session.Path),
				logging.String(logging.FieldEventType, "session_cleanup"),
			)
		}
	}
	return result
}

// ListSessions returns session directories newest first.
func ListSessions(root string) ([]Session, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []Session
	for _, entry := range entries {
		if !entry.IsDir() || !sessionPattern.MatchString(entry.Name()) {
			continue
		}
		sessions = append(sessions, Session{Name: entry.Name(), Path: filepath.Join(root, entry.Name())})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name > sessions[j].Name })
	return sessions, nil
}

// DirInfo contains metadata about a session directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Describe returns size and modification time for every session, newest first.
func Describe(root string) ([]DirInfo, error) {
	sessions, err := ListSessions(root)
	if err != nil {
		return nil, err
	}
	infos := make([]DirInfo, 0, len(sessions))
	for _, session := range sessions {
		info, err := os.Stat(session.Path)
		if err != nil {
			continue
		}
		size, _ := dirSize(session.Path)
		infos = append(infos, DirInfo{
			Name:    session.Name,
			Path:    session.Path,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return infos, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
