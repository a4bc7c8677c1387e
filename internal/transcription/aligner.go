package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services/whisperx"
)

// WordTimestamp is one recognized word with its time span in the narration.
type WordTimestamp struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Word is a recognizer-level word. Untimed words have nil bounds.
type Word struct {
	Text  string
	Start *time.Duration
	End   *time.Duration
}

// Segment groups recognized words as returned by the recognizer.
type Segment struct {
	Words []Word
}

// Recognizer produces word-aligned segments for an audio file.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) ([]Segment, error)
}

// Aligner runs a Recognizer off the caller's goroutine.
type Aligner struct {
	recognizer Recognizer
	logger     *slog.Logger
}

// NewAligner constructs an aligner around recognizer.
func NewAligner(recognizer Recognizer, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aligner{recognizer: recognizer, logger: logging.NewComponentLogger(logger, "transcription")}
}

// Task is an in-flight recognition.
type Task struct {
	done  chan struct{}
	words []WordTimestamp
}

// Start launches recognition of audioPath and returns immediately.
func (a *Aligner) Start(ctx context.Context, audioPath string) *Task {
	task := &Task{done: make(chan struct{})}
	go func() {
		defer close(task.done)
		task.words = a.run(ctx, audioPath)
	}()
	return task
}

// Wait blocks until recognition finishes and returns the words. It is safe
// to call more than once.
func (t *Task) Wait() []WordTimestamp {
	<-t.done
	return t.words
}

// Align is Start followed by Wait.
func (a *Aligner) Align(ctx context.Context, audioPath string) []WordTimestamp {
	return a.Start(ctx, audioPath).Wait()
}

func (a *Aligner) run(ctx context.Context, audioPath string) (words []WordTimestamp) {
	logger := logging.WithContext(ctx, a.logger)
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(logger, "transcription panicked; continuing without subtitles", "transcription_failed",
				logging.String("audio", audioPath),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldImpact, "render proceeds without subtitle events"),
				logging.String(logging.FieldErrorHint, "inspect recognizer installation"),
			)
			words = []WordTimestamp{}
		}
	}()

	if a.recognizer == nil {
		logging.WarnWithContext(logger, "no recognizer configured; continuing without subtitles", "transcription_failed",
			logging.String(logging.FieldImpact, "render proceeds without subtitle events"),
			logging.String(logging.FieldErrorHint, "configure a transcription backend"),
		)
		return []WordTimestamp{}
	}

	segments, err := a.recognizer.Recognize(ctx, audioPath)
	if err != nil {
		logging.WarnWithContext(logger, "transcription failed; continuing without subtitles", "transcription_failed",
			logging.String("audio", audioPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "render proceeds without subtitle events"),
			logging.String(logging.FieldErrorHint, "check uvx/whisperx availability and model download"),
		)
		return []WordTimestamp{}
	}

	words = Flatten(segments)
	if len(words) == 0 {
		logging.WarnWithContext(logger, "transcription returned no words", "transcription_empty",
			logging.String("audio", audioPath),
			logging.String(logging.FieldImpact, "render proceeds without subtitle events"),
			logging.String(logging.FieldErrorHint, "verify the narration contains speech"),
		)
		return words
	}
	logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.Int("words", len(words)),
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return words
}

// Flatten concatenates the words of every segment, dropping blank and
// untimed entries, and orders the result by start time. Words with
// end <= start are kept; the compositor floors their duration.
func Flatten(segments []Segment) []WordTimestamp {
	words := make([]WordTimestamp, 0)
	for _, segment := range segments {
		for _, word := range segment.Words {
			text := strings.TrimSpace(word.Text)
			if text == "" || word.Start == nil || word.End == nil {
				continue
			}
			words = append(words, WordTimestamp{Text: text, Start: *word.Start, End: *word.End})
		}
	}
	sort.SliceStable(words, func(i, j int) bool { return words[i].Start < words[j].Start })
	return words
}

// WhisperX adapts a whisperx.Service to the Recognizer interface.
type WhisperX struct {
	Service *whisperx.Service
}

// Recognize implements Recognizer.
func (w WhisperX) Recognize(ctx context.Context, audioPath string) ([]Segment, error) {
	raw, err := w.Service.Recognize(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(raw))
	for _, seg := range raw {
		converted := Segment{Words: make([]Word, 0, len(seg.Words))}
		for _, word := range seg.Words {
			item := Word{Text: word.Word}
			if word.Timed() {
				start := seconds(*word.Start)
				end := seconds(*word.End)
				item.Start = &start
				item.End = &end
			}
			converted.Words = append(converted.Words, item)
		}
		segments = append(segments, converted)
	}
	return segments, nil
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
