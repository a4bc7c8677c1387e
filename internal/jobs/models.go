package jobs

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusAllocated Status = "allocated"
	StatusRendering Status = "rendering"
	StatusRendered  Status = "rendered"
	StatusConsumed  Status = "consumed"
	StatusFailed    Status = "failed"
	StatusReleased  Status = "released"
)

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusAllocated, StatusRendering, StatusRendered, StatusConsumed, StatusFailed, StatusReleased}
}

// ParseStatus validates a user-supplied status name.
func ParseStatus(value string) (Status, bool) {
	for _, status := range AllStatuses() {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConsumed, StatusFailed, StatusReleased:
		return true
	default:
		return false
	}
}

// HoldsSegment reports whether a job in this status still owns a library segment.
func (s Status) HoldsSegment() bool {
	switch s {
	case StatusAllocated, StatusRendering, StatusRendered:
		return true
	default:
		return false
	}
}

// transitions lists the statuses each status may be entered from.
var transitions = map[Status][]Status{
	StatusRendering: {StatusAllocated},
	StatusRendered:  {StatusRendering},
	StatusConsumed:  {StatusRendered},
	StatusFailed:    {StatusAllocated, StatusRendering, StatusRendered},
	StatusReleased:  {StatusAllocated, StatusRendering, StatusRendered, StatusFailed},
}

// Job is one production attempt.
type Job struct {
	ID              string
	Status          Status
	SegmentPath     string
	AudioPath       string
	OutputPath      string
	Gender          string
	SessionDir      string
	OutputBytes     int64
	Duration        time.Duration
	BackgroundStart time.Duration
	SpeedFactor     float64
	SubtitleEvents  int
	ErrorKind       string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RenderInfo is recorded when a render succeeds.
type RenderInfo struct {
	OutputPath      string
	OutputBytes     int64
	Duration        time.Duration
	BackgroundStart time.Duration
	SpeedFactor     float64
	SubtitleEvents  int
}
