package jobs

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const jobColumns = "id, status, segment_path, audio_path, output_path, gender, session_dir, output_bytes, duration_ms, background_start_ms, speed_factor, subtitle_events, error_kind, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		statusStr       string
		segmentPath     sql.NullString
		audioPath       sql.NullString
		outputPath      sql.NullString
		gender          sql.NullString
		sessionDir      sql.NullString
		outputBytes     sql.NullInt64
		durationMS      sql.NullInt64
		backgroundStart sql.NullInt64
		speedFactor     sql.NullFloat64
		subtitleEvents  sql.NullInt64
		errorKind       sql.NullString
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&statusStr,
		&segmentPath,
		&audioPath,
		&outputPath,
		&gender,
		&sessionDir,
		&outputBytes,
		&durationMS,
		&backgroundStart,
		&speedFactor,
		&subtitleEvents,
		&errorKind,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Status:          Status(statusStr),
		SegmentPath:     segmentPath.String,
		AudioPath:       audioPath.String,
		OutputPath:      outputPath.String,
		Gender:          gender.String,
		SessionDir:      sessionDir.String,
		OutputBytes:     outputBytes.Int64,
		Duration:        time.Duration(durationMS.Int64) * time.Millisecond,
		BackgroundStart: time.Duration(backgroundStart.Int64) * time.Millisecond,
		SpeedFactor:     speedFactor.Float64,
		SubtitleEvents:  int(subtitleEvents.Int64),
		ErrorKind:       errorKind.String,
		ErrorMessage:    errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

// timeLayout keeps a fixed fraction width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
