package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{"float trims zeros", slog.Float64Value(120.5), "120.5"},
		{"float rounds", slog.Float64Value(0.12345), "0.123"},
		{"whole float", slog.Float64Value(30), "30"},
		{"duration", slog.DurationValue(1500 * time.Microsecond), "2ms"},
		{"empty string quoted", slog.StringValue(""), `""`},
		{"plain string", slog.StringValue("seg.mp4"), "seg.mp4"},
		{"newline quoted", slog.StringValue("a\nb"), `"a\nb"`},
		{"error", slog.AnyValue(errors.New("boom")), "boom"},
		{"string slice", slog.AnyValue([]string{"a", "b"}), "a,b"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.value); got != tt.want {
			t.Fatalf("%s: formatValue = %q, want %q", tt.name, got, tt.want)
		}
	}
}
