package subtitles

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/transcription"
)

// Variant selects an outline colour from the palette.
type Variant string

const (
	VariantMale    Variant = "male"
	VariantFemale  Variant = "female"
	VariantNeutral Variant = "neutral"
)

// DefaultMinVisible is the shortest time a word stays on screen.
const DefaultMinVisible = 100 * time.Millisecond

// ParseVariant maps a narrator gender tag to a style variant. Unknown tags
// fall back to neutral.
func ParseVariant(gender string) Variant {
	switch Variant(strings.ToLower(strings.TrimSpace(gender))) {
	case VariantMale:
		return VariantMale
	case VariantFemale:
		return VariantFemale
	default:
		return VariantNeutral
	}
}

// Event is one word shown on screen.
type Event struct {
	Text     string
	Start    time.Duration
	Duration time.Duration
	Variant  Variant
}

// End returns the time the event disappears.
func (e Event) End() time.Duration {
	return e.Start + e.Duration
}

var upper = cases.Upper(language.Und)

// Compose converts words into subtitle events, preserving input order.
func Compose(words []transcription.WordTimestamp, gender string, minVisible time.Duration) []Event {
	if minVisible <= 0 {
		minVisible = DefaultMinVisible
	}
	variant := ParseVariant(gender)
	events := make([]Event, 0, len(words))
	for _, word := range words {
		text := upper.String(strings.TrimSpace(word.Text))
		if text == "" {
			continue
		}
		duration := word.End - word.Start
		if duration < minVisible {
			duration = minVisible
		}
		events = append(events, Event{
			Text:     text,
			Start:    word.Start,
			Duration: duration,
			Variant:  variant,
		})
	}
	return events
}

// Palette maps variants to #RRGGBB outline colours.
type Palette map[Variant]string

// DefaultPalette returns the stock outline colours.
func DefaultPalette() Palette {
	return Palette{
		VariantMale:    "#FF4500",
		VariantFemale:  "#49B6C2",
		VariantNeutral: "#000000",
	}
}

// PaletteFromMap builds a palette from a gender-keyed colour map, filling
// missing entries from the defaults.
func PaletteFromMap(colors map[string]string) Palette {
	palette := DefaultPalette()
	for key, value := range colors {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch Variant(strings.ToLower(strings.TrimSpace(key))) {
		case VariantMale, VariantFemale, VariantNeutral:
			palette[Variant(strings.ToLower(strings.TrimSpace(key)))] = value
		}
	}
	return palette
}

// Color returns the outline colour for variant, falling back to neutral.
func (p Palette) Color(variant Variant) string {
	if color, ok := p[variant]; ok && color != "" {
		return color
	}
	if color, ok := p[VariantNeutral]; ok && color != "" {
		return color
	}
	return DefaultPalette()[VariantNeutral]
}
