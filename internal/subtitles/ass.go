package subtitles

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Look holds the visual parameters of the subtitle track.
type Look struct {
	Width        int
	Height       int
	Font         string
	FontSize     int
	Color        string
	OutlineWidth int
	// Position is the vertical anchor as a fraction of Height.
	Position float64
	Palette  Palette
}

// DefaultLook matches the 1080x1920 output.
func DefaultLook() Look {
	return Look{
		Width:        1080,
		Height:       1920,
		Font:         "Anton",
		FontSize:     138,
		Color:        "#FFFFFF",
		OutlineWidth: 7,
		Position:     0.4,
		Palette:      DefaultPalette(),
	}
}

// RenderASS serializes events to an ASS script.
func RenderASS(events []Event, look Look) string {
	if look.Palette == nil {
		look.Palette = DefaultPalette()
	}
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", look.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", look.Height)
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")

	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	margin := look.Width / 20
	primary := assColor(look.Color)
	for _, variant := range styleVariants(events) {
		outline := assColor(look.Palette.Color(variant))
		fmt.Fprintf(&b, "Style: %s,%s,%d,%s,%s,%s,&H00000000,1,0,0,0,100,100,0,0,1,%d,0,8,%d,%d,0,1\n",
			styleName(variant), look.Font, look.FontSize, primary, primary, outline, look.OutlineWidth, margin, margin)
	}

	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	x := look.Width / 2
	y := int(float64(look.Height) * look.Position)
	for _, event := range events {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,{\\pos(%d,%d)}%s\n",
			assTime(event.Start), assTime(event.End()), styleName(event.Variant), x, y, sanitizeASS(event.Text))
	}
	return b.String()
}

// WriteASS renders events to path.
func WriteASS(path string, events []Event, look Look) error {
	if err := os.WriteFile(path, []byte(RenderASS(events, look)), 0o644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}

func styleVariants(events []Event) []Variant {
	seen := map[Variant]bool{VariantNeutral: true}
	for _, event := range events {
		seen[event.Variant] = true
	}
	variants := make([]Variant, 0, len(seen))
	for variant := range seen {
		variants = append(variants, variant)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	return variants
}

func styleName(variant Variant) string {
	if variant == "" {
		variant = VariantNeutral
	}
	return "Word" + strings.ToUpper(string(variant[:1])) + string(variant[1:])
}

// assColor converts #RRGGBB to the &HAABBGGRR form ASS expects.
func assColor(hex string) string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return "&H00FFFFFF"
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "&H00FFFFFF"
	}
	hex = strings.ToUpper(hex)
	return "&H00" + hex[4:6] + hex[2:4] + hex[0:2]
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

// ASS has no escape for a backslash, so it is swapped for the reverse solidus
// operator, which libass draws without reading an override tag.
func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\u29F5")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
