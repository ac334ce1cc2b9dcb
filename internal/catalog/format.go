package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCaptionCount is returned when the number of captions does not match the
// number of caption slots a template format requires.
var ErrCaptionCount = errors.New("caption count mismatch")

// ///////////////////////////////////////////////
// Format
// ///////////////////////////////////////////////

// Format is the caption-slot layout a template expects.
type Format int

const (
	// FormatSingleCaption is one caption drawn near the bottom edge.
	FormatSingleCaption Format = iota + 1
	// FormatTopBottom is a setup line at the top and a punchline at the bottom.
	FormatTopBottom
	// FormatTwoPanels is two stacked panels with one caption each.
	FormatTwoPanels
	// FormatThreePanels is three stacked panels with one caption each.
	FormatThreePanels
)

// formatNames maps each format to its catalog spelling.
var formatNames = map[Format]string{
	FormatSingleCaption: "single_caption",
	FormatTopBottom:     "top_bottom",
	FormatTwoPanels:     "two_panels",
	FormatThreePanels:   "three_panels",
}

// Formats lists every known format in catalog order.
func Formats() []Format {
	return []Format{FormatSingleCaption, FormatTopBottom, FormatTwoPanels, FormatThreePanels}
}

// ParseFormat converts a catalog format string into a [Format].
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown template format %q: must be single_caption, top_bottom, two_panels, or three_panels", s)
}

// String returns the catalog spelling of f.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Slots returns the number of captions the format requires.
func (f Format) Slots() int {
	switch f {
	case FormatSingleCaption:
		return 1
	case FormatTopBottom, FormatTwoPanels:
		return 2
	case FormatThreePanels:
		return 3
	default:
		return 0
	}
}

// MarshalJSON encodes f as its catalog string.
func (f Format) MarshalJSON() ([]byte, error) {
	name, ok := formatNames[f]
	if !ok {
		return nil, fmt.Errorf("cannot encode unknown format %d", int(f))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a catalog format string, rejecting unknown values.
func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("format must be a string: %w", err)
	}
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ValidateCaptions checks the caption-count contract for format.
func ValidateCaptions(format Format, captions []string) error {
	want := format.Slots()
	if want == 0 {
		return fmt.Errorf("%w: unknown format %s", ErrCaptionCount, format)
	}
	if len(captions) != want {
		return fmt.Errorf("%w: format %s requires %d caption(s), got %d", ErrCaptionCount, format, want, len(captions))
	}
	return nil
}
