// Package fontface loads the caption font and hands out sized faces.
//
// Font resolution:
//  1. The configured TTF/OTF/WOFF2 file, parsed once per process and path.
//  2. When the path is empty, missing, or unparsable, the built-in 7x13
//     bitmap face from golang.org/x/image/font/basicfont. This is the one
//     recoverable failure in the render path: [Loader.Open] returns a usable
//     fallback [Font] together with an error wrapping [ErrFontLoad].
//
// Parsed fonts are shared process-wide. Faces are not safe for concurrent
// use, so each [Font] value keeps its own per-size face cache and must stay
// within a single render invocation.
package fontface

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	tdfont "github.com/tdewolff/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrFontLoad wraps every reason the configured font could not be used.
var ErrFontLoad = errors.New("font load failure")

// ///////////////////////////////////////////////
// Parsed Font Cache
// ///////////////////////////////////////////////

var (
	parsedMu sync.Mutex
	// parsed maps font paths to their parsed OpenType data. Failed parses
	// are not cached so a font fixed on disk is picked up on the next call.
	parsed = map[string]*opentype.Font{}
)

// parseFile reads and parses the font at path, converting WOFF2 to SFNT.
func parseFile(path string) (*opentype.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsed[path]; ok {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isWOFF2(path, data) {
		sfnt, err := tdfont.ToSFNT(data)
		if err != nil {
			return nil, fmt.Errorf("convert woff2 to sfnt: %w", err)
		}
		data = sfnt
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	parsed[path] = f
	return f, nil
}

// isWOFF2 checks whether a font file is WOFF2 by extension or magic bytes.
func isWOFF2(path string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(path), ".woff2") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "wOF2"
}

// ///////////////////////////////////////////////
// Loader
// ///////////////////////////////////////////////

// Loader opens the configured caption font.
type Loader struct {
	// path is the font file; empty selects the bitmap fallback directly.
	path string
}

// NewLoader returns a Loader for the font file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the configured font path.
func (l *Loader) Path() string { return l.path }

// Open returns a Font for one render invocation. It always returns a usable
// Font; a non-nil error wrapping [ErrFontLoad] means the bitmap fallback is
// in use and should be reported by the caller.
func (l *Loader) Open() (*Font, error) {
	if l.path == "" {
		return fallbackFont(), fmt.Errorf("%w: no font path configured", ErrFontLoad)
	}
	otf, err := parseFile(l.path)
	if err != nil {
		return fallbackFont(), fmt.Errorf("%w: %s: %v", ErrFontLoad, l.path, err)
	}
	return &Font{otf: otf, faces: map[int]font.Face{}}, nil
}

// FromOpenType wraps an already parsed font, bypassing the file cache.
func FromOpenType(otf *opentype.Font) *Font {
	return &Font{otf: otf, faces: map[int]font.Face{}}
}

// ///////////////////////////////////////////////
// Font
// ///////////////////////////////////////////////

// Font hands out faces by pixel size. A nil otf means the bitmap fallback,
// whose single face ignores the requested size.
type Font struct {
	otf   *opentype.Font
	faces map[int]font.Face
}

func fallbackFont() *Font { return &Font{} }

// BitmapFace returns the built-in fallback face.
func BitmapFace() font.Face { return basicfont.Face7x13 }

// Fallback reports whether this font is the built-in bitmap face.
func (f *Font) Fallback() bool { return f.otf == nil }

// Face returns the face for size, creating and caching it on first use.
func (f *Font) Face(size int) (font.Face, error) {
	if f.otf == nil {
		return BitmapFace(), nil
	}
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at %d: %w", size, err)
	}
	f.faces[size] = face
	return face, nil
}

// Measure returns the ink bounds of text at size, in whole pixels relative
// to a baseline origin of (0, 0).
func (f *Font) Measure(text string, size int) (image.Rectangle, error) {
	face, err := f.Face(size)
	if err != nil {
		return image.Rectangle{}, err
	}
	return InkBounds(face, text), nil
}

// Close releases every cached face.
func (f *Font) Close() error {
	var errs []error
	for size, face := range f.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.faces, size)
	}
	return errors.Join(errs...)
}

// InkBounds returns the pixel-aligned bounding box of the glyphs drawn for
// text with the dot at the origin. Fractional edges round outward.
func InkBounds(face font.Face, text string) image.Rectangle {
	b, _ := font.BoundString(face, text)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}

// Dot converts an ink-box top-left position into the baseline origin that
// places the ink exactly there.
func Dot(ink image.Rectangle, topLeft image.Point) fixed.Point26_6 {
	return fixed.P(topLeft.X-ink.Min.X, topLeft.Y-ink.Min.Y)
}
