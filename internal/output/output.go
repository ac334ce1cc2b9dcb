// Package output encodes rendered canvases and writes them to the output
// directory as <dir>/<prefix><slug>[_<suffix>].jpg.
//
// The slug is the first N characters of the request prompt with diacritics
// folded, spaces turned into underscores, and path-hostile characters
// dropped. Because slugs collide for prompts that share a prefix, a suffix
// can disambiguate them:
//
//   - "none": no suffix; identical slugs overwrite each other
//   - "hash": 8 hex chars of SHA-256 over the request key, so repeating a
//     request rewrites the same file and different requests never collide
//   - "ulid": a fresh ULID per write
package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tools.zach/dev/captioner/internal/atomicfile"
)

// ErrWrite wraps every encoding and persistence failure.
var ErrWrite = errors.New("encode or write failed")

// Disambiguation modes.
const (
	DisambiguateNone = "none"
	DisambiguateHash = "hash"
	DisambiguateULID = "ulid"
)

// ///////////////////////////////////////////////
// Slug
// ///////////////////////////////////////////////

// Slug derives a file-name-safe stem from the first n characters of prompt.
// Spaces become underscores; accents are folded to their base letters;
// anything that is not a letter, digit, '-' or '_' is dropped. n <= 0 keeps
// the whole prompt. An empty result becomes "untitled".
func Slug(prompt string, n int) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), prompt)
	if err != nil {
		folded = prompt
	}
	r := []rune(folded)
	if n > 0 && len(r) > n {
		r = r[:n]
	}
	var b strings.Builder
	for _, c := range r {
		switch {
		case c == ' ':
			b.WriteRune('_')
		case c == '-' || c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c):
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// RequestKey joins the parts identifying a request with NUL separators.
// It is the key [Writer.Persist] expects.
func RequestKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// HashKey returns the first 8 hex characters of SHA-256 over
// [RequestKey] of parts. It is the suffix "hash" mode appends.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(RequestKey(parts...)))
	return hex.EncodeToString(sum[:4])
}

// ///////////////////////////////////////////////
// Writer
// ///////////////////////////////////////////////

// Options configures a [Writer].
type Options struct {
	// Dir is the output directory, created on first write.
	Dir string
	// Prefix is prepended to every slug.
	Prefix string
	// SlugLength is how many prompt characters feed the slug.
	SlugLength int
	// Quality is the JPEG quality, 1-100.
	Quality int
	// Disambiguate is one of "none", "hash", or "ulid".
	Disambiguate string
}

// Result is the persisted render.
type Result struct {
	// Path is where the JPEG was written.
	Path string
	// Data is the encoded JPEG.
	Data []byte
}

// Writer encodes canvases as JPEG and writes them atomically.
type Writer struct {
	opts Options
}

// NewWriter returns a Writer for opts. Quality outside 1-100 becomes 95 and
// an unknown disambiguation mode becomes "none".
func NewWriter(opts Options) *Writer {
	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = 95
	}
	switch opts.Disambiguate {
	case DisambiguateNone, DisambiguateHash, DisambiguateULID:
	default:
		opts.Disambiguate = DisambiguateNone
	}
	return &Writer{opts: opts}
}

// FileName returns the output file name for a prompt and request key.
func (w *Writer) FileName(prompt, key string) string {
	name := w.opts.Prefix + Slug(prompt, w.opts.SlugLength)
	switch w.opts.Disambiguate {
	case DisambiguateHash:
		name += "_" + HashKey(key)
	case DisambiguateULID:
		name += "_" + strings.ToLower(ulid.Make().String())
	}
	return name + ".jpg"
}

// Persist encodes img and writes it under the output directory. key is the
// unhashed [RequestKey] used for hash disambiguation. Nothing is left on disk
// when it fails.
func (w *Writer) Persist(img image.Image, prompt, key string) (*Result, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(w.opts.Quality)); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", ErrWrite, err)
	}
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", ErrWrite, err)
	}
	path := filepath.Join(w.opts.Dir, w.FileName(prompt, key))
	if err := atomicfile.Write(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return &Result{Path: path, Data: buf.Bytes()}, nil
}
