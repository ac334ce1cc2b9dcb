// Package assets locates template images on disk and decodes them into the
// canonical canvas representation used by the renderer: an opaque
// [image.RGBA] whose alpha channel is always 0xff.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	// ErrAssetNotFound is returned when no file exists for a template id
	// under any of the probed extensions.
	ErrAssetNotFound = errors.New("template asset not found")
	// ErrDecode is returned when a file exists but cannot be decoded or
	// normalized.
	ErrDecode = errors.New("image decode failed")
)

// DefaultExtensions is the probe order used when none is configured.
var DefaultExtensions = []string{"png", "jpg", "jpeg"}

// Resolver finds and loads template images from a single asset directory.
type Resolver struct {
	// dir is the asset directory probed for <id>.<ext>.
	dir string
	// exts is the extension probe order, without leading dots.
	exts []string
	// maxDim bounds the longer image side after loading; 0 disables scaling.
	maxDim int
}

// NewResolver returns a Resolver probing dir for the given extensions in
// order. Leading dots on extensions are ignored.
func NewResolver(dir string, exts []string, maxDim int) *Resolver {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	clean := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e != "" {
			clean = append(clean, e)
		}
	}
	return &Resolver{dir: dir, exts: clean, maxDim: maxDim}
}

// Locate returns the path of the first existing <dir>/<id>.<ext> in probe
// order. Ids that could escape the asset directory never match.
func (r *Resolver) Locate(id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%w: invalid template id %q", ErrAssetNotFound, id)
	}
	for _, ext := range r.exts {
		path := filepath.Join(r.dir, id+"."+ext)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %q in %s (tried %s)", ErrAssetNotFound, id, r.dir, strings.Join(r.exts, ", "))
}

// Load reads the file at path once, decodes it honoring EXIF orientation,
// normalizes it to opaque RGB, and applies the configured downscale.
func (r *Resolver) Load(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDecode, path, err)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if r.maxDim > 0 {
		b := src.Bounds()
		if b.Dx() > r.maxDim || b.Dy() > r.maxDim {
			src = imaging.Fit(src, r.maxDim, r.maxDim, imaging.Lanczos)
		}
	}
	canvas, err := Normalize(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return canvas, nil
}

// Normalize converts any decoded image into an opaque RGBA canvas anchored
// at the origin. Color channels are copied unpremultiplied and alpha is
// dropped, so palette, grayscale, and translucent sources all end up as
// plain RGB. The result never aliases src.
func Normalize(src image.Image) (*image.RGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil image", ErrDecode)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	nrgba := imaging.Clone(src)
	for i := 3; i < len(nrgba.Pix); i += 4 {
		nrgba.Pix[i] = 0xff
	}
	// With every alpha at 0xff the NRGBA and RGBA byte layouts coincide.
	return &image.RGBA{Pix: nrgba.Pix, Stride: nrgba.Stride, Rect: nrgba.Rect}, nil
}

// IsOpaqueRGB reports whether every pixel of img is fully opaque.
func IsOpaqueRGB(img *image.RGBA) bool {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, y):]
		for x := 0; x < img.Rect.Dx(); x++ {
			if row[x*4+3] != 0xff {
				return false
			}
		}
	}
	return true
}

// validID rejects ids that are empty or could traverse out of the asset dir.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}
