// Package compose draws captions onto a canvas so they stay legible on any
// background.
//
// A caption is rasterized once into an alpha mask, then stamped in three
// passes, each drawn over the previous one:
//
//  1. shadow: translucent stamps on a square grid of offsets in
//     [shadow, 2*shadow) on both axes, approximating a soft drop shadow
//  2. outline: opaque stamps at every offset within a Manhattan diamond of
//     radius outline+1, approximating a stroke
//  3. fill: one opaque stamp at the anchor
//
// Shadow and outline distances scale with font size. Rendering is fully
// deterministic.
package compose

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"

	"tools.zach/dev/captioner/internal/fontface"
)

// ///////////////////////////////////////////////
// Style
// ///////////////////////////////////////////////

// Style holds pass colors and stroke scaling.
type Style struct {
	// Fill is the caption body color.
	Fill color.NRGBA
	// Outline is the stroke color.
	Outline color.NRGBA
	// Shadow is the drop-shadow color, alpha included.
	Shadow color.NRGBA
	// ShadowDivisor scales the shadow offset as size/ShadowDivisor.
	ShadowDivisor int
	// OutlineDivisor scales the stroke width as size/OutlineDivisor.
	OutlineDivisor int
	// MinStroke is the smallest shadow offset and stroke width.
	MinStroke int
}

// DefaultStyle is white text with a black outline and a half-transparent
// black shadow.
func DefaultStyle() Style {
	return Style{
		Fill:           color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Outline:        color.NRGBA{A: 0xff},
		Shadow:         color.NRGBA{A: 0x80},
		ShadowDivisor:  30,
		OutlineDivisor: 25,
		MinStroke:      2,
	}
}

// ShadowOffset returns max(MinStroke, size/ShadowDivisor).
func (s Style) ShadowOffset(size int) int {
	return max(s.MinStroke, size/s.ShadowDivisor)
}

// OutlineSize returns max(MinStroke, size/OutlineDivisor).
func (s Style) OutlineSize(size int) int {
	return max(s.MinStroke, size/s.OutlineDivisor)
}

// ShadowOffsets returns the shadow stamp offsets for size, row-major.
func (s Style) ShadowOffsets(size int) []image.Point {
	o := s.ShadowOffset(size)
	pts := make([]image.Point, 0, o*o)
	for dy := o; dy < 2*o; dy++ {
		for dx := o; dx < 2*o; dx++ {
			pts = append(pts, image.Pt(dx, dy))
		}
	}
	return pts
}

// OutlineOffsets returns the outline stamp offsets for size: every point
// with |dx|+|dy| <= OutlineSize(size)+1, row-major.
func (s Style) OutlineOffsets(size int) []image.Point {
	r := s.OutlineSize(size) + 1
	pts := make([]image.Point, 0, 2*r*r+2*r+1)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if abs(dx)+abs(dy) <= r {
				pts = append(pts, image.Pt(dx, dy))
			}
		}
	}
	return pts
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ///////////////////////////////////////////////
// Compositor
// ///////////////////////////////////////////////

// Stats counts the stamps drawn by one [Compositor.Render] call.
type Stats struct {
	Shadow  int
	Outline int
	Fill    int
}

// Compositor renders captions with a fixed [Style]. It holds no per-render
// state and may be shared between goroutines; canvases may not.
type Compositor struct {
	style Style
}

// New returns a Compositor for style. Non-positive scaling fields take the
// defaults.
func New(style Style) *Compositor {
	d := DefaultStyle()
	if style.ShadowDivisor <= 0 {
		style.ShadowDivisor = d.ShadowDivisor
	}
	if style.OutlineDivisor <= 0 {
		style.OutlineDivisor = d.OutlineDivisor
	}
	if style.MinStroke <= 0 {
		style.MinStroke = d.MinStroke
	}
	return &Compositor{style: style}
}

// Style returns the effective style.
func (c *Compositor) Style() Style { return c.style }

// Render draws text onto canvas in place so that its ink box's top-left
// corner lands on anchor. size drives stroke scaling and should be the size
// face was created at. Stamps falling partly outside the canvas are clipped.
func (c *Compositor) Render(canvas *image.RGBA, text string, face font.Face, size int, anchor image.Point) Stats {
	mask := Mask(face, text)
	if mask == nil {
		return Stats{}
	}

	var st Stats
	stamp := func(col color.NRGBA, off image.Point) {
		r := mask.Rect.Add(anchor).Add(off)
		draw.DrawMask(canvas, r, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
	}

	for _, off := range c.style.ShadowOffsets(size) {
		stamp(c.style.Shadow, off)
		st.Shadow++
	}
	for _, off := range c.style.OutlineOffsets(size) {
		stamp(c.style.Outline, off)
		st.Outline++
	}
	stamp(c.style.Fill, image.Point{})
	st.Fill++
	return st
}

// Mask rasterizes text into an alpha mask sized to its ink box, with the
// box's top-left corner at the mask origin. It returns nil when text has no
// visible ink.
func Mask(face font.Face, text string) *image.Alpha {
	ink := fontface.InkBounds(face, text)
	if ink.Empty() {
		return nil
	}
	mask := image.NewAlpha(image.Rect(0, 0, ink.Dx(), ink.Dy()))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fontface.Dot(ink, image.Point{}),
	}
	d.DrawString(text)
	return mask
}
