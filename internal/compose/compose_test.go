// compose_test.go tests pass offsets, [Compositor.Render] pixel output on a
// flat background, determinism, clipping, and [ParseHexColor].

package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func newFace(t *testing.T, size int) font.Face {
	t.Helper()
	otf, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("parse gofont: %v", err)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		t.Fatalf("new face: %v", err)
	}
	t.Cleanup(func() { face.Close() })
	return face
}

func grayCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{128, 128, 128, 255}), image.Point{}, draw.Src)
	return img
}

// ///////////////////////////////////////////////
// Offsets
// ///////////////////////////////////////////////

func TestStrokeScaling(t *testing.T) {
	s := DefaultStyle()
	tests := []struct {
		size, shadow, outline int
	}{
		{20, 2, 2},
		{40, 2, 2},
		{75, 2, 3},
		{96, 3, 3},
		{150, 5, 6},
	}
	for _, tt := range tests {
		if got := s.ShadowOffset(tt.size); got != tt.shadow {
			t.Errorf("ShadowOffset(%d) = %d, want %d", tt.size, got, tt.shadow)
		}
		if got := s.OutlineSize(tt.size); got != tt.outline {
			t.Errorf("OutlineSize(%d) = %d, want %d", tt.size, got, tt.outline)
		}
	}
}

func TestShadowOffsets(t *testing.T) {
	s := DefaultStyle()
	pts := s.ShadowOffsets(96) // offset 3 -> [3, 6)
	if len(pts) != 9 {
		t.Fatalf("len = %d, want 9", len(pts))
	}
	for _, p := range pts {
		if p.X < 3 || p.X >= 6 || p.Y < 3 || p.Y >= 6 {
			t.Errorf("offset %v outside [3,6)", p)
		}
	}
}

func TestOutlineOffsetsDiamond(t *testing.T) {
	s := DefaultStyle()
	pts := s.OutlineOffsets(40) // outline 2 -> radius 3
	// A Manhattan diamond of radius r holds 2r^2+2r+1 points.
	if len(pts) != 25 {
		t.Fatalf("len = %d, want 25", len(pts))
	}
	seen := map[image.Point]bool{}
	for _, p := range pts {
		if abs(p.X)+abs(p.Y) > 3 {
			t.Errorf("offset %v outside diamond", p)
		}
		if seen[p] {
			t.Errorf("duplicate offset %v", p)
		}
		seen[p] = true
	}
	for _, corner := range []image.Point{{3, 0}, {-3, 0}, {0, 3}, {0, -3}} {
		if !seen[corner] {
			t.Errorf("missing diamond tip %v", corner)
		}
	}
}

// ///////////////////////////////////////////////
// Render
// ///////////////////////////////////////////////

func TestRenderPasses(t *testing.T) {
	const size = 60
	face := newFace(t, size)
	canvas := grayCanvas(400, 200)
	c := New(DefaultStyle())

	anchor := image.Pt(40, 60)
	st := c.Render(canvas, "HI", face, size, anchor)
	if st.Fill != 1 || st.Outline != 25 || st.Shadow != 4 {
		t.Errorf("stats = %+v, want fill 1 outline 25 shadow 4", st)
	}

	mask := Mask(face, "HI")
	var white, black int
	for y := 0; y < mask.Rect.Dy(); y++ {
		for x := 0; x < mask.Rect.Dx(); x++ {
			px := canvas.RGBAAt(anchor.X+x, anchor.Y+y)
			if mask.AlphaAt(x, y).A == 0xff && px != (color.RGBA{255, 255, 255, 255}) {
				t.Fatalf("solid glyph pixel (%d,%d) = %v, want white", x, y, px)
			}
			switch px {
			case color.RGBA{255, 255, 255, 255}:
				white++
			case color.RGBA{0, 0, 0, 255}:
				black++
			}
		}
	}
	if white == 0 || black == 0 {
		t.Errorf("white=%d black=%d, want both fill and outline visible", white, black)
	}

	// Left of the ink box within the stroke radius is outline black.
	if px := canvas.RGBAAt(anchor.X-1, anchor.Y+mask.Rect.Dy()/2); px != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("outline pixel = %v, want black", px)
	}
	// Far away pixels are untouched.
	if px := canvas.RGBAAt(399, 0); px != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("background pixel = %v, want untouched gray", px)
	}
	for i := 3; i < len(canvas.Pix); i += 4 {
		if canvas.Pix[i] != 0xff {
			t.Fatal("canvas lost opacity")
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	face := newFace(t, 48)
	c := New(DefaultStyle())

	a := grayCanvas(320, 120)
	b := grayCanvas(320, 120)
	c.Render(a, "Friday deploy", face, 48, image.Pt(10, 30))
	c.Render(b, "Friday deploy", face, 48, image.Pt(10, 30))
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical renders produced different pixels")
	}
}

func TestRenderClipsAtEdges(t *testing.T) {
	face := newFace(t, 40)
	c := New(DefaultStyle())
	canvas := grayCanvas(50, 30)
	// Must not panic when the caption hangs off every edge.
	c.Render(canvas, "overflowing caption", face, 40, image.Pt(-20, -10))
	c.Render(canvas, "overflowing caption", face, 40, image.Pt(45, 25))
}

func TestRenderEmptyText(t *testing.T) {
	face := newFace(t, 40)
	canvas := grayCanvas(20, 20)
	before := bytes.Clone(canvas.Pix)
	st := New(DefaultStyle()).Render(canvas, "", face, 40, image.Pt(0, 0))
	if st != (Stats{}) {
		t.Errorf("stats = %+v, want zero", st)
	}
	if !bytes.Equal(before, canvas.Pix) {
		t.Error("empty caption changed the canvas")
	}
}

func TestRenderBitmapFace(t *testing.T) {
	canvas := grayCanvas(120, 40)
	st := New(DefaultStyle()).Render(canvas, "fallback", basicfont.Face7x13, 40, image.Pt(5, 10))
	if st.Fill != 1 {
		t.Errorf("stats = %+v", st)
	}
	var white int
	for y := 0; y < 40; y++ {
		for x := 0; x < 120; x++ {
			if canvas.RGBAAt(x, y) == (color.RGBA{255, 255, 255, 255}) {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("bitmap caption left no fill pixels")
	}
}

// ///////////////////////////////////////////////
// Colors
// ///////////////////////////////////////////////

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input string
		want  color.NRGBA
	}{
		{"#FFFFFF", color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 255}},
		{"#000000", color.NRGBA{A: 255}},
		{"DA7756", color.NRGBA{R: 0xDA, G: 0x77, B: 0x56, A: 255}},
		{"#00000080", color.NRGBA{A: 0x80}},
	}
	for _, tt := range tests {
		c, err := ParseHexColor(tt.input)
		if err != nil {
			t.Errorf("ParseHexColor(%q) error: %v", tt.input, err)
			continue
		}
		if c != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.input, c, tt.want)
		}
	}

	for _, s := range []string{"#FFF", "#GGGGGG", "", "12345", "+12345"} {
		if _, err := ParseHexColor(s); err == nil {
			t.Errorf("ParseHexColor(%q) expected error", s)
		}
	}
}
