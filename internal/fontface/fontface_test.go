// fontface_test.go tests [Loader.Open] for scalable fonts and every fallback
// trigger, face caching, and ink-box measurement.

package fontface

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

func writeGoRegular(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	return path
}

func TestOpenScalable(t *testing.T) {
	path := writeGoRegular(t)
	f, err := NewLoader(path).Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if f.Fallback() {
		t.Fatal("Fallback() = true for a valid font")
	}

	// The parsed font is shared across opens of the same path.
	g, err := NewLoader(path).Open()
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if f.otf != g.otf {
		t.Error("parsed font not cached by path")
	}
}

func TestOpenFallback(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.ttf")
	if err := os.WriteFile(corrupt, []byte("definitely not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	badWOFF2 := filepath.Join(dir, "bad.woff2")
	if err := os.WriteFile(badWOFF2, []byte("wOF2garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", filepath.Join(dir, "nope.ttf")},
		{"corrupt file", corrupt},
		{"corrupt woff2", badWOFF2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewLoader(tt.path).Open()
			if !errors.Is(err, ErrFontLoad) {
				t.Fatalf("error = %v, want ErrFontLoad", err)
			}
			if f == nil || !f.Fallback() {
				t.Fatal("expected usable fallback font")
			}
			face, err := f.Face(40)
			if err != nil {
				t.Fatalf("Face: %v", err)
			}
			if face != basicfont.Face7x13 {
				t.Error("fallback face is not the basicfont bitmap face")
			}
		})
	}
}

func TestFaceCachedPerSize(t *testing.T) {
	f, err := NewLoader(writeGoRegular(t)).Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	a, _ := f.Face(32)
	b, _ := f.Face(32)
	c, _ := f.Face(48)
	if a != b {
		t.Error("same size returned different faces")
	}
	if a == c {
		t.Error("different sizes returned the same face")
	}
}

func TestMeasureGrowsWithSize(t *testing.T) {
	f, err := NewLoader(writeGoRegular(t)).Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	small, err := f.Measure("When you push to prod on Friday", 20)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	large, err := f.Measure("When you push to prod on Friday", 80)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if small.Dx() <= 0 || small.Dy() <= 0 {
		t.Fatalf("small bounds empty: %v", small)
	}
	if large.Dx() <= small.Dx() || large.Dy() <= small.Dy() {
		t.Errorf("large %v not bigger than small %v", large, small)
	}
	// Ink sits above the baseline for capitals.
	if large.Min.Y >= 0 {
		t.Errorf("ink top %d should be above baseline", large.Min.Y)
	}
}

func TestMeasureEmpty(t *testing.T) {
	f, err := NewLoader(writeGoRegular(t)).Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	r, err := f.Measure("", 40)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if !r.Empty() {
		t.Errorf("empty text bounds = %v, want empty", r)
	}
}

func TestDot(t *testing.T) {
	ink := image.Rect(2, -30, 100, 8)
	dot := Dot(ink, image.Pt(10, 50))
	if dot.X.Round() != 8 || dot.Y.Round() != 80 {
		t.Errorf("Dot = (%d,%d), want (8,80)", dot.X.Round(), dot.Y.Round())
	}
}

func TestIsWOFF2(t *testing.T) {
	if !isWOFF2("x.WOFF2", nil) {
		t.Error("extension check failed")
	}
	if !isWOFF2("x.bin", []byte("wOF2....")) {
		t.Error("magic check failed")
	}
	if isWOFF2("x.ttf", goregular.TTF) {
		t.Error("ttf reported as woff2")
	}
}
