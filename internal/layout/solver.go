// Package layout decides how big a caption is drawn and where it goes.
//
// [Solver] searches downward from a canvas-proportional start size for the
// largest font size whose ink box fits the caption area. [Planner] centers
// the fitted box horizontally and anchors it to a slot edge with a margin
// proportional to the slot height. [Slots] maps each template format to the
// regions its captions occupy.
package layout

import (
	"image"
)

// Measurer reports the ink box of text at a pixel size.
type Measurer interface {
	Measure(text string, size int) (image.Rectangle, error)
}

// MeasureFunc adapts a function to [Measurer].
type MeasureFunc func(text string, size int) (image.Rectangle, error)

// Measure calls fn.
func (fn MeasureFunc) Measure(text string, size int) (image.Rectangle, error) {
	return fn(text, size)
}

// ///////////////////////////////////////////////
// Solver
// ///////////////////////////////////////////////

// FitParams configures the font-size search.
type FitParams struct {
	// MaxWidthRatio is the fraction of the region width text may use.
	MaxWidthRatio float64
	// MaxHeightRatio is the fraction of the region height reserved for text.
	MaxHeightRatio float64
	// MinStartSize floors the canvas-derived starting size.
	MinStartSize int
	// HeightDivisor and WidthDivisor derive the start size as
	// min(height/HeightDivisor, width/WidthDivisor).
	HeightDivisor int
	WidthDivisor  int
	// Step is the decrement between candidate sizes.
	Step int
	// FloorSize is returned when no candidate fits.
	FloorSize int
	// FallbackSize is returned when the bitmap fallback font is in use.
	FallbackSize int
}

// DefaultFitParams returns the stock search parameters.
func DefaultFitParams() FitParams {
	return FitParams{
		MaxWidthRatio:  0.95,
		MaxHeightRatio: 0.25,
		MinStartSize:   40,
		HeightDivisor:  6,
		WidthDivisor:   8,
		Step:           2,
		FloorSize:      20,
		FallbackSize:   40,
	}
}

// Fit is the outcome of a size search.
type Fit struct {
	// Size is the chosen font size in pixels.
	Size int
	// Fits is false when Size is the floor and the text still overflows, or
	// when the bitmap fallback short-circuited the search.
	Fits bool
	// Fallback is true when the bitmap fallback font short-circuited the search.
	Fallback bool
	// Trials counts the measurements performed.
	Trials int
}

// Solver finds the largest usable font size for a caption.
type Solver struct {
	p FitParams
}

// NewSolver returns a Solver using p. Non-positive fields take defaults.
func NewSolver(p FitParams) *Solver {
	d := DefaultFitParams()
	if p.MaxWidthRatio <= 0 {
		p.MaxWidthRatio = d.MaxWidthRatio
	}
	if p.MaxHeightRatio <= 0 {
		p.MaxHeightRatio = d.MaxHeightRatio
	}
	if p.MinStartSize <= 0 {
		p.MinStartSize = d.MinStartSize
	}
	if p.HeightDivisor <= 0 {
		p.HeightDivisor = d.HeightDivisor
	}
	if p.WidthDivisor <= 0 {
		p.WidthDivisor = d.WidthDivisor
	}
	if p.Step <= 0 {
		p.Step = d.Step
	}
	if p.FloorSize <= 0 {
		p.FloorSize = d.FloorSize
	}
	if p.FallbackSize <= 0 {
		p.FallbackSize = d.FallbackSize
	}
	return &Solver{p: p}
}

// Params returns the effective parameters.
func (s *Solver) Params() FitParams { return s.p }

// Bounds returns the maximum ink width and height allowed in a region of
// the given dimensions.
func (s *Solver) Bounds(dims image.Point) image.Point {
	return image.Pt(
		int(float64(dims.X)*s.p.MaxWidthRatio),
		int(float64(dims.Y)*s.p.MaxHeightRatio),
	)
}

// StartSize returns the first candidate size for a region: proportional to
// the region, never below MinStartSize or FloorSize.
func (s *Solver) StartSize(dims image.Point) int {
	start := min(dims.Y/s.p.HeightDivisor, dims.X/s.p.WidthDivisor)
	return max(start, s.p.MinStartSize, s.p.FloorSize)
}

// Solve searches downward from [Solver.StartSize] in Step decrements, ending
// at FloorSize, and returns the first size whose ink box fits
// [Solver.Bounds]. Sizes skipped between that fit and the previous failing
// candidate are then tried largest first, so for well-behaved measurers the
// result is the largest fitting size. Sizes whose measurement fails count as
// not fitting. If even the floor overflows, the floor is returned with Fits
// false.
func (s *Solver) Solve(dims image.Point, text string, m Measurer) Fit {
	limit := s.Bounds(dims)
	var trials int
	fits := func(size int) bool {
		trials++
		ink, err := m.Measure(text, size)
		if err != nil {
			return false
		}
		return ink.Dx() <= limit.X && ink.Dy() <= limit.Y
	}

	start := s.StartSize(dims)
	prev := start + 1
	for size := start; ; size -= s.p.Step {
		size = max(size, s.p.FloorSize)
		if fits(size) {
			for up := prev - 1; up > size; up-- {
				if fits(up) {
					return Fit{Size: up, Fits: true, Trials: trials}
				}
			}
			return Fit{Size: size, Fits: true, Trials: trials}
		}
		if size == s.p.FloorSize {
			return Fit{Size: size, Trials: trials}
		}
		prev = size
	}
}

// SolveFallback is the short-circuit used when only the bitmap font is
// available: no measuring, just the fixed fallback size.
func (s *Solver) SolveFallback() Fit {
	return Fit{Size: s.p.FallbackSize, Fallback: true}
}
