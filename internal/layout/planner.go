package layout

import (
	"image"

	"tools.zach/dev/captioner/internal/catalog"
)

// ///////////////////////////////////////////////
// Planner
// ///////////////////////////////////////////////

// Anchor selects the slot edge a caption is attached to.
type Anchor int

const (
	// AnchorBottom places the caption a margin above the slot's bottom edge.
	AnchorBottom Anchor = iota
	// AnchorTop places the caption a margin below the slot's top edge.
	AnchorTop
)

// String returns "bottom" or "top".
func (a Anchor) String() string {
	if a == AnchorTop {
		return "top"
	}
	return "bottom"
}

// MarginParams configures vertical placement.
type MarginParams struct {
	// MinMargin is the smallest margin in pixels, regardless of slot height.
	MinMargin int
	// Divisor derives the proportional margin as height/Divisor.
	Divisor int
}

// DefaultMarginParams returns the stock placement parameters.
func DefaultMarginParams() MarginParams {
	return MarginParams{MinMargin: 20, Divisor: 15}
}

// Planner computes caption positions.
type Planner struct {
	p MarginParams
}

// NewPlanner returns a Planner using p. A negative MinMargin is treated as
// zero and a non-positive Divisor takes the default.
func NewPlanner(p MarginParams) *Planner {
	p.MinMargin = max(p.MinMargin, 0)
	if p.Divisor <= 0 {
		p.Divisor = DefaultMarginParams().Divisor
	}
	return &Planner{p: p}
}

// Margin returns max(MinMargin, height/Divisor).
func (p *Planner) Margin(height int) int {
	return max(p.p.MinMargin, height/p.p.Divisor)
}

// Place returns the top-left corner of an ink box of size ink inside
// region, horizontally centered and attached to the anchor edge, along with
// the margin used.
func (p *Planner) Place(region image.Rectangle, ink image.Point, anchor Anchor) (image.Point, int) {
	margin := p.Margin(region.Dy())
	x := region.Min.X + (region.Dx()-ink.X)/2
	y := region.Max.Y - ink.Y - margin
	if anchor == AnchorTop {
		y = region.Min.Y + margin
	}
	return image.Pt(x, y), margin
}

// ///////////////////////////////////////////////
// Slots
// ///////////////////////////////////////////////

// Slot is the region and anchor for one caption.
type Slot struct {
	// Region is the part of the canvas the caption is fitted and placed in.
	Region image.Rectangle
	// Anchor is the region edge the caption is attached to.
	Anchor Anchor
}

// Slots returns one slot per caption of format, in caption order. Single
// and top/bottom formats use the whole canvas; panel formats split it into
// equal horizontal bands stacked top to bottom, the last band absorbing any
// remainder rows. Unknown formats yield no slots.
func Slots(format catalog.Format, canvas image.Rectangle) []Slot {
	switch format {
	case catalog.FormatSingleCaption:
		return []Slot{{Region: canvas, Anchor: AnchorBottom}}
	case catalog.FormatTopBottom:
		return []Slot{
			{Region: canvas, Anchor: AnchorTop},
			{Region: canvas, Anchor: AnchorBottom},
		}
	case catalog.FormatTwoPanels, catalog.FormatThreePanels:
		n := format.Slots()
		band := canvas.Dy() / n
		slots := make([]Slot, n)
		for i := range n {
			r := canvas
			r.Min.Y = canvas.Min.Y + i*band
			if i < n-1 {
				r.Max.Y = r.Min.Y + band
			}
			slots[i] = Slot{Region: r, Anchor: AnchorBottom}
		}
		return slots
	default:
		return nil
	}
}

// ///////////////////////////////////////////////
// RenderPlan
// ///////////////////////////////////////////////

// RenderPlan is the per-caption result of sizing and placement. It lives
// for one render invocation only.
type RenderPlan struct {
	// FontSize is the chosen size in pixels.
	FontSize int
	// Anchor is the top-left corner of the caption's ink box on the canvas.
	Anchor image.Point
	// Margin is the vertical margin applied.
	Margin int
	// Ink is the caption's ink box relative to its baseline origin.
	Ink image.Rectangle
	// Fits is false when the caption overflows at the floor size. It is
	// always false for bitmap fallback plans, which are never measured.
	Fits bool
	// Fallback is true when the caption was drawn with the bitmap font at
	// the fixed fallback size.
	Fallback bool
}

// Overflows reports whether a scalable caption still overflows at the
// floor size.
func (p RenderPlan) Overflows() bool { return !p.Fits && !p.Fallback }
