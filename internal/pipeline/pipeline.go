// Package pipeline sequences one caption render from template id to the
// written JPEG:
//
//	idle → template_resolved → caption_validated → canvas_loaded →
//	size_solved → positioned → rendered → encoded
//
// Every stage is fail-fast. A failure returns an [*Error] naming the stage
// that could not be reached, and nothing is written. The one exception is
// an unusable font, which degrades to the built-in bitmap face with a
// warning instead of failing.
//
// A Pipeline holds only read-only collaborators, so one value can serve
// concurrent Run calls; each call owns its canvas, font faces, and plans.
package pipeline

import (
	"errors"
	"image"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/font"

	"tools.zach/dev/captioner/internal/assets"
	"tools.zach/dev/captioner/internal/catalog"
	"tools.zach/dev/captioner/internal/compose"
	"tools.zach/dev/captioner/internal/fontface"
	"tools.zach/dev/captioner/internal/layout"
	"tools.zach/dev/captioner/internal/logger"
	"tools.zach/dev/captioner/internal/output"
)

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Catalog resolves template ids. [*catalog.Catalog] and [*catalog.Store]
// both satisfy it.
type Catalog interface {
	Lookup(id string) (catalog.Template, error)
}

// Persister encodes and stores a finished canvas. [*output.Writer]
// satisfies it.
type Persister interface {
	Persist(img image.Image, prompt, key string) (*output.Result, error)
}

// Options wires a [Pipeline]. Catalog, Assets, and Persister are required;
// the rest default to stock components.
type Options struct {
	Catalog   Catalog
	Assets    *assets.Resolver
	Fonts     *fontface.Loader
	Solver    *layout.Solver
	Planner   *layout.Planner
	Composer  *compose.Compositor
	Persister Persister
	// Logger receives stage events. Nil discards them.
	Logger *slog.Logger
}

// ///////////////////////////////////////////////
// Request / Result
// ///////////////////////////////////////////////

// Request is one render invocation.
type Request struct {
	// TemplateID selects the template.
	TemplateID string
	// Captions holds one string per slot of the template's format.
	Captions []string
	// Prompt names the output file. Empty falls back to the captions.
	Prompt string
}

// Result is a successful render.
type Result struct {
	output.Result
	// Template is the resolved template.
	Template catalog.Template
	// Plans holds the sizing and placement of each caption, in order.
	Plans []layout.RenderPlan
	// FontFallback is true when the bitmap font was used.
	FontFallback bool
}

// ///////////////////////////////////////////////
// Pipeline
// ///////////////////////////////////////////////

// Pipeline renders captions onto templates.
type Pipeline struct {
	opts Options
	log  *slog.Logger
	// face builds a sized face; tests replace it to simulate failures.
	face func(fnt *fontface.Font, size int) (font.Face, error)
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	if opts.Fonts == nil {
		opts.Fonts = fontface.NewLoader("")
	}
	if opts.Solver == nil {
		opts.Solver = layout.NewSolver(layout.DefaultFitParams())
	}
	if opts.Planner == nil {
		opts.Planner = layout.NewPlanner(layout.DefaultMarginParams())
	}
	if opts.Composer == nil {
		opts.Composer = compose.New(compose.DefaultStyle())
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{opts: opts, log: log, face: (*fontface.Font).Face}
}

// run tracks one invocation's progress for logging and error context.
type run struct {
	log *slog.Logger
	id  string
}

// advance records that stage s has been reached.
func (r *run) advance(s Stage) {
	r.log.Debug("stage", "template", r.id, "stage", s.String())
}

// fail wraps err as a failure to reach stage next.
func (r *run) fail(next Stage, err error) error {
	kind := kindOf(err)
	if kind == 0 {
		kind = kindForStage(next)
	}
	r.log.Debug("stage failed", "template", r.id, "stage", next.String(), "kind", kind.String(), "error", err)
	return &Error{Kind: kind, Stage: next, TemplateID: r.id, Err: err}
}

// kindForStage classifies failures from collaborators that return
// untyped errors.
func kindForStage(s Stage) Kind {
	switch s {
	case StageTemplateResolved:
		return KindTemplateNotFound
	case StageCaptionValidated:
		return KindCaptionCountMismatch
	case StageCanvasLoaded:
		return KindImageDecode
	default:
		return KindEncodeOrWrite
	}
}

// faces returns one face per solved size. If any size cannot produce a
// face, every caption switches to the bitmap face so one image never mixes
// scalable and bitmap text. The second result reports whether the bitmap
// face is in use.
func (p *Pipeline) faces(fnt *fontface.Font, fits []layout.Fit, id string) ([]font.Face, bool) {
	faces := make([]font.Face, len(fits))
	for i, fit := range fits {
		face, err := p.face(fnt, fit.Size)
		if err != nil {
			p.log.Warn("font unavailable, using bitmap fallback",
				"template", id, "slot", i, "size", fit.Size, "kind", KindFontLoad.String(), "error", err)
			for j := range faces {
				faces[j] = fontface.BitmapFace()
			}
			return faces, true
		}
		faces[i] = face
	}
	return faces, fnt.Fallback()
}

// Run executes one render. On failure the returned error is an [*Error]
// and no output exists.
func (p *Pipeline) Run(req Request) (*Result, error) {
	r := &run{log: p.log, id: req.TemplateID}
	r.advance(StageIdle)

	if p.opts.Catalog == nil || p.opts.Assets == nil || p.opts.Persister == nil {
		return nil, r.fail(StageTemplateResolved, errors.New("pipeline is missing a catalog, asset resolver, or persister"))
	}

	tmpl, err := p.opts.Catalog.Lookup(req.TemplateID)
	if err != nil {
		return nil, r.fail(StageTemplateResolved, err)
	}
	imgPath, err := p.opts.Assets.Locate(tmpl.ID)
	if err != nil {
		return nil, r.fail(StageTemplateResolved, err)
	}
	r.advance(StageTemplateResolved)

	if err := catalog.ValidateCaptions(tmpl.Format, req.Captions); err != nil {
		return nil, r.fail(StageCaptionValidated, err)
	}
	r.advance(StageCaptionValidated)

	canvas, err := p.opts.Assets.Load(imgPath)
	if err != nil {
		return nil, r.fail(StageCanvasLoaded, err)
	}
	r.advance(StageCanvasLoaded)

	fnt, fontErr := p.opts.Fonts.Open()
	defer fnt.Close()
	if fontErr != nil {
		p.log.Warn("font unavailable, using bitmap fallback",
			"template", req.TemplateID, "kind", KindFontLoad.String(), "error", fontErr)
	}

	slots := layout.Slots(tmpl.Format, canvas.Bounds())
	fits := make([]layout.Fit, len(slots))
	for i, slot := range slots {
		if fnt.Fallback() {
			fits[i] = p.opts.Solver.SolveFallback()
		} else {
			fits[i] = p.opts.Solver.Solve(slot.Region.Size(), req.Captions[i], fnt)
		}
		logger.Trace(p.log, "size solved", "template", req.TemplateID, "slot", i,
			"size", fits[i].Size, "fits", fits[i].Fits, "trials", fits[i].Trials)
		if !fits[i].Fits && !fits[i].Fallback {
			p.log.Info("caption overflows at floor size", "template", req.TemplateID, "slot", i, "size", fits[i].Size)
		}
	}
	r.advance(StageSizeSolved)

	faces, fallback := p.faces(fnt, fits, req.TemplateID)
	if fallback && !fnt.Fallback() {
		for i := range fits {
			fits[i] = p.opts.Solver.SolveFallback()
		}
	}

	plans := make([]layout.RenderPlan, len(slots))
	for i, slot := range slots {
		ink := fontface.InkBounds(faces[i], req.Captions[i])
		at, margin := p.opts.Planner.Place(slot.Region, ink.Size(), slot.Anchor)
		plans[i] = layout.RenderPlan{
			FontSize: fits[i].Size,
			Anchor:   at,
			Margin:   margin,
			Ink:      ink,
			Fits:     fits[i].Fits,
			Fallback: fits[i].Fallback,
		}
		logger.Trace(p.log, "caption placed", "template", req.TemplateID, "slot", i,
			"anchor", slot.Anchor.String(), "x", at.X, "y", at.Y, "margin", margin)
	}
	r.advance(StagePositioned)

	for i, plan := range plans {
		st := p.opts.Composer.Render(canvas, req.Captions[i], faces[i], plan.FontSize, plan.Anchor)
		logger.Trace(p.log, "caption drawn", "template", req.TemplateID, "slot", i,
			"shadow", st.Shadow, "outline", st.Outline, "fill", st.Fill)
	}
	r.advance(StageRendered)

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = strings.Join(req.Captions, " ")
	}
	key := output.RequestKey(append([]string{tmpl.ID}, req.Captions...)...)
	res, err := p.opts.Persister.Persist(canvas, prompt, key)
	if err != nil {
		return nil, r.fail(StageEncoded, err)
	}
	r.advance(StageEncoded)

	sizes := make([]int, len(plans))
	for i, plan := range plans {
		sizes[i] = plan.FontSize
	}
	p.log.Info("caption rendered",
		"template", tmpl.ID,
		"path", res.Path,
		"font_size", sizes,
		"bytes", humanize.Bytes(uint64(len(res.Data))),
	)
	return &Result{Result: *res, Template: tmpl, Plans: plans, FontFallback: fallback}, nil
}
