package pipeline

import (
	"errors"
	"fmt"

	"tools.zach/dev/captioner/internal/assets"
	"tools.zach/dev/captioner/internal/catalog"
	"tools.zach/dev/captioner/internal/fontface"
	"tools.zach/dev/captioner/internal/output"
)

// ///////////////////////////////////////////////
// Kind
// ///////////////////////////////////////////////

// Kind classifies a pipeline failure. A Kind is itself an error so callers
// can match with errors.Is(err, pipeline.KindTemplateNotFound).
type Kind int

const (
	// KindTemplateNotFound: the id is not in the catalog or no image file
	// exists for it under any probed extension.
	KindTemplateNotFound Kind = iota + 1
	// KindCaptionCountMismatch: the caption count differs from what the
	// template's format requires.
	KindCaptionCountMismatch
	// KindImageDecode: the image exists but cannot be decoded or normalized.
	KindImageDecode
	// KindFontLoad: the configured font is missing or unreadable. Run
	// recovers from it with the bitmap fallback and never returns it.
	KindFontLoad
	// KindEncodeOrWrite: encoding or writing the output failed.
	KindEncodeOrWrite
)

var kindNames = map[Kind]string{
	KindTemplateNotFound:     "template not found",
	KindCaptionCountMismatch: "caption count mismatch",
	KindImageDecode:          "image decode error",
	KindFontLoad:             "font load failure",
	KindEncodeOrWrite:        "encode or write error",
}

// String returns the human-readable kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error implements error.
func (k Kind) Error() string { return k.String() }

// kindOf maps a collaborator error to its Kind.
func kindOf(err error) Kind {
	switch {
	case errors.Is(err, catalog.ErrUnknownTemplate), errors.Is(err, assets.ErrAssetNotFound):
		return KindTemplateNotFound
	case errors.Is(err, catalog.ErrCaptionCount):
		return KindCaptionCountMismatch
	case errors.Is(err, assets.ErrDecode):
		return KindImageDecode
	case errors.Is(err, fontface.ErrFontLoad):
		return KindFontLoad
	case errors.Is(err, output.ErrWrite):
		return KindEncodeOrWrite
	default:
		return 0
	}
}

// ///////////////////////////////////////////////
// Error
// ///////////////////////////////////////////////

// Error is returned by [Pipeline.Run] for every fatal failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Stage is the stage that could not be reached.
	Stage Stage
	// TemplateID is the requested template.
	TemplateID string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: template %q at %s: %v", e.Kind, e.TemplateID, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of a pipeline error, or 0 when err is not one.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
