package pipeline

import "fmt"

// Stage is a step of one render invocation. Stages are reached strictly in
// declaration order.
type Stage int

const (
	StageIdle Stage = iota
	StageTemplateResolved
	StageCaptionValidated
	StageCanvasLoaded
	StageSizeSolved
	StagePositioned
	StageRendered
	StageEncoded
)

var stageNames = [...]string{
	StageIdle:             "idle",
	StageTemplateResolved: "template_resolved",
	StageCaptionValidated: "caption_validated",
	StageCanvasLoaded:     "canvas_loaded",
	StageSizeSolved:       "size_solved",
	StagePositioned:       "positioned",
	StageRendered:         "rendered",
	StageEncoded:          "encoded",
}

// String returns the snake_case stage name used in logs and errors.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}
