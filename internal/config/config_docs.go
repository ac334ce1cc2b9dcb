package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// [Annotated] uses FieldDoc values to comment the generated config file.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "fit.step") to their
// [FieldDoc] entries. Section entries (e.g. "fit") document the table header.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Catalog ──────────────────────────────────────────────────
	"catalog": {
		Comment: "Template catalog: a JSON object keyed by template id.\nEach entry has \"format\" and optionally \"description\" and \"tags\".",
	},
	"catalog.path": {
		Comment: "Relative paths resolve against the data directory.",
	},

	// ── Assets ───────────────────────────────────────────────────
	"assets": {
		Comment: "Template images live at <dir>/<template id>.<ext>.",
	},
	"assets.dir": {},
	"assets.extensions": {
		Comment: "Probed in order; the first existing file wins.",
	},
	"assets.max_dimension": {
		Comment: "Downscale images whose width or height exceeds this many pixels.\n0 keeps images at their original size.",
		Alternatives: []string{
			"max_dimension = 1024",
		},
	},

	// ── Font ─────────────────────────────────────────────────────
	"font": {},
	"font.path": {
		Comment: "TTF, OTF, or WOFF2 font used for captions.\nWhen empty or unreadable a small built-in bitmap font is used instead.",
		Alternatives: []string{
			`path = "fonts/Impact.ttf"`,
		},
	},
	"font.fallback_size": {
		Comment: "Font size reported for captions drawn with the bitmap font.",
	},

	// ── Fit ──────────────────────────────────────────────────────
	"fit": {
		Comment: "Font size search. The search starts at\nmax(min(height / height_divisor, width / width_divisor), min_start_size)\nand steps down until the caption fits the box below.",
	},
	"fit.max_width_ratio": {
		Comment: "Fraction of the image width a caption may occupy, in (0, 1].",
	},
	"fit.max_height_ratio": {
		Comment: "Fraction of the image height a caption may occupy, in (0, 1].",
	},
	"fit.min_start_size": {},
	"fit.step":           {},
	"fit.floor_size": {
		Comment: "Smallest size ever used, even when the caption still overflows.",
	},
	"fit.height_divisor": {},
	"fit.width_divisor":  {},

	// ── Layout ───────────────────────────────────────────────────
	"layout": {
		Comment: "Captions are centered horizontally and kept max(min_margin, height / margin_divisor)\npixels from the top or bottom edge.",
	},
	"layout.min_margin":     {},
	"layout.margin_divisor": {},

	// ── Style ────────────────────────────────────────────────────
	"style": {
		Comment: "Caption colors as #RRGGBB.",
	},
	"style.fill":    {},
	"style.outline": {},
	"style.shadow":  {},
	"style.shadow_alpha": {
		Comment: "Shadow opacity, 0 (invisible) to 255 (solid).",
	},
	"style.shadow_divisor": {
		Comment: "Shadow offset and outline width scale with font size:\nmax(min_stroke, size / divisor).",
	},
	"style.outline_divisor": {},
	"style.min_stroke":      {},

	// ── Output ───────────────────────────────────────────────────
	"output": {
		Comment: "Renders are written as <dir>/<prefix><slug>[_<suffix>].jpg.",
	},
	"output.dir":    {},
	"output.prefix": {},
	"output.slug_length": {
		Comment: "Number of prompt characters used for the file name slug.",
	},
	"output.quality": {
		Comment: "JPEG quality, 1-100.",
	},
	"output.disambiguate": {
		Comment: "File name suffix:\n  none - no suffix; prompts sharing a slug overwrite each other\n  hash - short hash of template and captions; repeats overwrite, others never collide\n  ulid - unique per render",
		Alternatives: []string{
			`disambiguate = "none"`,
			`disambiguate = "ulid"`,
		},
	},

	// ── Watch ────────────────────────────────────────────────────
	"watch": {
		Comment: "Watch mode renders JSON jobs dropped into the inbox:\n{\"template\": \"drake\", \"captions\": [\"...\"], \"prompt\": \"...\"}",
	},
	"watch.inbox": {},
	"watch.poll_interval_seconds": {
		Comment: "Rescan interval used when file system events are unavailable.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {},
	"log.level": {
		Alternatives: []string{
			`level = "debug"`,
			`level = "trace"`,
		},
	},
	"log.file": {
		Comment: "Rotating log file. Empty logs to stderr.",
	},
	"log.max_size_mb": {},
}
