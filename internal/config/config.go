// Package config provides configuration loading and defaults for captioner.
//
// Configuration is loaded from config.toml in the data directory. Every
// section has a working default, so a missing file or a file that sets only
// a few keys is valid. Relative paths in the file are resolved against the
// data directory by the caller (see [paths.DataDir.Resolve]).
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/captioner/internal/assets"
	"tools.zach/dev/captioner/internal/atomicfile"
	"tools.zach/dev/captioner/internal/compose"
	"tools.zach/dev/captioner/internal/layout"
	"tools.zach/dev/captioner/internal/migrate"
	"tools.zach/dev/captioner/internal/output"
	"tools.zach/dev/captioner/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Catalog locates the template catalog.
	Catalog CatalogConfig `toml:"catalog"`
	// Assets locates template images.
	Assets AssetsConfig `toml:"assets"`
	// Font selects the caption font.
	Font FontConfig `toml:"font"`
	// Fit tunes the font size search.
	Fit FitConfig `toml:"fit"`
	// Layout tunes caption placement.
	Layout LayoutConfig `toml:"layout"`
	// Style holds caption colors and stroke scaling.
	Style StyleConfig `toml:"style"`
	// Output controls where and how renders are written.
	Output OutputConfig `toml:"output"`
	// Watch configures inbox watch mode.
	Watch WatchConfig `toml:"watch"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// CatalogConfig locates the template catalog.
type CatalogConfig struct {
	// Path is the JSON catalog file.
	Path string `toml:"path"`
}

// AssetsConfig locates template images.
type AssetsConfig struct {
	// Dir is the directory holding <template id>.<ext> images.
	Dir string `toml:"dir"`
	// Extensions are probed in order when locating an image.
	Extensions []string `toml:"extensions"`
	// MaxDimension downscales larger images to fit; 0 disables downscaling.
	MaxDimension int `toml:"max_dimension"`
}

// FontConfig selects the caption font.
type FontConfig struct {
	// Path is a TTF, OTF, or WOFF2 file. Empty uses the bitmap fallback.
	Path string `toml:"path"`
	// FallbackSize is the nominal size reported when the bitmap fallback is used.
	FallbackSize int `toml:"fallback_size"`
}

// FitConfig tunes the font size search.
type FitConfig struct {
	// MaxWidthRatio is the fraction of the image width text may occupy.
	MaxWidthRatio float64 `toml:"max_width_ratio"`
	// MaxHeightRatio is the fraction of the image height text may occupy.
	MaxHeightRatio float64 `toml:"max_height_ratio"`
	// MinStartSize floors the starting size of the search.
	MinStartSize int `toml:"min_start_size"`
	// Step is the decrement between tried sizes.
	Step int `toml:"step"`
	// FloorSize is the smallest size ever used.
	FloorSize int `toml:"floor_size"`
	// HeightDivisor derives a start size from the image height.
	HeightDivisor int `toml:"height_divisor"`
	// WidthDivisor derives a start size from the image width.
	WidthDivisor int `toml:"width_divisor"`
}

// LayoutConfig tunes caption placement.
type LayoutConfig struct {
	// MinMargin is the smallest edge margin in pixels.
	MinMargin int `toml:"min_margin"`
	// MarginDivisor derives the margin as height/MarginDivisor.
	MarginDivisor int `toml:"margin_divisor"`
}

// StyleConfig holds caption colors and stroke scaling.
type StyleConfig struct {
	// Fill is the caption color as #RRGGBB.
	Fill string `toml:"fill"`
	// Outline is the stroke color as #RRGGBB.
	Outline string `toml:"outline"`
	// Shadow is the drop shadow color as #RRGGBB.
	Shadow string `toml:"shadow"`
	// ShadowAlpha is the drop shadow opacity, 0-255.
	ShadowAlpha int `toml:"shadow_alpha"`
	// ShadowDivisor derives the shadow offset as size/ShadowDivisor.
	ShadowDivisor int `toml:"shadow_divisor"`
	// OutlineDivisor derives the stroke width as size/OutlineDivisor.
	OutlineDivisor int `toml:"outline_divisor"`
	// MinStroke is the smallest shadow offset and stroke width.
	MinStroke int `toml:"min_stroke"`
}

// OutputConfig controls where and how renders are written.
type OutputConfig struct {
	// Dir is the output directory.
	Dir string `toml:"dir"`
	// Prefix is prepended to every file name.
	Prefix string `toml:"prefix"`
	// SlugLength is how many prompt characters feed the file name.
	SlugLength int `toml:"slug_length"`
	// Quality is the JPEG quality, 1-100.
	Quality int `toml:"quality"`
	// Disambiguate selects the file name suffix: "none", "hash", or "ulid".
	Disambiguate string `toml:"disambiguate"`
}

// WatchConfig configures inbox watch mode.
type WatchConfig struct {
	// Inbox is the directory scanned for job files.
	Inbox string `toml:"inbox"`
	// PollIntervalSeconds is the rescan interval when file events are unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// File is a log file path; empty logs to stderr.
	File string `toml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	fit := layout.DefaultFitParams()
	margin := layout.DefaultMarginParams()
	style := compose.DefaultStyle()
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Catalog: CatalogConfig{
			Path: paths.CatalogPath,
		},
		Assets: AssetsConfig{
			Dir:          paths.ImageDir,
			Extensions:   append([]string(nil), assets.DefaultExtensions...),
			MaxDimension: 0,
		},
		Font: FontConfig{
			Path:         "",
			FallbackSize: fit.FallbackSize,
		},
		Fit: FitConfig{
			MaxWidthRatio:  fit.MaxWidthRatio,
			MaxHeightRatio: fit.MaxHeightRatio,
			MinStartSize:   fit.MinStartSize,
			Step:           fit.Step,
			FloorSize:      fit.FloorSize,
			HeightDivisor:  fit.HeightDivisor,
			WidthDivisor:   fit.WidthDivisor,
		},
		Layout: LayoutConfig{
			MinMargin:     margin.MinMargin,
			MarginDivisor: margin.Divisor,
		},
		Style: StyleConfig{
			Fill:           "#FFFFFF",
			Outline:        "#000000",
			Shadow:         "#000000",
			ShadowAlpha:    int(style.Shadow.A),
			ShadowDivisor:  style.ShadowDivisor,
			OutlineDivisor: style.OutlineDivisor,
			MinStroke:      style.MinStroke,
		},
		Output: OutputConfig{
			Dir:          paths.OutputDir,
			Prefix:       "meme_",
			SlugLength:   20,
			Quality:      95,
			Disambiguate: output.DisambiguateHash,
		},
		Watch: WatchConfig{
			Inbox:               paths.InboxDir,
			PollIntervalSeconds: 2,
		},
		Log: LogConfig{
			Level:     "info",
			File:      "",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
//
// Older schema versions are migrated in memory; the original is kept as
// config.toml.bak and the upgraded file is written back.
func Load(dataDir string) (*Config, error) {
	return LoadFile(filepath.Join(dataDir, paths.ConfigFile))
}

// LoadFile is [Load] for an explicit file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	if err := migrate.Config.Check(version); err != nil {
		return nil, err
	}

	// Apply migrations if needed
	shouldMigrate := migrate.Config.NeedsMigration(version)
	if shouldMigrate {
		// Write backup before migration
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, migrateErr = migrate.Config.Upgrade(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// Re-save after migration
	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return fmt.Errorf("catalog.path must not be empty")
	}
	if strings.TrimSpace(c.Assets.Dir) == "" {
		return fmt.Errorf("assets.dir must not be empty")
	}
	if len(c.Assets.Extensions) == 0 {
		return fmt.Errorf("assets.extensions must list at least one extension")
	}
	for _, ext := range c.Assets.Extensions {
		if strings.Trim(ext, ". ") == "" || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("invalid assets.extensions entry %q", ext)
		}
	}
	if c.Assets.MaxDimension < 0 {
		return fmt.Errorf("assets.max_dimension must be >= 0, got %d", c.Assets.MaxDimension)
	}

	if c.Font.FallbackSize <= 0 {
		return fmt.Errorf("font.fallback_size must be > 0, got %d", c.Font.FallbackSize)
	}

	if c.Fit.MaxWidthRatio <= 0 || c.Fit.MaxWidthRatio > 1 {
		return fmt.Errorf("fit.max_width_ratio must be in (0, 1], got %g", c.Fit.MaxWidthRatio)
	}
	if c.Fit.MaxHeightRatio <= 0 || c.Fit.MaxHeightRatio > 1 {
		return fmt.Errorf("fit.max_height_ratio must be in (0, 1], got %g", c.Fit.MaxHeightRatio)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"fit.min_start_size", c.Fit.MinStartSize},
		{"fit.step", c.Fit.Step},
		{"fit.floor_size", c.Fit.FloorSize},
		{"fit.height_divisor", c.Fit.HeightDivisor},
		{"fit.width_divisor", c.Fit.WidthDivisor},
		{"layout.margin_divisor", c.Layout.MarginDivisor},
		{"style.shadow_divisor", c.Style.ShadowDivisor},
		{"style.outline_divisor", c.Style.OutlineDivisor},
		{"style.min_stroke", c.Style.MinStroke},
	} {
		if f.v <= 0 {
			return fmt.Errorf("%s must be > 0, got %d", f.name, f.v)
		}
	}
	if c.Fit.FloorSize > c.Fit.MinStartSize {
		return fmt.Errorf("fit.floor_size (%d) must not exceed fit.min_start_size (%d)", c.Fit.FloorSize, c.Fit.MinStartSize)
	}
	if c.Layout.MinMargin < 0 {
		return fmt.Errorf("layout.min_margin must be >= 0, got %d", c.Layout.MinMargin)
	}

	for _, f := range []struct{ name, v string }{
		{"style.fill", c.Style.Fill},
		{"style.outline", c.Style.Outline},
		{"style.shadow", c.Style.Shadow},
	} {
		if _, err := compose.ParseHexColor(f.v); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	if c.Style.ShadowAlpha < 0 || c.Style.ShadowAlpha > 255 {
		return fmt.Errorf("style.shadow_alpha must be in [0, 255], got %d", c.Style.ShadowAlpha)
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if strings.ContainsAny(c.Output.Prefix, `/\`) {
		return fmt.Errorf("output.prefix must not contain path separators, got %q", c.Output.Prefix)
	}
	if c.Output.SlugLength < 0 {
		return fmt.Errorf("output.slug_length must be >= 0, got %d", c.Output.SlugLength)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be in [1, 100], got %d", c.Output.Quality)
	}
	switch c.Output.Disambiguate {
	case output.DisambiguateNone, output.DisambiguateHash, output.DisambiguateULID:
	default:
		return fmt.Errorf("invalid output.disambiguate %q: must be none, hash, or ulid", c.Output.Disambiguate)
	}

	if strings.TrimSpace(c.Watch.Inbox) == "" {
		return fmt.Errorf("watch.inbox must not be empty")
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be > 0, got %d", c.Watch.PollIntervalSeconds)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}

// ///////////////////////////////////////////////
// Component Parameters
// ///////////////////////////////////////////////

// FitParams returns the font size search parameters.
func (c *Config) FitParams() layout.FitParams {
	return layout.FitParams{
		MaxWidthRatio:  c.Fit.MaxWidthRatio,
		MaxHeightRatio: c.Fit.MaxHeightRatio,
		MinStartSize:   c.Fit.MinStartSize,
		HeightDivisor:  c.Fit.HeightDivisor,
		WidthDivisor:   c.Fit.WidthDivisor,
		Step:           c.Fit.Step,
		FloorSize:      c.Fit.FloorSize,
		FallbackSize:   c.Font.FallbackSize,
	}
}

// MarginParams returns the placement parameters.
func (c *Config) MarginParams() layout.MarginParams {
	return layout.MarginParams{
		MinMargin: c.Layout.MinMargin,
		Divisor:   c.Layout.MarginDivisor,
	}
}

// ComposeStyle returns the compositor style. It fails only for colors
// that [Config.Validate] would also reject.
func (c *Config) ComposeStyle() (compose.Style, error) {
	fill, err := compose.ParseHexColor(c.Style.Fill)
	if err != nil {
		return compose.Style{}, fmt.Errorf("style.fill: %w", err)
	}
	outline, err := compose.ParseHexColor(c.Style.Outline)
	if err != nil {
		return compose.Style{}, fmt.Errorf("style.outline: %w", err)
	}
	shadow, err := compose.ParseHexColor(c.Style.Shadow)
	if err != nil {
		return compose.Style{}, fmt.Errorf("style.shadow: %w", err)
	}
	shadow.A = uint8(c.Style.ShadowAlpha)
	return compose.Style{
		Fill:           fill,
		Outline:        outline,
		Shadow:         shadow,
		ShadowDivisor:  c.Style.ShadowDivisor,
		OutlineDivisor: c.Style.OutlineDivisor,
		MinStroke:      c.Style.MinStroke,
	}, nil
}

// OutputOptions returns writer options with the output directory resolved
// against d.
func (c *Config) OutputOptions(d paths.DataDir) output.Options {
	return output.Options{
		Dir:          d.Resolve(c.Output.Dir),
		Prefix:       c.Output.Prefix,
		SlugLength:   c.Output.SlugLength,
		Quality:      c.Output.Quality,
		Disambiguate: c.Output.Disambiguate,
	}
}
