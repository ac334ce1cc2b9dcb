package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tools.zach/dev/captioner/internal/assets"
	"tools.zach/dev/captioner/internal/compose"
	"tools.zach/dev/captioner/internal/config"
	"tools.zach/dev/captioner/internal/fontface"
	"tools.zach/dev/captioner/internal/layout"
	"tools.zach/dev/captioner/internal/logger"
	"tools.zach/dev/captioner/internal/output"
	"tools.zach/dev/captioner/internal/paths"
	"tools.zach/dev/captioner/internal/pipeline"
)

type commandContext struct {
	dataDirFlag *string
	configFlag  *string
	levelFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	log       *slog.Logger
	logCloser io.Closer
}

func newCommandContext(dataDirFlag, configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		dataDirFlag: dataDirFlag,
		configFlag:  configFlag,
		levelFlag:   levelFlag,
	}
}

// dataDir returns the data directory selected by --data-dir.
func (c *commandContext) dataDir() paths.DataDir {
	root := "."
	if c.dataDirFlag != nil && strings.TrimSpace(*c.dataDirFlag) != "" {
		root = strings.TrimSpace(*c.dataDirFlag)
	}
	return paths.DataDir{Root: root}
}

// configPath returns --config when set, otherwise the data directory's
// config.toml.
func (c *commandContext) configPath() string {
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		return c.dataDir().Resolve(strings.TrimSpace(*c.configFlag))
	}
	return c.dataDir().Config()
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.LoadFile(c.configPath())
		if err != nil {
			c.configErr = fmt.Errorf("load config %s: %w", c.configPath(), err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// setupLogger builds the process logger from the [log] section. Records go
// to a rotating file when log.file is set and to stderr otherwise.
func (c *commandContext) setupLogger(stderr io.Writer) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	levelName := cfg.Log.Level
	if c.levelFlag != nil && strings.TrimSpace(*c.levelFlag) != "" {
		levelName = *c.levelFlag
	}
	level := logger.ParseLevel(levelName)

	if cfg.Log.File != "" {
		c.log, c.logCloser = logger.NewLogger(c.dataDir().Resolve(cfg.Log.File), level, cfg.Log.MaxSizeMB)
	} else {
		c.log = logger.NewWriterLogger(stderr, level)
	}
	slog.SetDefault(c.log)
	return nil
}

// activeLogger returns the configured logger, or a discarding one before
// [commandContext.setupLogger] has run.
func (c *commandContext) activeLogger() *slog.Logger {
	if c.log == nil {
		return logger.Discard()
	}
	return c.log
}

func (c *commandContext) close() error {
	if c.logCloser == nil {
		return nil
	}
	err := c.logCloser.Close()
	c.logCloser = nil
	return err
}

// assetResolver returns the resolver for the configured image directory.
func (c *commandContext) assetResolver() *assets.Resolver {
	cfg := c.config
	return assets.NewResolver(c.dataDir().Resolve(cfg.Assets.Dir), cfg.Assets.Extensions, cfg.Assets.MaxDimension)
}

// catalogPath returns the configured catalog file.
func (c *commandContext) catalogPath() string {
	return c.dataDir().Resolve(c.config.Catalog.Path)
}

// newPipeline wires a render pipeline from the loaded config around cat.
func (c *commandContext) newPipeline(cat pipeline.Catalog) (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	style, err := cfg.ComposeStyle()
	if err != nil {
		return nil, err
	}
	d := c.dataDir()
	return pipeline.New(pipeline.Options{
		Catalog:   cat,
		Assets:    c.assetResolver(),
		Fonts:     fontface.NewLoader(d.Resolve(cfg.Font.Path)),
		Solver:    layout.NewSolver(cfg.FitParams()),
		Planner:   layout.NewPlanner(cfg.MarginParams()),
		Composer:  compose.New(style),
		Persister: output.NewWriter(cfg.OutputOptions(d)),
		Logger:    c.activeLogger(),
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
