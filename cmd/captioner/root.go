package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var dataDirFlag string
	var configFlag string
	var levelFlag string

	ctx := newCommandContext(&dataDirFlag, &configFlag, &levelFlag)

	rootCmd := &cobra.Command{
		Use:           "captioner",
		Short:         "Render meme captions onto template images",
		Version:       resolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			return ctx.setupLogger(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "d", ".", "Data directory holding config, catalog, images, and output")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default <data-dir>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Override log.level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newTemplatesCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
