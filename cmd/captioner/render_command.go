package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tools.zach/dev/captioner/internal/catalog"
	"tools.zach/dev/captioner/internal/pipeline"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "render <template> [caption...]",
		Short: "Render captions onto a template",
		Long: "Render one caption per slot of the template's format onto its image\n" +
			"and write the JPEG to the output directory.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(ctx.catalogPath())
			if err != nil {
				return err
			}
			p, err := ctx.newPipeline(cat)
			if err != nil {
				return err
			}
			res, err := p.Run(pipeline.Request{
				TemplateID: args[0],
				Captions:   args[1:],
				Prompt:     prompt,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%s)\n", res.Path, humanize.Bytes(uint64(len(res.Data))))
			if res.FontFallback {
				fmt.Fprintln(out, "Note: rendered with the built-in bitmap font; set font.path for scaled captions.")
			}
			for i, plan := range res.Plans {
				if plan.Overflows() {
					fmt.Fprintf(out, "Note: caption %d overflows at the minimum size %dpx.\n", i+1, plan.FontSize)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Text used to name the output file (default: the captions)")
	return cmd
}
