package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tools.zach/dev/captioner/internal/catalog"
)

// templateRow is the JSON shape of one listed template.
type templateRow struct {
	ID          string         `json:"id"`
	Format      catalog.Format `json:"format"`
	Captions    int            `json:"captions"`
	Tags        []string       `json:"tags"`
	Image       string         `json:"image,omitempty"`
	Description string         `json:"description"`
}

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	var match string
	var tag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"ls"},
		Short:   "List catalog templates",
		Long: "List catalog templates, optionally filtered by a glob over template ids\n" +
			"(for example 'drake*' or '*_{fine,panik}') and by tag.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(ctx.catalogPath())
			if err != nil {
				return err
			}
			templates, err := cat.Filter(match, tag)
			if err != nil {
				return err
			}

			resolver := ctx.assetResolver()
			rows := make([]templateRow, 0, len(templates))
			for _, t := range templates {
				image, _ := resolver.Locate(t.ID)
				rows = append(rows, templateRow{
					ID:          t.ID,
					Format:      t.Format,
					Captions:    t.Format.Slots(),
					Tags:        t.Tags,
					Image:       image,
					Description: t.Description,
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No templates match.")
				return nil
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					r.ID,
					r.Format.String(),
					strconv.Itoa(r.Captions),
					yesNo(r.Image != ""),
					strings.Join(r.Tags, ", "),
					r.Description,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Format", "Captions", "Image", "Tags", "Description"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&match, "match", "m", "", "Glob over template ids")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only templates carrying this tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
