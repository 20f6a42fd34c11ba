// Package genes provides the genes command and its quick subcommand.
package genes

import (
	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/cmdutil"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
	"github.com/ctcl-atlas/atlas/internal/cmd/table"
	"github.com/ctcl-atlas/atlas/pkg/insight"
)

// NewCommand creates the genes command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var page *cmdutil.PageFlags

	cmd := &cobra.Command{
		Use:     "genes",
		Aliases: []string{"ls"},
		GroupID: "query",
		Short:   "List the gene symbols in the dataset",
		Long: `Genes lists the gene index of the loaded dataset in sorted order.
--match takes comma-separated glob patterns; a pattern with regex syntax is
treated as a regular expression.`,
		Example: `  ctclatlas genes --match 'CD*' --limit 20
  ctclatlas genes -m 'TOX,CCR4,^HLA-' -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := cmdutil.Format(app)

			a, err := app.Atlas()
			if err != nil {
				return err
			}

			genes, err := a.Genes(page.Match)
			if err != nil {
				return cmdutil.Report(cmd.ErrOrStderr(), format, err)
			}
			return output.FormatGenes(cmd.OutOrStdout(), format, page.Page(genes), len(genes))
		},
	}

	page = cmdutil.AddPageFlags(cmd)
	cmd.AddCommand(newQuickCommand(app))

	return cmd
}

func newQuickCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "quick",
		Short: "List the quick-select clinical markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Atlas()
			if err != nil {
				return err
			}

			picks := a.QuickSelect()
			genes := make([]insight.QuickGene, len(picks))
			available := make(map[string]bool, len(picks))
			for i, p := range picks {
				genes[i] = p.QuickGene
				available[p.Symbol] = p.Available
			}

			return output.Write(cmd.OutOrStdout(), cmdutil.Format(app), picks, func() output.Data {
				return table.QuickGenesToTableData(genes, func(s string) bool { return available[s] })
			})
		},
	}
}
