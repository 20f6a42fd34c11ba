// Package summary provides the summary command.
package summary

import (
	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/cmdutil"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// NewCommand creates the summary command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "summary <gene>",
		Aliases: []string{"stats"},
		GroupID: "query",
		Short:   "Show per-group expression statistics for a gene",
		Long: `Summary reports, for every group with cells, the number of cells,
mean, standard deviation and fraction of cells expressing the gene. Wide
output adds the minimum, quartiles and maximum.`,
		Example: `  ctclatlas summary TOX
  ctclatlas summary cd3e -o wide`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cmdutil.CompleteGenes(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := cmdutil.Format(app)

			a, err := app.Atlas()
			if err != nil {
				return err
			}

			gene := expression.NormalizeGene(args[0])
			summaries, err := a.Summaries(cmd.Context(), gene)
			if err != nil {
				return cmdutil.Report(cmd.ErrOrStderr(), format, err)
			}
			return output.FormatSummaries(cmd.OutOrStdout(), format, gene, summaries)
		},
	}
}
