// Package dataset provides the dataset command.
package dataset

import (
	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/cmdutil"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
)

// NewCommand creates the dataset command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "dataset",
		Aliases: []string{"info"},
		GroupID: "query",
		Short:   "Show dataset size and group composition",
		Long: `Dataset loads the configured dataset and reports its name, source,
cell and gene counts, sparsity and the number of cells in each group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.Atlas()
			if err != nil {
				return err
			}

			app.Logger().Debug().
				Str("target", a.Target().String()).
				Str("policy", a.Policy().String()).
				Msg("Atlas configuration")

			return output.FormatDataset(cmd.OutOrStdout(), cmdutil.Format(app), a.Stats())
		},
	}
}
