package cmdutil

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas"
	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
)

// Atlas returns the application atlas, rebuilt on the already loaded dataset
// when policy flags override the configured policy.
func Atlas(cmd *cobra.Command, app application.Application, policy *PolicyFlags) (atlas.Atlas, error) {
	a, err := app.Atlas()
	if err != nil {
		return nil, err
	}
	if policy == nil || !policy.Changed(cmd) {
		return a, nil
	}

	p, err := policy.Apply(cmd, a.Policy())
	if err != nil {
		return nil, err
	}
	return app.Atlas(
		atlas.WithDataset(a.Dataset()),
		atlas.WithTarget(a.Target()),
		atlas.WithPolicy(p),
		atlas.WithLogger(app.Logger()),
	)
}

// Format returns the output format configured on app.
func Format(app application.Application) output.Format {
	return output.DetectFormat(app.OutputFormat())
}

// CompleteGenes completes the gene argument from the dataset gene index.
func CompleteGenes(app application.Application) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		a, err := app.Atlas()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		genes, err := a.Genes(strings.ToUpper(toComplete) + "*")
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return genes, cobra.ShellCompDirectiveNoFileComp
	}
}
