// Package compare provides the compare command.
package compare

import (
	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/cmdutil"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
)

// NewCommand creates the compare command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var (
		groups *cmdutil.ComparisonFlags
		policy *cmdutil.PolicyFlags
	)

	cmd := &cobra.Command{
		Use:     "compare <gene>",
		Aliases: []string{"verdict"},
		GroupID: "query",
		Short:   "Compare a gene between the target and reference groups",
		Long: `Compare computes summary statistics of a gene in the target group
(tumor by default) and each reference group, the mean difference, log2 fold
change, Cohen's d and Welch t-test, and applies the significance policy to
reach a verdict per reference and overall.`,
		Example: `  # Tumor against every other group
  ctclatlas compare TOX

  # Tumor against eczema only, with p-value gate
  ctclatlas compare CCR4 --ref eczema --max-p 0.05

  # Rank by log2 fold change, all statistics
  ctclatlas compare MKI67 --metric log2_fold_change --threshold 1 -o wide`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cmdutil.CompleteGenes(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := cmdutil.Format(app)

			req, err := groups.Request(args[0])
			if err != nil {
				return err
			}
			a, err := cmdutil.Atlas(cmd, app, policy)
			if err != nil {
				return err
			}

			v, err := a.CompareRequest(cmd.Context(), req)
			if err != nil {
				return cmdutil.Report(cmd.ErrOrStderr(), format, err)
			}
			return output.FormatVerdict(cmd.OutOrStdout(), format, v)
		},
	}

	groups = cmdutil.AddComparisonFlags(cmd)
	policy = cmdutil.AddPolicyFlags(cmd)

	return cmd
}
