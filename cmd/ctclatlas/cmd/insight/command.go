// Package insight provides the insight command.
package insight

import (
	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/cmdutil"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
	pkginsight "github.com/ctcl-atlas/atlas/pkg/insight"
)

// NewCommand creates the insight command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var (
		groups *cmdutil.ComparisonFlags
		policy *cmdutil.PolicyFlags
	)

	cmd := &cobra.Command{
		Use:     "insight [gene]",
		Aliases: []string{"explain"},
		GroupID: "query",
		Short:   "Explain a gene's expression in clinical terms",
		Long: `Insight runs the comparison for a gene and phrases the verdict as the
automated clinical insight: a headline, a trend per reference group and
the sentences a clinician reads. Without a gene it explains ` + pkginsight.DefaultGene + `.

Table output is plain text, wide adds a findings table and markdown
renders the full report.`,
		Example: `  ctclatlas insight
  ctclatlas insight CCR4 --ref eczema
  ctclatlas insight TOX -o markdown > tox.md`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: cmdutil.CompleteGenes(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := cmdutil.Format(app)

			gene := pkginsight.DefaultGene
			if len(args) == 1 {
				gene = args[0]
			}

			req, err := groups.Request(gene)
			if err != nil {
				return err
			}
			a, err := cmdutil.Atlas(cmd, app, policy)
			if err != nil {
				return err
			}

			ins, err := a.InsightRequest(cmd.Context(), req)
			if err != nil {
				return cmdutil.Report(cmd.ErrOrStderr(), format, err)
			}
			return output.FormatInsight(cmd.OutOrStdout(), format, ins)
		},
	}

	groups = cmdutil.AddComparisonFlags(cmd)
	policy = cmdutil.AddPolicyFlags(cmd)

	return cmd
}
