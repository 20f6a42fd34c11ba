// Package cmdutil provides shared flags and configuration utilities for ctclatlas commands.
package cmdutil

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// PolicyFlags holds the significance policy overrides.
type PolicyFlags struct {
	Metric      string
	Threshold   float64
	MaxPValue   float64
	MinCells    int
	Pseudocount float64
}

// AddPolicyFlags adds the policy flags to a command. Defaults are the
// built-in policy; only flags the user sets override the configured policy.
func AddPolicyFlags(cmd *cobra.Command) *PolicyFlags {
	flags := &PolicyFlags{}
	def := compare.DefaultPolicy()

	cmd.Flags().StringVar(&flags.Metric, "metric", string(def.Metric),
		"Effect metric: mean_difference, log2_fold_change, cohens_d")
	cmd.Flags().Float64Var(&flags.Threshold, "threshold", def.Threshold,
		"Minimum |effect| for a significant difference")
	cmd.Flags().Float64Var(&flags.MaxPValue, "max-p", def.MaxPValue,
		"Maximum Welch p-value for significance (0 disables the gate)")
	cmd.Flags().IntVar(&flags.MinCells, "min-cells", def.MinCells,
		"Minimum cells per group for a determinate comparison")
	cmd.Flags().Float64Var(&flags.Pseudocount, "pseudocount", def.Pseudocount,
		"Pseudocount added to means before log2 fold change")

	return flags
}

// Apply overrides base with the flags the user changed on cmd.
func (f *PolicyFlags) Apply(cmd *cobra.Command, base compare.Policy) (compare.Policy, error) {
	p := base
	if cmd.Flags().Changed("metric") {
		m, err := compare.ParseMetric(f.Metric)
		if err != nil {
			return p, err
		}
		p.Metric = m
	}
	if cmd.Flags().Changed("threshold") {
		p.Threshold = f.Threshold
	}
	if cmd.Flags().Changed("max-p") {
		p.MaxPValue = f.MaxPValue
	}
	if cmd.Flags().Changed("min-cells") {
		p.MinCells = f.MinCells
	}
	if cmd.Flags().Changed("pseudocount") {
		p.Pseudocount = f.Pseudocount
	}
	return p, p.Validate()
}

var policyFlagNames = map[string]bool{
	"metric":      true,
	"threshold":   true,
	"max-p":       true,
	"min-cells":   true,
	"pseudocount": true,
}

// Changed reports whether any policy flag was set on cmd.
func (f *PolicyFlags) Changed(cmd *cobra.Command) bool {
	changed := false
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		if policyFlagNames[flag.Name] {
			changed = true
		}
	})
	return changed
}

// ComparisonFlags selects the target and reference groups.
type ComparisonFlags struct {
	Target     string
	References []string
}

// AddComparisonFlags adds the group selection flags to a command.
func AddComparisonFlags(cmd *cobra.Command) *ComparisonFlags {
	flags := &ComparisonFlags{}

	cmd.Flags().StringVarP(&flags.Target, "target", "t", "",
		"Target group: tumor, normal, eczema (default tumor)")
	cmd.Flags().StringSliceVarP(&flags.References, "ref", "r", nil,
		"Reference groups (repeatable or comma-separated; default every other group)")

	return flags
}

// Request builds the comparison request for gene.
func (f *ComparisonFlags) Request(gene string) (compare.Request, error) {
	req := compare.Request{Gene: gene}
	if f.Target != "" {
		g, err := expression.ParseGroup(f.Target)
		if err != nil {
			return req, err
		}
		req.Target = g
	}
	refs, err := expression.ParseGroups(f.References)
	if err != nil {
		return req, err
	}
	req.References = refs
	return req, nil
}

// PageFlags holds gene listing flags.
type PageFlags struct {
	Match  string
	Limit  int
	Offset int
}

// AddPageFlags adds gene listing flags to a command.
func AddPageFlags(cmd *cobra.Command) *PageFlags {
	flags := &PageFlags{}

	cmd.Flags().StringVarP(&flags.Match, "match", "m", "",
		"Comma-separated gene patterns (e.g. 'CD*,TOX')")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 0,
		"Limit number of results (0 for all)")
	cmd.Flags().IntVar(&flags.Offset, "offset", 0,
		"Skip this many results")

	return flags
}

// Page returns the requested slice of genes.
func (f *PageFlags) Page(genes []string) []string {
	offset := max(f.Offset, 0)
	if offset >= len(genes) {
		return []string{}
	}
	genes = genes[offset:]
	if f.Limit > 0 && f.Limit < len(genes) {
		genes = genes[:f.Limit]
	}
	return genes
}
