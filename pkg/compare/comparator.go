// Package compare implements the expression comparator: it summarizes a gene
// per cell group, measures the target group against reference groups and
// applies a threshold policy to reach a discrete Verdict.
//
// The comparator is a pure function of its inputs. It keeps no state between
// calls and produces identical verdicts for identical datasets and requests.
package compare

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

// Dataset is the read access the comparator needs. *expression.Dataset
// satisfies it.
type Dataset interface {
	Values(gene string, group expression.Group) ([]float64, error)
	GroupCounts() map[expression.Group]int
}

// Request names the gene and groups to compare. An empty Target means Tumor;
// empty References means every other group that has cells.
type Request struct {
	Gene       string
	Target     expression.Group
	References []expression.Group
}

// Comparator compares expression between cell groups under a Policy.
type Comparator struct {
	policy   Policy
	parallel bool
	logger   *zerolog.Logger
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithParallel summarizes groups concurrently, one goroutine per group.
func WithParallel(enabled bool) Option {
	return func(c *Comparator) {
		c.parallel = enabled
	}
}

// WithLogger sets the logger for comparator events, replacing the one
// carried by the request context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Comparator) {
		c.logger = logger
	}
}

// New returns a comparator for a validated policy.
func New(policy Policy, opts ...Option) (*Comparator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy.Metric, _ = ParseMetric(string(policy.Metric))
	c := &Comparator{policy: policy, parallel: true}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Default returns a comparator with DefaultPolicy.
func Default() *Comparator {
	c, _ := New(DefaultPolicy())
	return c
}

// Policy returns the comparator policy.
func (c *Comparator) Policy() Policy {
	return c.policy
}

// Summarize computes group summaries for gene in the given order. When no
// groups are given every group with cells is summarized.
func (c *Comparator) Summarize(ctx context.Context, ds Dataset, gene string, groups ...expression.Group) ([]GroupSummary, error) {
	gene = expression.NormalizeGene(gene)
	if gene == "" {
		return nil, errors.NewUnknownGeneError(gene)
	}
	if len(groups) == 0 {
		counts := ds.GroupCounts()
		for _, g := range expression.Groups() {
			if counts[g] > 0 {
				groups = append(groups, g)
			}
		}
	}
	for _, g := range groups {
		if !g.Valid() {
			return nil, errors.NewValidationError("group", g, "unknown group")
		}
	}

	out := make([]GroupSummary, len(groups))
	errs := make([]error, len(groups))

	if !c.parallel {
		for i, g := range groups {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i], errs[i] = summarizeGroup(ds, gene, g)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return out, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, g := range groups {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				errs[i] = err
				return err
			}
			out[i], errs[i] = summarizeGroup(ds, gene, g)
			return errs[i]
		})
	}
	if err := eg.Wait(); err != nil {
		// Report the first failure in group order, not completion order.
		for _, e := range errs {
			if e != nil && !errors.Is(e, context.Canceled) {
				return nil, e
			}
		}
		return nil, err
	}
	return out, nil
}

func summarizeGroup(ds Dataset, gene string, g expression.Group) (GroupSummary, error) {
	values, err := ds.Values(gene, g)
	if err != nil {
		return GroupSummary{}, err
	}
	return Summarize(g, values), nil
}

// Compare summarizes the gene in the target and reference groups and
// compares them. Unknown genes yield an UnknownGeneError and groups without
// cells an EmptyGroupError; degenerate statistics never fail and produce an
// Indeterminate comparison instead.
func (c *Comparator) Compare(ctx context.Context, ds Dataset, req Request) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := req.Target
	if target == "" {
		target = expression.Tumor
	}
	if !target.Valid() {
		return nil, errors.NewValidationError("target", target, "unknown group")
	}

	refs, explicit, err := resolveReferences(ds, target, req.References)
	if err != nil {
		return nil, err
	}

	if c.logger != nil {
		ctx = logging.WithLogger(ctx, c.logger)
	}
	ctx = logging.WithGene(ctx, expression.NormalizeGene(req.Gene))
	logger := logging.FromContext(ctx)

	summaries, err := c.Summarize(ctx, ds, req.Gene, append([]expression.Group{target}, refs...)...)
	if err != nil {
		return nil, err
	}

	if len(refs) == 0 && !explicit {
		// Every implied reference is empty.
		for _, g := range expression.Groups() {
			if g != target {
				return nil, errors.NewEmptyGroupError(g.String())
			}
		}
	}

	v, err := c.CompareSummaries(expression.NormalizeGene(req.Gene), summaries[0], summaries[1:]...)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("target", target.String()).
		Int("references", len(refs)).
		Str("direction", v.Direction.String()).
		Bool("significant", v.Significant).
		Msg("Compared expression")
	return v, nil
}

// CompareSummaries compares pre-aggregated group summaries. Only N, Mean and
// Variance of each summary are used by the statistics.
func (c *Comparator) CompareSummaries(gene string, target GroupSummary, refs ...GroupSummary) (*Verdict, error) {
	if len(refs) == 0 {
		return nil, errors.NewValidationError("references", nil, "at least one reference group is required")
	}
	if target.N == 0 {
		return nil, errors.NewEmptyGroupError(target.Group.String())
	}
	for _, r := range refs {
		if r.Group == target.Group {
			return nil, errors.NewValidationError("references", r.Group, "reference cannot equal the target group")
		}
		if r.N == 0 {
			return nil, errors.NewEmptyGroupError(r.Group.String())
		}
	}

	v := &Verdict{
		Gene:        expression.NormalizeGene(gene),
		Target:      target.Group,
		Comparisons: make([]Comparison, len(refs)),
		Policy:      c.policy,
	}
	for i, r := range refs {
		v.Comparisons[i] = c.compareOne(target, r)
	}
	v.Direction = overall(v.Comparisons)
	v.Significant = v.Direction == Higher || v.Direction == Lower
	return v, nil
}

// compareOne measures target against a single reference.
func (c *Comparator) compareOne(target, ref GroupSummary) Comparison {
	cmp := Comparison{
		Target:    target,
		Reference: ref,
		Metric:    c.policy.Metric,
		Direction: Indeterminate,
	}

	for _, s := range []GroupSummary{target, ref} {
		if s.N < c.policy.MinCells {
			cmp.Reason = errors.NewInsufficientDataError(s.Group.String(),
				fmt.Sprintf("%d cells, need at least %d", s.N, c.policy.MinCells)).Error()
			cmp.MeanDifference = target.Mean - ref.Mean
			return cmp
		}
	}
	if !finite(target.Mean, target.Variance, ref.Mean, ref.Variance) {
		cmp.Reason = errors.NewInsufficientDataError("", "non-finite group statistics").Error()
		return cmp
	}

	cmp.MeanDifference = target.Mean - ref.Mean
	cmp.Log2FoldChange = log2FoldChange(target, ref, c.policy.Pseudocount)
	d, dOK := cohensD(target, ref)
	cmp.CohensD = d

	w := welchTest(target, ref)
	cmp.TStatistic, cmp.DF, cmp.PValue = w.t, w.df, w.p

	// The p-value gate needs a defined test; two constant groups with
	// different means have no standard error.
	if c.policy.MaxPValue > 0 && target.Variance == 0 && ref.Variance == 0 && cmp.MeanDifference != 0 {
		cmp.Reason = errors.NewInsufficientDataError("",
			"Welch's t-test is undefined: both groups are constant with different means").Error()
		return cmp
	}

	switch c.policy.Metric {
	case Log2FoldChange:
		cmp.Effect = cmp.Log2FoldChange
	case CohensD:
		if !dOK {
			cmp.Reason = errors.NewInsufficientDataError("",
				"Cohen's d is undefined: both groups are constant with different means").Error()
			return cmp
		}
		cmp.Effect = d
	default:
		cmp.Effect = cmp.MeanDifference
	}

	if !finite(cmp.Effect) {
		cmp.Reason = errors.NewInsufficientDataError("", "effect size is not finite").Error()
		return cmp
	}

	cmp.Direction, cmp.Significant = c.policy.decide(cmp.Effect, cmp.PValue)
	return cmp
}

// resolveReferences validates the requested references or picks the default
// set. explicit reports whether the caller named references.
func resolveReferences(ds Dataset, target expression.Group, requested []expression.Group) ([]expression.Group, bool, error) {
	if len(requested) == 0 {
		counts := ds.GroupCounts()
		var refs []expression.Group
		for _, g := range expression.Groups() {
			if g != target && counts[g] > 0 {
				refs = append(refs, g)
			}
		}
		return refs, false, nil
	}

	seen := make(map[expression.Group]bool, len(requested))
	refs := make([]expression.Group, 0, len(requested))
	for _, g := range requested {
		if !g.Valid() {
			return nil, true, errors.NewValidationError("references", g, "unknown group")
		}
		if g == target {
			return nil, true, errors.NewValidationError("references", g, "reference cannot equal the target group")
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		refs = append(refs, g)
	}
	return refs, true, nil
}
