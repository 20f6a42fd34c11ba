package compare

import (
	"encoding/json"
	"math"

	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// Direction is the discrete outcome of a comparison.
type Direction string

// Directions. Mixed only appears on a Verdict with several references that
// disagree.
const (
	Higher        Direction = "higher"
	Lower         Direction = "lower"
	NoDifference  Direction = "no_difference"
	Mixed         Direction = "mixed"
	Indeterminate Direction = "indeterminate"
)

// String returns the direction name.
func (d Direction) String() string { return string(d) }

// Comparison is the target group measured against one reference group.
type Comparison struct {
	Target    GroupSummary `json:"target" yaml:"target"`
	Reference GroupSummary `json:"reference" yaml:"reference"`

	MeanDifference float64 `json:"mean_difference" yaml:"mean_difference"`
	Log2FoldChange float64 `json:"log2_fold_change" yaml:"log2_fold_change"`
	// CohensD is zero when undefined (constant groups with different means).
	CohensD    float64 `json:"cohens_d" yaml:"cohens_d"`
	TStatistic float64 `json:"t_statistic" yaml:"t_statistic"`
	DF         float64 `json:"df" yaml:"df"`
	PValue     float64 `json:"p_value" yaml:"p_value"`

	Metric      Metric    `json:"metric" yaml:"metric"`
	Effect      float64   `json:"effect" yaml:"effect"`
	Direction   Direction `json:"direction" yaml:"direction"`
	Significant bool      `json:"significant" yaml:"significant"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// MarshalJSON encodes non-finite statistics as null.
func (c Comparison) MarshalJSON() ([]byte, error) {
	type alias Comparison
	return json.Marshal(struct {
		alias
		TStatistic *float64 `json:"t_statistic"`
		DF         *float64 `json:"df"`
		PValue     *float64 `json:"p_value"`
	}{
		alias:      alias(c),
		TStatistic: finitePtr(c.TStatistic),
		DF:         finitePtr(c.DF),
		PValue:     finitePtr(c.PValue),
	})
}

func finitePtr(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// Verdict is the result of comparing one gene in a target group against one
// or more reference groups.
type Verdict struct {
	Gene        string           `json:"gene" yaml:"gene"`
	Target      expression.Group `json:"target" yaml:"target"`
	Comparisons []Comparison     `json:"comparisons" yaml:"comparisons"`
	Direction   Direction        `json:"direction" yaml:"direction"`
	// Significant is true when every comparison is significant in the same direction.
	Significant bool   `json:"significant" yaml:"significant"`
	Policy      Policy `json:"policy" yaml:"policy"`
}

// Clone returns a deep copy of v.
func (v *Verdict) Clone() *Verdict {
	if v == nil {
		return nil
	}
	c := *v
	c.Comparisons = append([]Comparison(nil), v.Comparisons...)
	return &c
}

// Comparison returns the comparison against ref.
func (v *Verdict) Comparison(ref expression.Group) (Comparison, bool) {
	for _, c := range v.Comparisons {
		if c.Reference.Group == ref {
			return c, true
		}
	}
	return Comparison{}, false
}

// References returns the reference groups in comparison order.
func (v *Verdict) References() []expression.Group {
	refs := make([]expression.Group, len(v.Comparisons))
	for i, c := range v.Comparisons {
		refs[i] = c.Reference.Group
	}
	return refs
}

// Summaries returns the target summary followed by each reference summary.
func (v *Verdict) Summaries() []GroupSummary {
	if len(v.Comparisons) == 0 {
		return nil
	}
	out := []GroupSummary{v.Comparisons[0].Target}
	for _, c := range v.Comparisons {
		out = append(out, c.Reference)
	}
	return out
}

// overall combines per-reference directions into the verdict direction.
func overall(comparisons []Comparison) Direction {
	if len(comparisons) == 0 {
		return Indeterminate
	}
	var higher, lower int
	for _, c := range comparisons {
		switch c.Direction {
		case Indeterminate:
			return Indeterminate
		case Higher:
			higher++
		case Lower:
			lower++
		}
	}
	switch {
	case higher == len(comparisons):
		return Higher
	case lower == len(comparisons):
		return Lower
	case higher == 0 && lower == 0:
		return NoDifference
	default:
		return Mixed
	}
}
