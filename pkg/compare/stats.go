package compare

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// GroupSummary holds the descriptive statistics of one gene in one group.
// Spread fields are zero when the group has fewer than two cells.
type GroupSummary struct {
	Group              expression.Group `json:"group" yaml:"group"`
	N                  int              `json:"n" yaml:"n"`
	Mean               float64          `json:"mean" yaml:"mean"`
	SD                 float64          `json:"sd" yaml:"sd"`
	Variance           float64          `json:"variance" yaml:"variance"`
	FractionExpressing float64          `json:"fraction_expressing" yaml:"fraction_expressing"`
	Min                float64          `json:"min" yaml:"min"`
	Q1                 float64          `json:"q1" yaml:"q1"`
	Median             float64          `json:"median" yaml:"median"`
	Q3                 float64          `json:"q3" yaml:"q3"`
	Max                float64          `json:"max" yaml:"max"`
}

// Summarize computes the summary of values for group. The input is not modified.
func Summarize(group expression.Group, values []float64) GroupSummary {
	s := GroupSummary{Group: group, N: len(values)}
	if s.N == 0 {
		return s
	}

	s.Mean = stat.Mean(values, nil)
	if s.N > 1 {
		s.Variance = stat.Variance(values, nil)
		s.SD = math.Sqrt(s.Variance)
	}

	expressing := 0
	for _, v := range values {
		if v > 0 {
			expressing++
		}
	}
	s.FractionExpressing = float64(expressing) / float64(s.N)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return s
}

// welch holds the result of Welch's unequal-variance t-test.
type welch struct {
	t, df, p float64
}

// welchTest runs a two-sided Welch t-test from summary statistics. When both
// groups have zero variance the test degenerates: equal means give p = 1 and
// different means give p = 0 with an infinite statistic.
func welchTest(a, b GroupSummary) welch {
	diff := a.Mean - b.Mean
	va := a.Variance / float64(a.N)
	vb := b.Variance / float64(b.N)
	se2 := va + vb

	if se2 == 0 {
		df := float64(a.N + b.N - 2)
		if diff == 0 {
			return welch{t: 0, df: df, p: 1}
		}
		return welch{t: math.Copysign(math.Inf(1), diff), df: df, p: 0}
	}

	t := diff / math.Sqrt(se2)
	df := se2 * se2 / (va*va/float64(a.N-1) + vb*vb/float64(b.N-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return welch{t: t, df: df, p: p}
}

// cohensD returns the standardized mean difference using the pooled standard
// deviation. ok is false when the pooled deviation is zero and the means differ.
func cohensD(a, b GroupSummary) (d float64, ok bool) {
	diff := a.Mean - b.Mean
	dof := float64(a.N + b.N - 2)
	pooled := math.Sqrt((float64(a.N-1)*a.Variance + float64(b.N-1)*b.Variance) / dof)
	if pooled == 0 {
		if diff == 0 {
			return 0, true
		}
		return 0, false
	}
	return diff / pooled, true
}

// log2FoldChange returns log2((a + pseudocount) / (b + pseudocount)).
func log2FoldChange(a, b GroupSummary, pseudocount float64) float64 {
	return math.Log2((a.Mean + pseudocount) / (b.Mean + pseudocount))
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
