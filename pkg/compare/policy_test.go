package compare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

func TestDefaultPolicy(t *testing.T) {
	p := compare.DefaultPolicy()

	assert.Equal(t, compare.MeanDifference, p.Metric)
	assert.Equal(t, 0.5, p.Threshold)
	assert.Zero(t, p.MaxPValue)
	assert.Equal(t, 2, p.MinCells)
	assert.Equal(t, 1.0, p.Pseudocount)
	assert.NoError(t, p.Validate())
	assert.Equal(t, "|mean_difference| > 0.5", p.String())

	p.MaxPValue = 0.05
	assert.Equal(t, "|mean_difference| > 0.5 and p <= 0.05", p.String())
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *compare.Policy)
		field  string
	}{
		{"unknown metric", func(p *compare.Policy) { p.Metric = "auc" }, "metric"},
		{"negative threshold", func(p *compare.Policy) { p.Threshold = -0.1 }, "threshold"},
		{"p-value above one", func(p *compare.Policy) { p.MaxPValue = 1.5 }, "max_p_value"},
		{"negative p-value", func(p *compare.Policy) { p.MaxPValue = -0.01 }, "max_p_value"},
		{"single cell groups", func(p *compare.Policy) { p.MinCells = 1 }, "min_cells"},
		{"zero pseudocount", func(p *compare.Policy) { p.Pseudocount = 0 }, "pseudocount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := compare.DefaultPolicy()
			tt.modify(&p)

			err := p.Validate()
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)

			_, err = compare.New(p)
			assert.Error(t, err)
		})
	}
}

func TestParseMetric(t *testing.T) {
	tests := map[string]compare.Metric{
		"mean_difference":  compare.MeanDifference,
		"diff":             compare.MeanDifference,
		"LOG2FC":           compare.Log2FoldChange,
		"log2_fold_change": compare.Log2FoldChange,
		"cohens-d":         compare.CohensD,
		" d ":              compare.CohensD,
	}
	for input, want := range tests {
		got, err := compare.ParseMetric(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := compare.ParseMetric("median")
	assert.True(t, errors.IsValidationError(err))
}

func TestSummarize(t *testing.T) {
	t.Run("quartiles and expressing fraction", func(t *testing.T) {
		values := []float64{0, 4, 1, 0, 3, 2, 0, 5}
		s := compare.Summarize(expression.Normal, values)

		assert.Equal(t, expression.Normal, s.Group)
		assert.Equal(t, 8, s.N)
		assert.InDelta(t, 15.0/8.0, s.Mean, 1e-12)
		assert.InDelta(t, 0.625, s.FractionExpressing, 1e-12)
		assert.Equal(t, 0.0, s.Min)
		assert.Equal(t, 5.0, s.Max)
		assert.LessOrEqual(t, s.Q1, s.Median)
		assert.LessOrEqual(t, s.Median, s.Q3)
		assert.Equal(t, []float64{0, 4, 1, 0, 3, 2, 0, 5}, values, "input must not be reordered")
	})

	t.Run("single cell has no spread", func(t *testing.T) {
		s := compare.Summarize(expression.Eczema, []float64{2})
		assert.Equal(t, 1, s.N)
		assert.Equal(t, 2.0, s.Mean)
		assert.Zero(t, s.SD)
		assert.Zero(t, s.Variance)
		assert.Equal(t, 2.0, s.Median)
	})

	t.Run("empty", func(t *testing.T) {
		s := compare.Summarize(expression.Tumor, nil)
		assert.Zero(t, s.N)
		assert.Zero(t, s.Mean)
	})
}
