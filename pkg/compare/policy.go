package compare

import (
	"fmt"
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// Metric selects the effect size that drives the significance decision.
type Metric string

// Supported metrics.
const (
	MeanDifference Metric = "mean_difference"
	Log2FoldChange Metric = "log2_fold_change"
	CohensD        Metric = "cohens_d"
)

// Metrics returns every supported metric.
func Metrics() []Metric {
	return []Metric{MeanDifference, Log2FoldChange, CohensD}
}

// String returns the metric name.
func (m Metric) String() string { return string(m) }

// ParseMetric parses a metric name or a common abbreviation.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean_difference", "mean-difference", "diff", "mean_diff":
		return MeanDifference, nil
	case "log2_fold_change", "log2-fold-change", "log2fc", "lfc":
		return Log2FoldChange, nil
	case "cohens_d", "cohens-d", "cohen", "d":
		return CohensD, nil
	default:
		return "", errors.NewValidationError("metric", s,
			"must be one of mean_difference, log2_fold_change, cohens_d")
	}
}

// Policy is the threshold policy that turns effect sizes into a discrete
// decision. A comparison is significant when |effect| > Threshold and, if
// MaxPValue is positive, the Welch p-value is at most MaxPValue.
type Policy struct {
	Metric      Metric  `json:"metric" yaml:"metric" mapstructure:"metric"`
	Threshold   float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	MaxPValue   float64 `json:"max_p_value" yaml:"max_p_value" mapstructure:"max_p_value"`
	MinCells    int     `json:"min_cells" yaml:"min_cells" mapstructure:"min_cells"`
	Pseudocount float64 `json:"pseudocount" yaml:"pseudocount" mapstructure:"pseudocount"`
}

// DefaultPolicy returns the dashboard rule: the mean difference must exceed 0.5.
func DefaultPolicy() Policy {
	return Policy{
		Metric:      MeanDifference,
		Threshold:   constants.DefaultEffectThreshold,
		MaxPValue:   constants.DefaultMaxPValue,
		MinCells:    constants.DefaultMinCells,
		Pseudocount: constants.DefaultPseudocount,
	}
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	if _, err := ParseMetric(string(p.Metric)); err != nil {
		return err
	}
	if p.Threshold < 0 {
		return errors.NewValidationError("threshold", p.Threshold, "cannot be negative")
	}
	if p.MaxPValue < 0 || p.MaxPValue > 1 {
		return errors.NewValidationError("max_p_value", p.MaxPValue, "must be between 0 and 1")
	}
	if p.MinCells < 2 {
		return errors.NewValidationError("min_cells", p.MinCells, "must be at least 2")
	}
	if p.Pseudocount <= 0 {
		return errors.NewValidationError("pseudocount", p.Pseudocount, "must be positive")
	}
	return nil
}

// String describes the policy in one line.
func (p Policy) String() string {
	s := fmt.Sprintf("|%s| > %g", p.Metric, p.Threshold)
	if p.MaxPValue > 0 {
		s += fmt.Sprintf(" and p <= %g", p.MaxPValue)
	}
	return s
}

// decide applies the policy to an effect and p-value.
func (p Policy) decide(effect, pValue float64) (Direction, bool) {
	significant := abs(effect) > p.Threshold
	if significant && p.MaxPValue > 0 {
		significant = pValue <= p.MaxPValue
	}
	switch {
	case significant && effect > 0:
		return Higher, true
	case significant && effect < 0:
		return Lower, true
	default:
		return NoDifference, false
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
