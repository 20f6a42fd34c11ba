// Package insight turns comparator verdicts into clinical wording: a trend
// label with a display color, a headline and short sentences for the
// dashboard, CLI and API.
//
// The package holds wording only. Every numeric decision is made by
// package compare; Generate never changes a verdict.
package insight

import (
	"fmt"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// Trend is the clinical trend label shown for a comparison.
type Trend string

// Trend labels.
const (
	SignificantlyHigher     Trend = "SIGNIFICANTLY HIGHER"
	SlightlyHigher          Trend = "Slightly Higher"
	LowerOrSame             Trend = "Lower or Same"
	SignificantlyLower      Trend = "SIGNIFICANTLY LOWER"
	NoSignificantDifference Trend = "No Significant Difference"
	InsufficientData        Trend = "Insufficient data for automated insight."
)

// Display colors.
const (
	ColorRed    = "#d9534f"
	ColorOrange = "#f0ad4e"
	ColorGreen  = "#5cb85c"
	ColorGrey   = "#777777"
)

// Headlines for the overall verdict.
const (
	HeadlineNoDifference  = "No Significant Difference"
	HeadlineMixed         = "Mixed across reference groups"
	HeadlineIndeterminate = "Indeterminate"
)

// Finding is the wording for one target/reference comparison.
type Finding struct {
	Reference     expression.Group  `json:"reference" yaml:"reference"`
	Trend         Trend             `json:"trend" yaml:"trend"`
	Color         string            `json:"color" yaml:"color"`
	Direction     compare.Direction `json:"direction" yaml:"direction"`
	Significant   bool              `json:"significant" yaml:"significant"`
	TargetMean    float64           `json:"target_mean" yaml:"target_mean"`
	ReferenceMean float64           `json:"reference_mean" yaml:"reference_mean"`
	Sentences     []string          `json:"sentences" yaml:"sentences"`
}

// Insight is the wording for a whole verdict.
type Insight struct {
	Gene        string            `json:"gene" yaml:"gene"`
	Target      expression.Group  `json:"target" yaml:"target"`
	Headline    string            `json:"headline" yaml:"headline"`
	Direction   compare.Direction `json:"direction" yaml:"direction"`
	Significant bool              `json:"significant" yaml:"significant"`
	// Trend and Color come from the primary finding, the Eczema comparison
	// when present.
	Trend    Trend     `json:"trend" yaml:"trend"`
	Color    string    `json:"color" yaml:"color"`
	Findings []Finding `json:"findings" yaml:"findings"`
	Policy   string    `json:"policy" yaml:"policy"`
}

// Generate phrases a verdict.
func Generate(v *compare.Verdict) Insight {
	ins := Insight{
		Gene:        v.Gene,
		Target:      v.Target,
		Headline:    headline(v),
		Direction:   v.Direction,
		Significant: v.Significant,
		Findings:    make([]Finding, 0, len(v.Comparisons)),
		Policy:      v.Policy.String(),
	}
	for _, c := range v.Comparisons {
		ins.Findings = append(ins.Findings, describe(v.Gene, c))
	}

	if p, ok := ins.Primary(); ok {
		ins.Trend, ins.Color = p.Trend, p.Color
	} else {
		ins.Trend, ins.Color = InsufficientData, ColorGrey
	}
	return ins
}

// Primary returns the finding against Eczema, the benign mimic the dashboard
// is built around, or the first finding when Eczema was not compared.
func (i Insight) Primary() (Finding, bool) {
	if len(i.Findings) == 0 {
		return Finding{}, false
	}
	for _, f := range i.Findings {
		if f.Reference == expression.Eczema {
			return f, true
		}
	}
	return i.Findings[0], true
}

func headline(v *compare.Verdict) string {
	switch v.Direction {
	case compare.Higher:
		return "Higher in " + v.Target.Short()
	case compare.Lower:
		return "Lower in " + v.Target.Short()
	case compare.NoDifference:
		return HeadlineNoDifference
	case compare.Mixed:
		return HeadlineMixed
	default:
		return HeadlineIndeterminate
	}
}

// TrendFor maps a single comparison to its trend label and color.
func TrendFor(c compare.Comparison) (Trend, string) {
	switch {
	case c.Direction == compare.Indeterminate:
		return InsufficientData, ColorGrey
	case c.Significant && c.Direction == compare.Higher:
		return SignificantlyHigher, ColorRed
	case c.Significant && c.Direction == compare.Lower:
		return SignificantlyLower, ColorGreen
	case c.MeanDifference > 0:
		return SlightlyHigher, ColorOrange
	case c.MeanDifference == 0:
		return NoSignificantDifference, ColorGreen
	default:
		return LowerOrSame, ColorGreen
	}
}

func describe(gene string, c compare.Comparison) Finding {
	trend, color := TrendFor(c)
	f := Finding{
		Reference:     c.Reference.Group,
		Trend:         trend,
		Color:         color,
		Direction:     c.Direction,
		Significant:   c.Significant,
		TargetMean:    c.Target.Mean,
		ReferenceMean: c.Reference.Mean,
	}

	if c.Direction == compare.Indeterminate {
		f.Sentences = []string{string(InsufficientData)}
		if c.Reason != "" {
			f.Sentences = append(f.Sentences, "Reason: "+c.Reason+".")
		}
		return f
	}

	f.Sentences = []string{
		fmt.Sprintf("Average expression of %s in %s: %.2f", gene, c.Target.Group.Label(), c.Target.Mean),
		fmt.Sprintf("Average expression of %s in %s: %.2f", gene, c.Reference.Group.Label(), c.Reference.Mean),
		fmt.Sprintf("Clinical Trend: %s in %s vs. %s.", trend, c.Target.Group.Short(), ReferencePhrase(c.Reference.Group)),
		fmt.Sprintf("Effect (%s) %.2f, log2 fold change %.2f, Welch p = %s.",
			c.Metric, c.Effect, c.Log2FoldChange, formatP(c.PValue)),
	}
	return f
}

// ReferencePhrase names a reference group the way clinicians talk about it.
func ReferencePhrase(g expression.Group) string {
	switch g {
	case expression.Eczema:
		return "Benign mimic"
	case expression.Normal:
		return "Healthy skin"
	default:
		return g.Short()
	}
}

func formatP(p float64) string {
	if p < 0.001 {
		return "< 0.001"
	}
	return fmt.Sprintf("%.3f", p)
}
