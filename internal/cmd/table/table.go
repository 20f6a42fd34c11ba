// Package table converts atlas results into rows for CLI table output.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctcl-atlas/atlas/internal/cmd/emoji"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/insight"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
	Footer          string  // Optional: printed under the table
}

// DatasetToTableData converts dataset statistics to a key-value table.
func DatasetToTableData(stats expression.Stats) Data {
	rows := [][]string{
		{"Name", stats.Name},
		{"Source", stats.Source},
		{"Cells", FormatNumber(int64(stats.Cells))},
		{"Genes", FormatNumber(int64(stats.Genes))},
		{"Non-zero entries", FormatNumber(int64(stats.NonZero))},
		{"Density", fmt.Sprintf("%.2f%%", stats.Density*100)},
	}
	for _, g := range expression.Groups() {
		rows = append(rows, []string{g.Label() + " cells", FormatNumber(int64(stats.Groups[g]))})
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// SummariesToTableData converts per-group summaries of one gene. Wide output
// adds the quartiles and range.
func SummariesToTableData(gene string, summaries []compare.GroupSummary, wide bool) Data {
	headers := []string{"Group", "Cells", "Mean", "SD", "Expressing"}
	align := []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight}
	if wide {
		headers = append(headers, "Min", "Q1", "Median", "Q3", "Max")
		align = append(align, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight)
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		row := []string{
			s.Group.Label(),
			strconv.Itoa(s.N),
			FormatFloat(s.Mean),
			FormatFloat(s.SD),
			formatPercent(s.FractionExpressing),
		}
		if wide {
			row = append(row,
				FormatFloat(s.Min),
				FormatFloat(s.Q1),
				FormatFloat(s.Median),
				FormatFloat(s.Q3),
				FormatFloat(s.Max),
			)
		}
		rows = append(rows, row)
	}

	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: align,
		Footer:          "Gene: " + gene,
	}
}

// VerdictToTableData converts a verdict to one row per reference group.
func VerdictToTableData(v *compare.Verdict, wide bool) Data {
	headers := []string{"Reference", "Target Mean", "Ref Mean", "Effect", "P", "Direction", ""}
	align := []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft, AlignCenter}
	if wide {
		headers = append(headers, "Mean Diff", "Log2FC", "Cohen's d", "t", "df", "Reason")
		align = append(align, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(v.Comparisons))
	for _, c := range v.Comparisons {
		row := []string{
			c.Reference.Group.Label(),
			FormatFloat(c.Target.Mean),
			FormatFloat(c.Reference.Mean),
			FormatFloat(c.Effect),
			FormatPValue(c.PValue),
			string(c.Direction),
			significance(c.Significant),
		}
		if wide {
			row = append(row,
				FormatFloat(c.MeanDifference),
				FormatFloat(c.Log2FoldChange),
				FormatFloat(c.CohensD),
				FormatFloat(c.TStatistic),
				FormatFloat(c.DF),
				dash(c.Reason),
			)
		}
		rows = append(rows, row)
	}

	footer := fmt.Sprintf("%s in %s: %s %s (%s)",
		v.Gene, v.Target.Label(), v.Direction, significance(v.Significant), v.Policy)
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align, Footer: footer}
}

// InsightToTableData converts the findings of an insight.
func InsightToTableData(ins insight.Insight) Data {
	rows := make([][]string, 0, len(ins.Findings))
	for _, f := range ins.Findings {
		rows = append(rows, []string{
			f.Reference.Label(),
			string(f.Trend),
			FormatFloat(f.TargetMean),
			FormatFloat(f.ReferenceMean),
			strings.Join(f.Sentences, " "),
		})
	}
	return Data{
		Headers:         []string{"Reference", "Trend", "Target Mean", "Ref Mean", "Interpretation"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft},
		Footer:          ins.Headline,
	}
}

// GenesToTableData converts a page of gene symbols.
func GenesToTableData(genes []string, total int) Data {
	rows := make([][]string, 0, len(genes))
	for _, g := range genes {
		rows = append(rows, []string{g})
	}
	return Data{
		Headers: []string{"Gene"},
		Rows:    rows,
		Footer:  fmt.Sprintf("%d of %s genes", len(genes), FormatNumber(int64(total))),
	}
}

// QuickGenesToTableData converts the quick-select markers. Markers missing
// from the dataset are flagged.
func QuickGenesToTableData(genes []insight.QuickGene, present func(string) bool) Data {
	rows := make([][]string, 0, len(genes))
	for _, g := range genes {
		status := emoji.Success
		if present != nil && !present(g.Symbol) {
			status = emoji.Error
		}
		rows = append(rows, []string{g.Symbol, g.Role, status})
	}
	return Data{
		Headers:         []string{"Gene", "Role", "In Dataset"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignCenter},
	}
}

// FormatNumber formats large numbers with comma separators.
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}

	var b strings.Builder
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatFloat formats a statistic with three decimals, or "-" when undefined.
func FormatFloat(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "-"
	}
	return strconv.FormatFloat(x, 'f', 3, 64)
}

// formatPercent formats a fraction as a percentage.
func formatPercent(x float64) string {
	return fmt.Sprintf("%.1f%%", x*100)
}

// FormatPValue formats a p-value, switching to scientific notation below 0.001.
func FormatPValue(p float64) string {
	switch {
	case math.IsNaN(p) || math.IsInf(p, 0):
		return "-"
	case p < 0.001:
		return strconv.FormatFloat(p, 'e', 2, 64)
	default:
		return strconv.FormatFloat(p, 'f', 3, 64)
	}
}

func significance(ok bool) string {
	if ok {
		return emoji.Success
	}
	return emoji.Optional
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
