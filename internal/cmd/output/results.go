package output

import (
	"io"

	"github.com/ctcl-atlas/atlas/internal/cmd/table"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/insight"
)

// Tabular reports whether format renders table data rather than the raw value.
func Tabular(format Format) bool {
	switch format {
	case FormatTable, FormatWide, FormatMarkdown, "":
		return true
	}
	return false
}

// Write handles the common pattern of formatting a result for output: tabular
// formats get the rows built by toTable, the rest get raw.
func Write(w io.Writer, format Format, raw any, toTable func() Data) error {
	formatter := NewFormatter(format)
	if Tabular(format) && toTable != nil {
		return formatter.Format(w, toTable())
	}
	return formatter.Format(w, raw)
}

// FormatDataset writes dataset statistics.
func FormatDataset(w io.Writer, format Format, stats expression.Stats) error {
	return Write(w, format, stats, func() Data {
		return table.DatasetToTableData(stats)
	})
}

// FormatSummaries writes the per-group summaries of one gene.
func FormatSummaries(w io.Writer, format Format, gene string, summaries []compare.GroupSummary) error {
	raw := map[string]any{"gene": gene, "summaries": summaries}
	return Write(w, format, raw, func() Data {
		return table.SummariesToTableData(gene, summaries, format == FormatWide)
	})
}

// FormatVerdict writes a comparison verdict.
func FormatVerdict(w io.Writer, format Format, v *compare.Verdict) error {
	return Write(w, format, v, func() Data {
		return table.VerdictToTableData(v, format == FormatWide)
	})
}

// FormatGenes writes a page of gene symbols.
func FormatGenes(w io.Writer, format Format, genes []string, total int) error {
	raw := map[string]any{"genes": genes, "total": total}
	return Write(w, format, raw, func() Data {
		return table.GenesToTableData(genes, total)
	})
}

// FormatInsight writes an insight. Table output is the plain-text report,
// wide adds the findings table and markdown is the full report.
func FormatInsight(w io.Writer, format Format, ins insight.Insight) error {
	switch format {
	case FormatTable, "":
		_, err := io.WriteString(w, insight.Text(ins))
		return err
	case FormatWide:
		if _, err := io.WriteString(w, insight.Text(ins)+"\n"); err != nil {
			return err
		}
		return NewFormatter(FormatTable).Format(w, table.InsightToTableData(ins))
	case FormatMarkdown:
		return insight.Markdown(w, ins)
	default:
		return NewFormatter(format).Format(w, ins)
	}
}
