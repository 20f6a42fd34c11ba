package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas/internal/cmd/table"
	"github.com/ctcl-atlas/atlas/pkg/insight"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"wide", FormatWide, false},
		{"markdown", FormatMarkdown, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := table.GenesToTableData([]string{"TOX", "CCR4"}, 2)

	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))
	out := buf.String()
	assert.Contains(t, out, "TOX")
	assert.Contains(t, out, "CCR4")
	assert.Contains(t, out, "2 of 2 genes")
}

func TestTableFormatterReflection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, insight.QuickGenes()))
	out := buf.String()
	for _, q := range insight.QuickGenes() {
		assert.Contains(t, out, q.Symbol)
	}
}

func TestTableFormatterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"cells": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got["cells"])
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := table.GenesToTableData([]string{"TOX"}, 1)

	require.NoError(t, NewFormatter(FormatMarkdown).Format(&buf, data))
	out := buf.String()
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "TOX")
	assert.Contains(t, out, "1 of 1 genes")
}

func TestMarkdownFormatterNonTabular(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatMarkdown).Format(&buf, map[string]string{"gene": "TOX"}))
	out := buf.String()
	assert.Contains(t, out, "```json")
	assert.Contains(t, out, `"gene": "TOX"`)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, insight.QuickGenes()[:1]))
	assert.Equal(t, "- symbol: TOX\n  role: Exhaustion\n", buf.String())
}

func TestWriteUsesRawForStructuredFormats(t *testing.T) {
	var buf bytes.Buffer
	err := FormatGenes(&buf, FormatJSON, []string{"TOX"}, 4)
	require.NoError(t, err)

	var got struct {
		Genes []string `json:"genes"`
		Total int      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"TOX"}, got.Genes)
	assert.Equal(t, 4, got.Total)
}

func TestWriteQuickGenesFlagsMissing(t *testing.T) {
	var buf bytes.Buffer
	present := func(g string) bool { return g != "MKI67" }
	err := Write(&buf, FormatWide, insight.QuickGenes(), func() Data {
		return table.QuickGenesToTableData(insight.QuickGenes(), present)
	})
	require.NoError(t, err)

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "MKI67") {
			assert.Contains(t, line, "✗")
		}
	}
}

func TestFormatInsight(t *testing.T) {
	ins := insight.Insight{
		Gene:     "TOX",
		Target:   "tumor",
		Headline: "Higher in CTCL",
		Findings: []insight.Finding{{
			Reference:  "eczema",
			Trend:      insight.SignificantlyHigher,
			TargetMean: 2.5,
			Sentences:  []string{"TOX is higher in tumor cells."},
		}},
	}

	var text bytes.Buffer
	require.NoError(t, FormatInsight(&text, FormatTable, ins))
	assert.Equal(t, insight.Text(ins), text.String())

	var wide bytes.Buffer
	require.NoError(t, FormatInsight(&wide, FormatWide, ins))
	assert.True(t, strings.HasPrefix(wide.String(), insight.Text(ins)))
	assert.Contains(t, wide.String(), "SIGNIFICANTLY HIGHER")

	var markdown bytes.Buffer
	require.NoError(t, FormatInsight(&markdown, FormatMarkdown, ins))
	want, err := insight.MarkdownString(ins)
	require.NoError(t, err)
	assert.Equal(t, want, markdown.String())

	var raw bytes.Buffer
	require.NoError(t, FormatInsight(&raw, FormatJSON, ins))
	var got insight.Insight
	require.NoError(t, json.Unmarshal(raw.Bytes(), &got))
	assert.Equal(t, "TOX", got.Gene)
}
