package cmdutil

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas/internal/cmd/output"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

func TestPolicyFlagsApplyOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddPolicyFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--threshold", "1.5", "--metric", "cohens_d"}))

	base := compare.DefaultPolicy()
	base.MinCells = 5

	p, err := flags.Apply(cmd, base)
	require.NoError(t, err)
	assert.Equal(t, compare.CohensD, p.Metric)
	assert.InDelta(t, 1.5, p.Threshold, 1e-12)
	assert.Equal(t, 5, p.MinCells, "unchanged flag must keep the configured value")
	assert.True(t, flags.Changed(cmd))
}

func TestPolicyFlagsApplyRejectsBadMetric(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddPolicyFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--metric", "z_score"}))

	_, err := flags.Apply(cmd, compare.DefaultPolicy())
	assert.Error(t, err)
}

func TestPolicyFlagsUnchanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddPolicyFlags(cmd)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.False(t, flags.Changed(cmd))
}

func TestComparisonFlagsRequest(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddComparisonFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"-t", "Tumor", "-r", "eczema,normal"}))

	req, err := flags.Request("tox")
	require.NoError(t, err)
	assert.Equal(t, expression.Tumor, req.Target)
	assert.Equal(t, []expression.Group{expression.Eczema, expression.Normal}, req.References)
	assert.Equal(t, "tox", req.Gene)
}

func TestComparisonFlagsBadGroup(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddComparisonFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--ref", "psoriasis"}))

	_, err := flags.Request("TOX")
	assert.Error(t, err)
}

func TestPageFlagsPage(t *testing.T) {
	genes := []string{"A", "B", "C", "D"}

	tests := []struct {
		name   string
		flags  PageFlags
		expect []string
	}{
		{"all", PageFlags{}, genes},
		{"limit", PageFlags{Limit: 2}, []string{"A", "B"}},
		{"offset", PageFlags{Offset: 3}, []string{"D"}},
		{"past end", PageFlags{Offset: 9}, []string{}},
		{"negative offset", PageFlags{Offset: -1, Limit: 1}, []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.flags.Page(genes))
		})
	}
}

func TestReportMarksError(t *testing.T) {
	var buf bytes.Buffer
	err := Report(&buf, output.FormatTable, errors.NewUnknownGeneError("TOKS", "TOX"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReported)
	assert.True(t, errors.IsUnknownGene(err))
	assert.Contains(t, buf.String(), "Gene TOKS not found in the dataset")
	assert.Contains(t, buf.String(), "Did you mean: TOX?")
	assert.NoError(t, Report(&buf, output.FormatTable, nil))
}
