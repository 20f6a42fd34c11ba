package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ctcl-atlas/atlas/internal/cmd/cmdutil"
	atlaserrors "github.com/ctcl-atlas/atlas/pkg/errors"
)

// run executes the CLI against a fresh app and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	app := newTestApp(t, nil)

	var stdout, stderr bytes.Buffer
	root := app.createRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExecute_Version(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ctclatlas 1.0.0\n" {
		t.Errorf("version output = %q", out)
	}

	out, _, err = run(t, "version", "-v")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "commit:   abc123") {
		t.Errorf("verbose version output missing commit: %q", out)
	}
}

func TestExecute_Dataset(t *testing.T) {
	out, _, err := run(t, "dataset", "-d", writeDataset(t), "-o", "json")
	if err != nil {
		t.Fatal(err)
	}

	var stats struct {
		Name   string         `json:"name"`
		Cells  int            `json:"cells"`
		Genes  int            `json:"genes"`
		Groups map[string]int `json:"groups"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if stats.Name != "Test Atlas" || stats.Cells != 9 || stats.Genes != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Groups["eczema"] != 3 {
		t.Errorf("eczema cells = %d, want 3", stats.Groups["eczema"])
	}
}

func TestExecute_Compare(t *testing.T) {
	dataset := writeDataset(t)

	out, _, err := run(t, "compare", "tox", "-d", dataset, "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var verdict struct {
		Gene        string `json:"gene"`
		Direction   string `json:"direction"`
		Significant bool   `json:"significant"`
		Comparisons []struct {
			Reference struct {
				Group string `json:"group"`
			} `json:"reference"`
		} `json:"comparisons"`
	}
	if err := json.Unmarshal([]byte(out), &verdict); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if verdict.Gene != "TOX" || verdict.Direction != "higher" || !verdict.Significant {
		t.Errorf("verdict = %+v", verdict)
	}
	if len(verdict.Comparisons) != 2 {
		t.Errorf("comparisons = %d, want 2 (normal and eczema)", len(verdict.Comparisons))
	}

	out, _, err = run(t, "compare", "TOX", "-d", dataset, "-o", "json", "--ref", "eczema", "--threshold", "100")
	if err != nil {
		t.Fatal(err)
	}
	verdict.Significant = true
	if err := json.Unmarshal([]byte(out), &verdict); err != nil {
		t.Fatal(err)
	}
	if verdict.Significant {
		t.Error("threshold flag not applied")
	}
	if len(verdict.Comparisons) != 1 || verdict.Comparisons[0].Reference.Group != "eczema" {
		t.Errorf("--ref eczema not applied: %+v", verdict.Comparisons)
	}
}

func TestExecute_Insight(t *testing.T) {
	dataset := writeDataset(t)

	out, _, err := run(t, "insight", "-d", dataset, "-o", "table")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Automated Insight for TOX") {
		t.Errorf("default gene insight = %q", out)
	}

	out, _, err = run(t, "insight", "CCR4", "-d", dataset, "-o", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "## Automated Insight for CCR4") {
		t.Errorf("markdown insight = %q", out)
	}
}

func TestExecute_UnknownGene(t *testing.T) {
	out, errOut, err := run(t, "insight", "TOKS", "-d", writeDataset(t), "-o", "table")
	if !errors.Is(err, cmdutil.ErrReported) {
		t.Fatalf("error = %v, want reported", err)
	}
	if !atlaserrors.IsUnknownGene(err) {
		t.Errorf("error = %v, want unknown gene", err)
	}
	if out != "" {
		t.Errorf("unexpected stdout %q", out)
	}
	for _, want := range []string{"Gene TOKS not found in the dataset", "TOX", "top ~5,000 variable genes"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("stderr %q missing %q", errOut, want)
		}
	}
}

func TestExecute_Summary(t *testing.T) {
	out, _, err := run(t, "summary", "CD3E", "-d", writeDataset(t), "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Gene      string `json:"gene"`
		Summaries []struct {
			Group string  `json:"group"`
			Mean  float64 `json:"mean"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Gene != "CD3E" || len(got.Summaries) != 3 {
		t.Fatalf("summary = %+v", got)
	}
	for _, s := range got.Summaries {
		if s.Mean != 5 {
			t.Errorf("%s mean = %v, want 5", s.Group, s.Mean)
		}
	}
}

func TestExecute_Genes(t *testing.T) {
	dataset := writeDataset(t)

	out, _, err := run(t, "genes", "-d", dataset, "-o", "json", "--match", "C*")
	if err != nil {
		t.Fatal(err)
	}
	var page struct {
		Genes []string `json:"genes"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || strings.Join(page.Genes, ",") != "CCR4,CD3E" {
		t.Errorf("page = %+v", page)
	}

	out, _, err = run(t, "genes", "quick", "-d", dataset, "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var picks []struct {
		Symbol    string `json:"symbol"`
		Available bool   `json:"available"`
	}
	if err := json.Unmarshal([]byte(out), &picks); err != nil {
		t.Fatal(err)
	}
	available := map[string]bool{}
	for _, p := range picks {
		available[p.Symbol] = p.Available
	}
	if !available["TOX"] || available["MKI67"] {
		t.Errorf("availability = %v", available)
	}
}

func TestExecute_Errors(t *testing.T) {
	if _, _, err := run(t, "dataset", "-o", "json"); err == nil {
		t.Error("expected an error without a dataset")
	}
	if _, _, err := run(t, "version", "-o", "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
	if _, _, err := run(t, "compare", "TOX", "-d", writeDataset(t), "--ref", "psoriasis"); err == nil {
		t.Error("expected an error for an unknown group")
	}
}
