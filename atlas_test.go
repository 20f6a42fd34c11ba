package atlas_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/insight"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

func sampleDataset(t *testing.T) *expression.Dataset {
	t.Helper()
	b := expression.NewBuilder()
	values := map[string]map[expression.Group][]float64{
		"TOX":  {expression.Tumor: {10, 12, 11}, expression.Normal: {1, 2, 1}, expression.Eczema: {2, 1, 2}},
		"CD3E": {expression.Tumor: {5, 5, 5}, expression.Normal: {5, 5, 5}, expression.Eczema: {5, 5, 5}},
		"CCR4": {expression.Tumor: {3, 4, 3}, expression.Normal: {0, 0, 1}, expression.Eczema: {0, 1, 0}},
	}
	prefix := map[expression.Group]string{expression.Tumor: "t", expression.Normal: "n", expression.Eczema: "e"}
	for _, g := range expression.Groups() {
		for i := 0; i < 3; i++ {
			require.NoError(t, b.AddCell(prefix[g]+string(rune('1'+i)), g))
		}
	}
	for gene, byGroup := range values {
		for g, vals := range byGroup {
			for i, v := range vals {
				if v != 0 {
					require.NoError(t, b.Set(gene, prefix[g]+string(rune('1'+i)), v))
				}
			}
		}
	}
	ds, err := b.Build()
	require.NoError(t, err)
	return ds
}

func newAtlas(t *testing.T, opts ...atlas.Option) atlas.Atlas {
	t.Helper()
	opts = append([]atlas.Option{
		atlas.WithDataset(sampleDataset(t)),
		atlas.WithLogger(logging.NewTestLogger(t).Logger),
	}, opts...)
	a, err := atlas.New(opts...)
	require.NoError(t, err)
	return a
}

func TestNewRequiresDataset(t *testing.T) {
	_, err := atlas.New()
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = atlas.New(atlas.WithDataset(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = atlas.New(atlas.WithDataset(sampleDataset(t)), atlas.WithTarget("lupus"))
	assert.True(t, errors.IsValidationError(err))

	_, err = atlas.New(atlas.WithDataset(sampleDataset(t)), atlas.WithPolicy(compare.Policy{Metric: compare.MeanDifference, Threshold: -1}))
	assert.True(t, errors.IsValidationError(err))
}

func TestNewFromManifest(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("expression.csv", "gene,t1,t2,e1,e2\nTOX,10,12,1,2\n")
	write("metadata.csv", "cell,condition\nt1,tumor\nt2,tumor\ne1,eczema\ne2,eczema\n")
	write("dataset.yaml", "name: Mini\nmatrix: expression.csv\nmetadata: metadata.csv\n")

	a, err := atlas.New(atlas.WithManifest(dir), atlas.WithLogger(logging.NewTestLogger(t).Logger))
	require.NoError(t, err)
	assert.Equal(t, "Mini", a.Stats().Name)

	v, err := a.Compare(context.Background(), "tox")
	require.NoError(t, err)
	assert.Equal(t, compare.Higher, v.Direction)
	assert.Equal(t, []expression.Group{expression.Eczema}, v.References())

	_, err = atlas.New(atlas.WithManifest(filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err)
}

func TestCompareAndInsight(t *testing.T) {
	a := newAtlas(t)
	ctx := context.Background()

	v, err := a.Compare(ctx, "TOX")
	require.NoError(t, err)
	assert.Equal(t, expression.Tumor, v.Target)
	assert.Equal(t, []expression.Group{expression.Normal, expression.Eczema}, v.References())
	assert.True(t, v.Significant)

	ins, err := a.Insight(ctx, "tox", expression.Eczema)
	require.NoError(t, err)
	assert.Equal(t, "TOX", ins.Gene)
	assert.Equal(t, insight.SignificantlyHigher, ins.Trend)

	same, err := a.Insight(ctx, "CD3E", expression.Eczema)
	require.NoError(t, err)
	assert.False(t, same.Significant)
	assert.Equal(t, insight.HeadlineNoDifference, same.Headline)
}

func TestCompareRequestTarget(t *testing.T) {
	a := newAtlas(t, atlas.WithTarget(expression.Eczema))
	assert.Equal(t, expression.Eczema, a.Target())

	v, err := a.Compare(context.Background(), "TOX", expression.Tumor)
	require.NoError(t, err)
	assert.Equal(t, expression.Eczema, v.Target)
	assert.Equal(t, compare.Lower, v.Direction)

	v, err = a.CompareRequest(context.Background(), compare.Request{Gene: "TOX", Target: expression.Tumor, References: []expression.Group{expression.Normal}})
	require.NoError(t, err)
	assert.Equal(t, expression.Tumor, v.Target)
}

func TestUnknownGene(t *testing.T) {
	a := newAtlas(t)

	_, err := a.Insight(context.Background(), "TOXX")
	require.Error(t, err)
	assert.True(t, errors.IsUnknownGene(err))

	var unknown *errors.UnknownGeneError
	require.True(t, errors.As(err, &unknown))
	assert.Contains(t, unknown.Suggestions, "TOX")
	assert.Contains(t, a.Suggest("ccr5"), "CCR4")
}

func TestSummaries(t *testing.T) {
	a := newAtlas(t, atlas.WithParallel(false))

	sums, err := a.Summaries(context.Background(), "TOX")
	require.NoError(t, err)
	require.Len(t, sums, 3)
	assert.Equal(t, expression.Tumor, sums[0].Group)
	assert.InDelta(t, 11.0, sums[0].Mean, 1e-9)
}

func TestGenesAndQuickSelect(t *testing.T) {
	a := newAtlas(t)

	genes, err := a.Genes("")
	require.NoError(t, err)
	assert.Equal(t, []string{"CCR4", "CD3E", "TOX"}, genes)

	genes, err = a.Genes("c*")
	require.NoError(t, err)
	assert.Equal(t, []string{"CCR4", "CD3E"}, genes)

	_, err = a.Genes("[")
	assert.True(t, errors.IsValidationError(err))

	picks := a.QuickSelect()
	require.Len(t, picks, 4)
	available := map[string]bool{}
	for _, p := range picks {
		available[p.Symbol] = p.Available
	}
	assert.Equal(t, map[string]bool{"TOX": true, "CCR4": true, "CD3E": true, "MKI67": false}, available)
}

func TestHooks(t *testing.T) {
	a := newAtlas(t)

	var mu sync.Mutex
	var verdicts []string
	var insights []insight.Trend
	a.OnVerdict(func(v *compare.Verdict) {
		mu.Lock()
		defer mu.Unlock()
		verdicts = append(verdicts, v.Gene)
	})
	a.OnInsight(func(ins insight.Insight) {
		mu.Lock()
		defer mu.Unlock()
		insights = append(insights, ins.Trend)
	})

	_, err := a.Compare(context.Background(), "CCR4")
	require.NoError(t, err)
	_, err = a.Insight(context.Background(), "TOX")
	require.NoError(t, err)
	_, err = a.Insight(context.Background(), "NOPE")
	require.Error(t, err)

	assert.Equal(t, []string{"CCR4", "TOX"}, verdicts)
	assert.Equal(t, []insight.Trend{insight.SignificantlyHigher}, insights)
}

func TestVerdictHookGetsCopy(t *testing.T) {
	a := newAtlas(t)
	a.OnVerdict(func(v *compare.Verdict) {
		v.Gene = "EDITED"
		v.Direction = compare.Lower
		v.Comparisons[0].Direction = compare.Lower
		v.Comparisons = v.Comparisons[:0]
	})

	v, err := a.Compare(context.Background(), "TOX")
	require.NoError(t, err)
	assert.Equal(t, "TOX", v.Gene)
	assert.Equal(t, compare.Higher, v.Direction)
	require.Len(t, v.Comparisons, 2)
	assert.Equal(t, compare.Higher, v.Comparisons[0].Direction)

	again, err := a.Compare(context.Background(), "TOX")
	require.NoError(t, err)
	assert.Equal(t, v, again)
}

func TestConcurrentQueries(t *testing.T) {
	a := newAtlas(t)
	first, err := a.Compare(context.Background(), "TOX")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := a.Compare(context.Background(), "TOX")
			assert.NoError(t, err)
			assert.Equal(t, first.Comparisons, v.Comparisons)
		}()
	}
	wg.Wait()
}
