package loader_test

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/loader"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

const metadataCSV = `cell,condition
t1,CTCL (Tumor)
t2,tumor
n1,Normal (Healthy)
n2,normal
e1,Eczema (Benign)
e2,eczema
`

const denseCSV = `gene,t1,t2,n1,n2,e1,e2
tox,10,12,1,2,0,0
CCR4,0,0,0,0,3,
CD3E,5,5,5,5,5,5
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func quietOptions(t *testing.T) loader.Options {
	return loader.Options{Logger: logging.NewTestLogger(t).Logger}
}

func TestLoadDense(t *testing.T) {
	dir := t.TempDir()
	matrix := writeFile(t, dir, "expression.csv", denseCSV)
	meta := writeFile(t, dir, "metadata.csv", metadataCSV)

	ds, err := loader.LoadDense(context.Background(), matrix, meta, quietOptions(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"CCR4", "CD3E", "TOX"}, ds.Genes())
	assert.Len(t, ds.Cells(), 6)
	assert.Equal(t, 2, ds.GroupCounts()[expression.Eczema])

	v, err := ds.Values("TOX", expression.Tumor)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12}, v)

	v, err = ds.Values("CCR4", expression.Eczema)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0}, v)
}

func TestLoadDenseGzipTSV(t *testing.T) {
	dir := t.TempDir()
	tsv := strings.ReplaceAll(denseCSV, ",", "\t")
	matrix := writeGzip(t, dir, "expression.tsv.gz", tsv)
	meta := writeGzip(t, dir, "metadata.tsv.gz", strings.ReplaceAll(metadataCSV, ",", "\t"))

	ds, err := loader.LoadDense(context.Background(), matrix, meta, quietOptions(t))
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumGenes())

	v, err := ds.Value("TOX", "n2")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestLoadDenseCellsWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	matrix := writeFile(t, dir, "expression.csv", "gene,t1,x9,e1\nTOX,1,2,3\n")
	meta := writeFile(t, dir, "metadata.csv", "cell,condition\nt1,tumor\ne1,eczema\n")

	tl := logging.NewTestLogger(t)
	ds, err := loader.LoadDense(context.Background(), matrix, meta, loader.Options{Logger: tl.Logger})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "e1"}, ds.Cells())
	tl.AssertContains(t, "Skipped cells without metadata")
	tl.AssertContains(t, `"example":"x9"`)

	_, err = loader.LoadDense(context.Background(), matrix, meta, loader.Options{Strict: true, Logger: tl.Logger})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestLoadDenseErrors(t *testing.T) {
	tests := []struct {
		name   string
		matrix string
		line   int
	}{
		{"ragged row", "gene,t1,e1\nTOX,1\n", 2},
		{"bad number", "gene,t1,e1\nTOX,1,abc\n", 2},
		{"negative value", "gene,t1,e1\nTOX,1,-2\n", 2},
		{"duplicate gene", "gene,t1,e1\nTOX,1,2\ntox,3,4\n", 3},
		{"duplicate cell", "gene,t1,t1\nTOX,1,2\n", 1},
		{"header only gene", "gene\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			matrix := writeFile(t, dir, "m.csv", tt.matrix)
			meta := writeFile(t, dir, "meta.csv", "cell,condition\nt1,tumor\ne1,eczema\n")

			_, err := loader.LoadDense(context.Background(), matrix, meta, quietOptions(t))
			require.Error(t, err)

			var perr *errors.ParseError
			require.True(t, errors.As(err, &perr), "got %T: %v", err, err)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestLoadDenseMissingFile(t *testing.T) {
	dir := t.TempDir()
	meta := writeFile(t, dir, "meta.csv", metadataCSV)

	_, err := loader.LoadDense(context.Background(), filepath.Join(dir, "nope.csv"), meta, quietOptions(t))
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestLoadDenseCanceled(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("gene,t1,e1\n")
	for i := 0; i < 600; i++ {
		b.WriteString("G")
		b.WriteString(strings.Repeat("X", i%7))
		b.WriteString(string(rune('A' + i%26)))
		b.WriteString(strings.Repeat("Y", i/26))
		b.WriteString(",1,2\n")
	}
	matrix := writeFile(t, dir, "m.csv", b.String())
	meta := writeFile(t, dir, "meta.csv", "cell,condition\nt1,tumor\ne1,eczema\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.LoadDense(ctx, matrix, meta, quietOptions(t))
	assert.ErrorIs(t, err, context.Canceled)
}
