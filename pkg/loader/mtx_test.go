package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/loader"
)

const (
	features = "ENSG01\tTOX\tGene Expression\nENSG02\tCCR4\tGene Expression\nENSG03\tTOX\tGene Expression\n"
	barcodes = "AAAC-1\nAAAG-1\nCCCT-1\nGGGA-1\n"
	tenxMeta = "barcode,group\nAAAC-1,tumor\nAAAG-1,tumor\nCCCT-1,eczema\nGGGA-1,eczema\n"
	matrix   = `%%MatrixMarket matrix coordinate integer general
% written by a test
3 4 5
1 1 7
1 2 9
2 3 2
3 4 1
1 3 0
`
)

func TestLoad10x(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, dir, "matrix.mtx.gz", matrix)
	writeGzip(t, dir, "features.tsv.gz", features)
	writeFile(t, dir, "barcodes.tsv", barcodes)
	meta := writeFile(t, dir, "meta.csv", tenxMeta)

	ds, err := loader.Load10x(context.Background(), dir, meta, quietOptions(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"CCR4", "TOX", "TOX-1"}, ds.Genes())
	v, err := ds.Values("TOX", expression.Tumor)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 9}, v)

	v, err = ds.Values("TOX-1", expression.Eczema)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, v)

	assert.Equal(t, 4, ds.Stats().NonZero)
}

func TestLoad10xGenesFileSingleColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "matrix.mtx", "%%MatrixMarket matrix coordinate pattern general\n1 2 1\n1 2\n")
	writeFile(t, dir, "genes.tsv", "mki67\n")
	writeFile(t, dir, "barcodes.tsv", "c1\nc2\n")
	meta := writeFile(t, dir, "meta.csv", "cell,condition\nc1,normal\nc2,normal\n")

	ds, err := loader.Load10x(context.Background(), dir, meta, quietOptions(t))
	require.NoError(t, err)

	v, err := ds.Values("MKI67", expression.Normal)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, v)
}

func TestLoad10xErrors(t *testing.T) {
	tests := []struct {
		name   string
		matrix string
	}{
		{"wrong banner", "%%MatrixMarket matrix array real general\n3 4\n"},
		{"size mismatch", "%%MatrixMarket matrix coordinate real general\n2 4 0\n"},
		{"index out of range", "%%MatrixMarket matrix coordinate real general\n3 4 1\n4 1 1\n"},
		{"entry count mismatch", "%%MatrixMarket matrix coordinate real general\n3 4 2\n1 1 1\n"},
		{"symmetric", "%%MatrixMarket matrix coordinate real symmetric\n3 4 0\n"},
		{"duplicate entry", "%%MatrixMarket matrix coordinate real general\n3 4 2\n1 1 1\n1 1 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "matrix.mtx", tt.matrix)
			writeFile(t, dir, "features.tsv", features)
			writeFile(t, dir, "barcodes.tsv", barcodes)
			meta := writeFile(t, dir, "meta.csv", tenxMeta)

			_, err := loader.Load10x(context.Background(), dir, meta, quietOptions(t))
			require.Error(t, err)
			var perr *errors.ParseError
			assert.True(t, errors.As(err, &perr), "got %T: %v", err, err)
		})
	}
}

func TestLoad10xMissingFiles(t *testing.T) {
	dir := t.TempDir()
	meta := writeFile(t, dir, "meta.csv", tenxMeta)

	_, err := loader.Load10x(context.Background(), dir, meta, quietOptions(t))
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))
}
