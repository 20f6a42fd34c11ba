package loader

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// checkEvery is how many rows are read between context checks.
const checkEvery = 256

// LoadDense reads a dense genes-by-cells table and its cell metadata. The
// first row is "gene" followed by cell ids; each further row is a gene
// symbol followed by one value per cell. Empty fields read as zero.
func LoadDense(ctx context.Context, matrixPath, metadataPath string, opts Options) (*expression.Dataset, error) {
	log := opts.logger(ctx)

	groups, err := ReadMetadataFile(metadataPath)
	if err != nil {
		return nil, err
	}

	rc, err := open(matrixPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	b := opts.builder()
	cells := &cellSet{builder: b, groups: groups, strict: opts.Strict}
	genes, err := readDense(ctx, rc, matrixPath, delimiter(matrixPath), cells)
	if err != nil {
		return nil, err
	}
	cells.report(log, matrixPath)

	ds, err := b.Build()
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("matrix", matrixPath).
		Int("genes", genes).
		Int("cells", cells.accepted).
		Msg("Loaded dense expression table")
	return ds, nil
}

// readDense streams the table into the builder and returns the number of genes read.
func readDense(ctx context.Context, r io.Reader, name string, comma rune, cells *cellSet) (int, error) {
	cr := newCSVReader(r, comma)

	header, err := cr.Read()
	if err == io.EOF {
		return 0, errors.NewParseErrorAt("matrix", name, 1, "missing header row")
	}
	if err != nil {
		return 0, errors.WrapParse("matrix", name, err)
	}
	if len(header) < 2 {
		return 0, errors.NewParseErrorAt("matrix", name, 1, "header needs a gene column and at least one cell")
	}

	ids := make([]string, len(header))
	keep := make([]bool, len(header))
	seenCell := make(map[string]bool, len(header))
	for j := 1; j < len(header); j++ {
		id := strings.TrimSpace(header[j])
		if id == "" {
			return 0, errors.NewParseErrorAt("matrix", name, 1, fmt.Sprintf("empty cell id in column %d", j+1))
		}
		if seenCell[id] {
			return 0, errors.NewParseErrorAt("matrix", name, 1, fmt.Sprintf("duplicate cell id %s", id))
		}
		seenCell[id] = true
		ids[j] = id

		ok, err := cells.add(id)
		if err != nil {
			return 0, err
		}
		keep[j] = ok
	}

	seenGene := make(map[string]bool)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return 0, errors.WrapParse("matrix", name, err)
		}
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if len(record) != len(header) {
			return 0, errors.NewParseErrorAt("matrix", name, line,
				fmt.Sprintf("expected %d fields, got %d", len(header), len(record)))
		}

		gene := expression.NormalizeGene(record[0])
		if gene == "" {
			return 0, errors.NewParseErrorAt("matrix", name, line, "empty gene symbol")
		}
		if seenGene[gene] {
			return 0, errors.NewParseErrorAt("matrix", name, line, fmt.Sprintf("duplicate gene %s", gene))
		}
		seenGene[gene] = true
		if err := cells.builder.AddGene(gene); err != nil {
			return 0, errors.NewParseErrorAt("matrix", name, line, err.Error())
		}

		for j := 1; j < len(record); j++ {
			if !keep[j] {
				continue
			}
			field := strings.TrimSpace(record[j])
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return 0, errors.NewParseErrorAt("matrix", name, line,
					fmt.Sprintf("invalid value %q for cell %s", field, ids[j]))
			}
			if v == 0 {
				continue
			}
			if err := cells.builder.Set(gene, ids[j], v); err != nil {
				return 0, errors.NewParseErrorAt("matrix", name, line, err.Error())
			}
		}
	}
	return len(seenGene), nil
}
