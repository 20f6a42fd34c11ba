package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// Load10x reads a 10x Genomics matrix directory (matrix.mtx, features.tsv or
// genes.tsv, barcodes.tsv, each optionally gzipped) and its cell metadata.
func Load10x(ctx context.Context, dir, metadataPath string, opts Options) (*expression.Dataset, error) {
	log := opts.logger(ctx)

	matrixFile, err := findFile(dir, "matrix.mtx")
	if err != nil {
		return nil, err
	}
	featuresFile, err := findFile(dir, "features.tsv", "genes.tsv")
	if err != nil {
		return nil, err
	}
	barcodesFile, err := findFile(dir, "barcodes.tsv")
	if err != nil {
		return nil, err
	}

	groups, err := ReadMetadataFile(metadataPath)
	if err != nil {
		return nil, err
	}
	genes, err := readFeatures(featuresFile)
	if err != nil {
		return nil, err
	}
	barcodes, err := readBarcodes(barcodesFile)
	if err != nil {
		return nil, err
	}

	b := opts.builder()
	cells := &cellSet{builder: b, groups: groups, strict: opts.Strict}
	keep := make([]bool, len(barcodes))
	for j, id := range barcodes {
		ok, err := cells.add(id)
		if err != nil {
			return nil, err
		}
		keep[j] = ok
	}
	cells.report(log, barcodesFile)

	for _, g := range genes {
		if err := b.AddGene(g); err != nil {
			return nil, err
		}
	}

	rc, err := open(matrixFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	entries, err := readMatrixMarket(ctx, rc, matrixFile, genes, barcodes, keep, b)
	if err != nil {
		return nil, err
	}

	ds, err := b.Build()
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("dir", dir).
		Int("genes", len(genes)).
		Int("cells", cells.accepted).
		Int("entries", entries).
		Msg("Loaded 10x matrix")
	return ds, nil
}

// findFile returns the first of names (or its ".gz" variant) present in dir.
func findFile(dir string, names ...string) (string, error) {
	for _, name := range names {
		for _, candidate := range []string{name, name + ".gz"} {
			p := filepath.Join(dir, candidate)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", errors.NewIOError("find", filepath.Join(dir, names[0]), os.ErrNotExist)
}

// readFeatures reads gene symbols from a features or genes file. The symbol
// is the second column when present. Repeated symbols get a numeric suffix
// ("-1", "-2") so every row stays addressable.
func readFeatures(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(lines))
	genes := make([]string, 0, len(lines))
	for i, line := range lines {
		cols := strings.Split(line, "\t")
		symbol := cols[0]
		if len(cols) > 1 && strings.TrimSpace(cols[1]) != "" {
			symbol = cols[1]
		}
		symbol = expression.NormalizeGene(symbol)
		if symbol == "" {
			return nil, errors.NewParseErrorAt("features", path, i+1, "empty gene symbol")
		}
		if n, dup := seen[symbol]; dup {
			seen[symbol] = n + 1
			symbol = fmt.Sprintf("%s-%d", symbol, n+1)
		} else {
			seen[symbol] = 0
		}
		genes = append(genes, symbol)
	}
	return genes, nil
}

// readBarcodes reads one cell barcode per line.
func readBarcodes(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	barcodes := make([]string, len(lines))
	for i, line := range lines {
		barcodes[i] = strings.TrimSpace(strings.Split(line, "\t")[0])
	}
	return barcodes, nil
}

// readLines returns the non-empty lines of a possibly gzipped text file.
func readLines(path string) ([]string, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var lines []string
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), constants.MaxLineBytes)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIOError("read", path, err)
	}
	return lines, nil
}

// mmHeader is the parsed banner of a Matrix Market file.
type mmHeader struct {
	pattern bool
}

func parseBanner(line, name string) (mmHeader, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) != 5 || fields[0] != "%%matrixmarket" || fields[1] != "matrix" {
		return mmHeader{}, errors.NewParseErrorAt("mtx", name, 1, "missing %%MatrixMarket matrix banner")
	}
	if fields[2] != "coordinate" {
		return mmHeader{}, errors.NewParseErrorAt("mtx", name, 1, "only coordinate matrices are supported")
	}
	var h mmHeader
	switch fields[3] {
	case "real", "integer", "double":
	case "pattern":
		h.pattern = true
	default:
		return mmHeader{}, errors.NewParseErrorAt("mtx", name, 1, fmt.Sprintf("unsupported field type %s", fields[3]))
	}
	if fields[4] != "general" {
		return mmHeader{}, errors.NewParseErrorAt("mtx", name, 1, fmt.Sprintf("unsupported symmetry %s", fields[4]))
	}
	return h, nil
}

// readMatrixMarket reads a genes-by-barcodes coordinate matrix into the
// builder and returns the number of entries read.
func readMatrixMarket(ctx context.Context, r io.Reader, name string, genes, barcodes []string, keep []bool, b *expression.Builder) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), constants.MaxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, errors.NewIOError("read", name, err)
		}
		return 0, errors.NewParseErrorAt("mtx", name, 1, "empty file")
	}
	header, err := parseBanner(sc.Text(), name)
	if err != nil {
		return 0, err
	}

	line := 1
	sized := false
	var nnz, read int
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		fields := strings.Fields(text)

		if !sized {
			if len(fields) != 3 {
				return 0, errors.NewParseErrorAt("mtx", name, line, "size line must be: rows cols entries")
			}
			rows, err1 := strconv.Atoi(fields[0])
			cols, err2 := strconv.Atoi(fields[1])
			n, err3 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil || err3 != nil {
				return 0, errors.NewParseErrorAt("mtx", name, line, "size line must hold integers")
			}
			if rows != len(genes) || cols != len(barcodes) {
				return 0, errors.NewParseErrorAt("mtx", name, line,
					fmt.Sprintf("matrix is %dx%d but there are %d genes and %d barcodes", rows, cols, len(genes), len(barcodes)))
			}
			nnz = n
			sized = true
			continue
		}

		if read%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		want := 3
		if header.pattern {
			want = 2
		}
		if len(fields) != want {
			return 0, errors.NewParseErrorAt("mtx", name, line, fmt.Sprintf("expected %d fields, got %d", want, len(fields)))
		}
		i, err1 := strconv.Atoi(fields[0])
		j, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || i < 1 || i > len(genes) || j < 1 || j > len(barcodes) {
			return 0, errors.NewParseErrorAt("mtx", name, line, "entry index out of range")
		}
		v := 1.0
		if !header.pattern {
			var err error
			v, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return 0, errors.NewParseErrorAt("mtx", name, line, fmt.Sprintf("invalid value %q", fields[2]))
			}
		}
		read++

		if !keep[j-1] || v == 0 {
			continue
		}
		if err := b.Set(genes[i-1], barcodes[j-1], v); err != nil {
			return 0, errors.NewParseErrorAt("mtx", name, line, err.Error())
		}
	}
	if err := sc.Err(); err != nil {
		return 0, errors.NewIOError("read", name, err)
	}
	if !sized {
		return 0, errors.NewParseErrorAt("mtx", name, line, "missing size line")
	}
	if read != nnz {
		return 0, errors.NewParseErrorAt("mtx", name, line, fmt.Sprintf("expected %d entries, found %d", nnz, read))
	}
	return read, nil
}
