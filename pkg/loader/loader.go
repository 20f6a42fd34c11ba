// Package loader reads expression datasets from plain numeric tables: dense
// CSV/TSV matrices, 10x Genomics Matrix Market directories and a cell
// metadata table that assigns every cell its clinical group.
//
// Any input file may be gzip-compressed; compression is detected from the
// ".gz" extension.
package loader

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

// Options controls how tables are turned into a dataset.
type Options struct {
	// Name and Source label the dataset. Empty values keep the defaults.
	Name   string
	Source string

	// Strict fails the load when the matrix references a cell that has no
	// metadata. By default such cells are skipped with a warning.
	Strict bool

	// Logger receives load progress. Defaults to the context logger.
	Logger *zerolog.Logger
}

func (o Options) logger(ctx context.Context) *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.FromContext(ctx)
}

func (o Options) builder() *expression.Builder {
	return expression.NewBuilder().WithName(o.Name).WithSource(o.Source)
}

// Load reads the dataset described by a manifest.
func Load(ctx context.Context, m *Manifest, opts Options) (*expression.Dataset, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = m.Name
	}
	if opts.Source == "" {
		opts.Source = m.Source
	}

	switch m.Format {
	case Format10x:
		return Load10x(ctx, m.MatrixPath(), m.MetadataPath(), opts)
	default:
		return LoadDense(ctx, m.MatrixPath(), m.MetadataPath(), opts)
	}
}

// LoadFile reads a manifest file and the dataset it describes.
func LoadFile(ctx context.Context, manifestPath string, opts Options) (*expression.Dataset, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	return Load(ctx, m, opts)
}

// cellSet registers matrix cells that have metadata and remembers the ones
// that were skipped.
type cellSet struct {
	builder  *expression.Builder
	groups   map[string]expression.Group
	strict   bool
	skipped  []string
	accepted int
}

// add registers a matrix cell. ok is false when the cell has no metadata and
// was skipped.
func (c *cellSet) add(id string) (ok bool, err error) {
	group, found := c.groups[id]
	if !found {
		if c.strict {
			return false, errors.NewValidationError("cell", id, "cell has no metadata")
		}
		c.skipped = append(c.skipped, id)
		return false, nil
	}
	if err := c.builder.AddCell(id, group); err != nil {
		return false, err
	}
	c.accepted++
	return true, nil
}

func (c *cellSet) report(log *zerolog.Logger, path string) {
	if len(c.skipped) == 0 {
		return
	}
	example := c.skipped[0]
	log.Warn().
		Str("file", path).
		Int("skipped", len(c.skipped)).
		Str("example", example).
		Msg("Skipped cells without metadata")
}

// open opens a file, transparently decompressing ".gz" files.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open", path, err)
	}
	if !isGzip(path) {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.NewParseError("gzip", path, "invalid gzip stream", err)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

func isGzip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gz")
}

// delimiter picks the field separator from the file extension, ignoring ".gz".
func delimiter(path string) rune {
	base := strings.ToLower(path)
	base = strings.TrimSuffix(base, ".gz")
	switch filepath.Ext(base) {
	case ".tsv", ".tab", ".txt":
		return '\t'
	default:
		return ','
	}
}

// newCSVReader returns a csv.Reader configured for numeric tables.
func newCSVReader(r io.Reader, comma rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return cr
}

// stripBOM removes a UTF-8 byte order mark from the first header cell.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
