package loader

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// Matrix formats.
const (
	FormatDense = "dense"
	Format10x   = "10x"
)

// Manifest describes where a dataset lives. Relative paths are resolved
// against the manifest's directory.
type Manifest struct {
	Name     string `yaml:"name" json:"name"`
	Source   string `yaml:"source" json:"source"`
	Format   string `yaml:"format" json:"format"`
	Matrix   string `yaml:"matrix" json:"matrix"`
	Metadata string `yaml:"metadata" json:"metadata"`

	dir string
}

// LoadManifest reads a YAML manifest. A directory argument is resolved to
// the dataset.yaml inside it.
func LoadManifest(path string) (*Manifest, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, constants.DefaultManifestName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("read", path, err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes a manifest from YAML. Paths stay relative to the
// working directory.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m.Format = normalizeFormat(m.Format)
	return &m, nil
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	switch m.Format {
	case FormatDense, Format10x:
	default:
		return errors.NewValidationError("format", m.Format, "must be dense or 10x")
	}
	if m.Matrix == "" {
		return errors.NewValidationError("matrix", m.Matrix, "matrix path is required")
	}
	if m.Metadata == "" {
		return errors.NewValidationError("metadata", m.Metadata, "metadata path is required")
	}
	return nil
}

// MatrixPath returns the resolved matrix path.
func (m *Manifest) MatrixPath() string { return m.resolve(m.Matrix) }

// MetadataPath returns the resolved metadata path.
func (m *Manifest) MetadataPath() string { return m.resolve(m.Metadata) }

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", "dense", "csv", "tsv":
		return FormatDense
	case "10x", "mtx", "matrix_market", "mm":
		return Format10x
	default:
		return strings.ToLower(strings.TrimSpace(f))
	}
}
