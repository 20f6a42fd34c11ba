package expression

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// Builder assembles a Dataset. It is not safe for concurrent use; the
// Dataset it produces is.
type Builder struct {
	name   string
	source string

	cells     []string
	cellIndex map[string]int
	groups    []Group

	genes map[string]map[int]float64
	order []string
	err   error
}

// NewBuilder returns an empty builder with the default source label.
func NewBuilder() *Builder {
	return &Builder{
		name:      constants.DefaultDatasetName,
		source:    constants.DefaultSource,
		cellIndex: make(map[string]int),
		genes:     make(map[string]map[int]float64),
	}
}

// WithName sets the dataset display name.
func (b *Builder) WithName(name string) *Builder {
	if name != "" {
		b.name = name
	}
	return b
}

// WithSource sets the source label, e.g. a GEO accession.
func (b *Builder) WithSource(source string) *Builder {
	if source != "" {
		b.source = source
	}
	return b
}

// AddCell registers a cell with its group. Registering the same cell twice
// with the same group is a no-op; a different group is an error.
func (b *Builder) AddCell(id string, group Group) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.NewValidationError("cell", id, "cell id cannot be empty")
	}
	if !group.Valid() {
		return errors.NewValidationError("group", group, "unknown group")
	}
	if idx, ok := b.cellIndex[id]; ok {
		if b.groups[idx] != group {
			return errors.NewValidationError("cell", id,
				fmt.Sprintf("already assigned to %s, cannot reassign to %s", b.groups[idx], group))
		}
		return nil
	}
	b.cellIndex[id] = len(b.cells)
	b.cells = append(b.cells, id)
	b.groups = append(b.groups, group)
	return nil
}

// HasCell reports whether the cell was registered.
func (b *Builder) HasCell(id string) bool {
	_, ok := b.cellIndex[strings.TrimSpace(id)]
	return ok
}

// Set records the expression of gene in cell. The gene symbol is
// upper-cased. Cells never set for a gene read as zero.
func (b *Builder) Set(gene, cell string, value float64) error {
	gene = NormalizeGene(gene)
	if gene == "" {
		return errors.NewValidationError("gene", gene, "gene symbol cannot be empty")
	}
	if len(gene) > constants.MaxGeneSymbolLength {
		return errors.NewValidationError("gene", gene, "gene symbol too long")
	}
	idx, ok := b.cellIndex[strings.TrimSpace(cell)]
	if !ok {
		return errors.NewValidationError("cell", cell, "cell has no group assignment")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.NewValidationError("value", value, "expression must be finite")
	}
	if value < 0 {
		return errors.NewValidationError("value", value, "expression cannot be negative")
	}

	row, ok := b.genes[gene]
	if !ok {
		row = make(map[int]float64)
		b.genes[gene] = row
		b.order = append(b.order, gene)
	}
	if _, dup := row[idx]; dup {
		return errors.NewValidationError("entry", gene+"/"+cell, "duplicate expression record")
	}
	row[idx] = value
	return nil
}

// AddGene registers a gene with no recorded expression, i.e. zero in every cell.
func (b *Builder) AddGene(gene string) error {
	gene = NormalizeGene(gene)
	if gene == "" {
		return errors.NewValidationError("gene", gene, "gene symbol cannot be empty")
	}
	if _, ok := b.genes[gene]; !ok {
		b.genes[gene] = make(map[int]float64)
		b.order = append(b.order, gene)
	}
	return nil
}

// Build validates the collected records and returns an immutable Dataset.
func (b *Builder) Build() (*Dataset, error) {
	if len(b.cells) == 0 {
		return nil, errors.NewValidationError("cells", 0, "dataset has no cells")
	}

	genes := make([]string, len(b.order))
	copy(genes, b.order)
	sort.Strings(genes)

	ds := &Dataset{
		name:      b.name,
		source:    b.source,
		genes:     genes,
		geneIndex: make(map[string]int, len(genes)),
		rows:      make([]sparseRow, len(genes)),
		cells:     append([]string(nil), b.cells...),
		cellIndex: make(map[string]int, len(b.cells)),
		groups:    append([]Group(nil), b.groups...),
		members:   make(map[Group][]int),
	}

	for i, c := range ds.cells {
		ds.cellIndex[c] = i
		ds.members[ds.groups[i]] = append(ds.members[ds.groups[i]], i)
	}

	for i, g := range genes {
		ds.geneIndex[g] = i
		entries := b.genes[g]
		row := sparseRow{
			cells:  make([]int, 0, len(entries)),
			values: make([]float64, 0, len(entries)),
		}
		for idx := range entries {
			row.cells = append(row.cells, idx)
		}
		sort.Ints(row.cells)
		for _, idx := range row.cells {
			row.values = append(row.values, entries[idx])
		}
		ds.nnz += countNonZero(row.values)
		ds.rows[i] = row
	}

	return ds, nil
}

func countNonZero(values []float64) int {
	n := 0
	for _, v := range values {
		if v != 0 {
			n++
		}
	}
	return n
}
