// Package expression holds the single-cell expression dataset: a sparse
// gene-by-cell matrix of non-negative values where every cell carries exactly
// one clinical group label (Tumor, Normal or Eczema).
//
// A Dataset is built once through a Builder and is immutable afterwards, so
// any number of goroutines may read it concurrently.
package expression

import (
	"sort"

	"github.com/agext/levenshtein"
	"github.com/sahilm/fuzzy"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// sparseRow holds one gene's recorded entries, ascending by cell index.
type sparseRow struct {
	cells  []int
	values []float64
}

// Dataset is an immutable expression matrix with cell group labels.
type Dataset struct {
	name   string
	source string

	genes     []string
	geneIndex map[string]int
	rows      []sparseRow

	cells     []string
	cellIndex map[string]int
	groups    []Group
	members   map[Group][]int

	nnz int
}

// Stats describes the size of a dataset.
type Stats struct {
	Name    string        `json:"name" yaml:"name"`
	Source  string        `json:"source" yaml:"source"`
	Cells   int           `json:"cells" yaml:"cells"`
	Genes   int           `json:"genes" yaml:"genes"`
	NonZero int           `json:"non_zero" yaml:"non_zero"`
	Density float64       `json:"density" yaml:"density"`
	Groups  map[Group]int `json:"groups" yaml:"groups"`
}

// Name returns the display name of the dataset.
func (d *Dataset) Name() string { return d.name }

// Source returns the source label, e.g. "GSE128531".
func (d *Dataset) Source() string { return d.source }

// Genes returns all gene symbols in ascending order.
func (d *Dataset) Genes() []string {
	return append([]string(nil), d.genes...)
}

// NumGenes returns the size of the gene index.
func (d *Dataset) NumGenes() int { return len(d.genes) }

// HasGene reports whether the gene is in the index. Lookup is case-insensitive.
func (d *Dataset) HasGene(gene string) bool {
	_, ok := d.geneIndex[NormalizeGene(gene)]
	return ok
}

// Cells returns all cell ids in insertion order.
func (d *Dataset) Cells() []string {
	return append([]string(nil), d.cells...)
}

// GroupOf returns the group of a cell.
func (d *Dataset) GroupOf(cell string) (Group, bool) {
	idx, ok := d.cellIndex[cell]
	if !ok {
		return "", false
	}
	return d.groups[idx], true
}

// CellsIn returns the ids of the cells in group.
func (d *Dataset) CellsIn(group Group) []string {
	members := d.members[group]
	ids := make([]string, len(members))
	for i, idx := range members {
		ids[i] = d.cells[idx]
	}
	return ids
}

// GroupCounts returns the number of cells in every known group, including
// groups without cells.
func (d *Dataset) GroupCounts() map[Group]int {
	counts := make(map[Group]int, len(Groups()))
	for _, g := range Groups() {
		counts[g] = len(d.members[g])
	}
	return counts
}

// Value returns the expression of gene in one cell.
func (d *Dataset) Value(gene, cell string) (float64, error) {
	row, err := d.row(gene)
	if err != nil {
		return 0, err
	}
	idx, ok := d.cellIndex[cell]
	if !ok {
		return 0, errors.NewNotFoundError("cell", cell)
	}
	i := sort.SearchInts(row.cells, idx)
	if i < len(row.cells) && row.cells[i] == idx {
		return row.values[i], nil
	}
	return 0, nil
}

// Values returns the expression of gene in every cell of group, with
// unrecorded entries filled in as zero. The slice is a fresh copy in cell
// insertion order.
func (d *Dataset) Values(gene string, group Group) ([]float64, error) {
	row, err := d.row(gene)
	if err != nil {
		return nil, err
	}
	if !group.Valid() {
		return nil, errors.NewValidationError("group", group, "unknown group")
	}
	members := d.members[group]
	if len(members) == 0 {
		return nil, errors.NewEmptyGroupError(group.String())
	}

	out := make([]float64, len(members))
	j := 0
	for i, idx := range members {
		for j < len(row.cells) && row.cells[j] < idx {
			j++
		}
		if j < len(row.cells) && row.cells[j] == idx {
			out[i] = row.values[j]
		}
	}
	return out, nil
}

// NonZero returns the number of cells with a positive value for gene.
func (d *Dataset) NonZero(gene string) (int, error) {
	row, err := d.row(gene)
	if err != nil {
		return 0, err
	}
	return countNonZero(row.values), nil
}

// Stats returns the dataset size summary.
func (d *Dataset) Stats() Stats {
	total := len(d.cells) * len(d.genes)
	density := 0.0
	if total > 0 {
		density = float64(d.nnz) / float64(total)
	}
	return Stats{
		Name:    d.name,
		Source:  d.source,
		Cells:   len(d.cells),
		Genes:   len(d.genes),
		NonZero: d.nnz,
		Density: density,
		Groups:  d.GroupCounts(),
	}
}

// Suggest returns up to limit gene symbols close to gene. Symbols within a
// small edit distance come first, closest first; subsequence matches fill
// the remaining slots.
func (d *Dataset) Suggest(gene string, limit int) []string {
	query := NormalizeGene(gene)
	if query == "" || limit <= 0 {
		return nil
	}

	maxDist := 2
	if len(query) <= 3 {
		maxDist = 1
	}

	type candidate struct {
		gene string
		dist int
	}
	var near []candidate
	seen := make(map[string]bool)
	for _, g := range d.genes {
		if g == query {
			continue
		}
		if dist := levenshtein.Distance(query, g, nil); dist <= maxDist {
			near = append(near, candidate{gene: g, dist: dist})
			seen[g] = true
		}
	}
	sort.Slice(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].gene < near[j].gene
	})

	out := make([]string, 0, limit)
	for _, c := range near {
		if len(out) == limit {
			return out
		}
		out = append(out, c.gene)
	}
	for _, m := range fuzzy.Find(query, d.genes) {
		if len(out) == limit {
			break
		}
		if m.Str == query || seen[m.Str] {
			continue
		}
		seen[m.Str] = true
		out = append(out, m.Str)
	}
	return out
}

// row looks up a gene, returning an UnknownGeneError with suggestions when
// the symbol is not indexed.
func (d *Dataset) row(gene string) (sparseRow, error) {
	key := NormalizeGene(gene)
	i, ok := d.geneIndex[key]
	if !ok {
		return sparseRow{}, errors.NewUnknownGeneError(key, d.Suggest(key, constants.MaxSuggestions)...)
	}
	return d.rows[i], nil
}
