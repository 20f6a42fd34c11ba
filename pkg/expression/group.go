package expression

import (
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// Group is the clinical condition label of a cell.
type Group string

// Cell groups of the CTCL atlas.
const (
	Tumor  Group = "tumor"
	Normal Group = "normal"
	Eczema Group = "eczema"
)

// Groups returns every group in canonical order. Anything that iterates over
// groups uses this order so output stays deterministic.
func Groups() []Group {
	return []Group{Tumor, Normal, Eczema}
}

// String returns the canonical lower-case name.
func (g Group) String() string {
	return string(g)
}

// Label returns the display label used in tables and reports.
func (g Group) Label() string {
	switch g {
	case Tumor:
		return "CTCL (Tumor)"
	case Normal:
		return "Normal (Healthy)"
	case Eczema:
		return "Eczema (Benign)"
	default:
		return string(g)
	}
}

// Short returns the capitalized name, e.g. "Tumor".
func (g Group) Short() string {
	switch g {
	case Tumor:
		return "Tumor"
	case Normal:
		return "Normal"
	case Eczema:
		return "Eczema"
	default:
		return string(g)
	}
}

// Valid reports whether g is one of the known groups.
func (g Group) Valid() bool {
	switch g {
	case Tumor, Normal, Eczema:
		return true
	}
	return false
}

// groupAliases maps normalized spellings to groups.
var groupAliases = map[string]Group{
	"tumor":            Tumor,
	"tumour":           Tumor,
	"ctcl":             Tumor,
	"ctcl (tumor)":     Tumor,
	"normal":           Normal,
	"healthy":          Normal,
	"control":          Normal,
	"normal (healthy)": Normal,
	"eczema":           Eczema,
	"benign":           Eczema,
	"ad":               Eczema,
	"eczema (benign)":  Eczema,
}

// ParseGroup parses a group from its name, display label or a common alias.
// Matching is case-insensitive.
func ParseGroup(s string) (Group, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if g, ok := groupAliases[key]; ok {
		return g, nil
	}
	return "", errors.NewValidationError("group", s, "must be one of tumor, normal, eczema")
}

// ParseGroups parses each entry with ParseGroup. Empty entries are skipped.
func ParseGroups(values []string) ([]Group, error) {
	groups := make([]Group, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		g, err := ParseGroup(v)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// NormalizeGene returns the canonical form of a gene symbol.
func NormalizeGene(gene string) string {
	return strings.ToUpper(strings.TrimSpace(gene))
}
