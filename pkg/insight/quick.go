package insight

// QuickGene is a gene offered for one-click selection with its clinical role.
type QuickGene struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Role   string `json:"role" yaml:"role"`
}

// Label returns "SYMBOL (Role)".
func (q QuickGene) Label() string {
	return q.Symbol + " (" + q.Role + ")"
}

// DefaultGene is selected when no gene has been chosen yet.
const DefaultGene = "TOX"

// QuickGenes returns the quick-select markers in display order.
func QuickGenes() []QuickGene {
	return []QuickGene{
		{Symbol: "TOX", Role: "Exhaustion"},
		{Symbol: "CCR4", Role: "Target"},
		{Symbol: "CD3E", Role: "T-Cell"},
		{Symbol: "MKI67", Role: "Prolif."},
	}
}
