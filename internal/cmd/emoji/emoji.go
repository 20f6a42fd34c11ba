// Package emoji holds the status marks shared by CLI tables, alerts and
// the serve command.
package emoji

const (
	// Success marks a significant comparison, an available quick pick or a
	// completed server step.
	Success = "✓"

	// Error marks failed operations and non-significant comparisons.
	Error = "✗"

	// Stop precedes shutdown messages.
	Stop = "■"

	Warning = "!"
	Info    = "i"
	Unknown = "?"

	// Optional fills cells that have no value, such as a quick-select
	// marker missing from a reduced dataset.
	Optional = "-"
)
