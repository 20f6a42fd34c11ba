// Package constants provides shared constants used throughout the atlas codebase.
// This includes comparator defaults, timeouts, limits, file permissions, and
// other values that should be consistent across the CLI, the API server and
// the library.
package constants

import "time"

// Comparator defaults. These seed compare.DefaultPolicy and are the values a
// clinician sees unless the policy is overridden in config or flags.
const (
	// DefaultEffectThreshold is the minimum |effect| for a difference to be
	// called significant. With the mean-difference metric this reproduces the
	// dashboard rule "Tumor mean exceeds Eczema mean by more than 0.5".
	DefaultEffectThreshold = 0.5

	// DefaultMaxPValue disables the p-value gate when zero.
	DefaultMaxPValue = 0.0

	// DefaultMinCells is the smallest group size with a defined sample spread
	DefaultMinCells = 2

	// DefaultPseudocount is added to both means before taking log2 fold change
	DefaultPseudocount = 1.0

	// MaxSuggestions caps the number of close gene symbols offered for an unknown gene
	MaxSuggestions = 5
)

// Dataset description defaults
const (
	// DefaultSource is the GEO accession of the CTCL atlas
	DefaultSource = "GSE128531"

	// DefaultDatasetName is the display name of the bundled dataset
	DefaultDatasetName = "CTCL Clinical Atlas"

	// MissingGeneNote explains why a clinically interesting gene may be absent
	MissingGeneNote = "This lightweight dataset only contains the top ~5,000 variable genes and clinical markers."
)

// Timeout constants define various timeout durations used in the application
const (
	// LoadTimeout bounds reading a dataset from disk
	LoadTimeout = 5 * time.Minute

	// ShutdownTimeout is the grace period for draining HTTP connections
	ShutdownTimeout = 30 * time.Second
)

// FilePermissions is the mode of created log files (rw-r--r--).
const FilePermissions = 0644

// Limit constants define various limits and capacities
const (
	// DefaultPageSize is the default number of items per page for paginated results
	DefaultPageSize = 100

	// MaxPageSize is the maximum allowed page size for paginated results
	MaxPageSize = 1000

	// MaxGeneSymbolLength is the longest gene symbol accepted from user input
	MaxGeneSymbolLength = 64

	// MaxLineBytes is the scanner buffer ceiling for wide expression tables
	MaxLineBytes = 64 * 1024 * 1024

	// WebSocketReadLimit caps a single explorer message in bytes
	WebSocketReadLimit = 4096
)

// Rate limiting and cache constants
const (
	// DefaultRateLimit is the default requests per minute per client IP
	DefaultRateLimit = 100

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 10

	// CacheTTL is the default time-to-live for cached API responses
	CacheTTL = 5 * time.Minute
)

// Path constants
const (
	// DefaultConfigName is the config file name searched in $HOME and the working directory
	DefaultConfigName = ".ctclatlas"

	// DefaultManifestName is the dataset manifest file name
	DefaultManifestName = "dataset.yaml"
)
