package atlas

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// Option is a function that configures an Atlas instance
type Option func(*config) error

// config holds the options collected by New
type config struct {
	dataset      *expression.Dataset
	manifestPath string
	strict       bool
	loadTimeout  time.Duration
	policy       compare.Policy
	target       expression.Group
	parallel     bool
	logger       *zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		loadTimeout: constants.LoadTimeout,
		policy:      compare.DefaultPolicy(),
		target:      expression.Tumor,
		parallel:    true,
	}
}

// WithDataset uses an already built dataset.
func WithDataset(ds *expression.Dataset) Option {
	return func(c *config) error {
		if ds == nil {
			return errors.NewValidationError("dataset", nil, "dataset is nil")
		}
		c.dataset = ds
		return nil
	}
}

// WithManifest loads the dataset described by a manifest file or a
// directory holding dataset.yaml. WithDataset takes precedence.
func WithManifest(path string) Option {
	return func(c *config) error {
		if path == "" {
			return errors.NewValidationError("manifest", path, "manifest path is empty")
		}
		c.manifestPath = path
		return nil
	}
}

// WithStrictLoading fails the load when the matrix holds cells without metadata.
func WithStrictLoading(strict bool) Option {
	return func(c *config) error {
		c.strict = strict
		return nil
	}
}

// WithLoadTimeout bounds how long New may spend reading a manifest dataset.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("load_timeout", d, "must be positive")
		}
		c.loadTimeout = d
		return nil
	}
}

// WithPolicy sets the significance policy used by every comparison.
func WithPolicy(p compare.Policy) Option {
	return func(c *config) error {
		if err := p.Validate(); err != nil {
			return err
		}
		c.policy = p
		return nil
	}
}

// WithTarget sets the default target group. Tumor unless overridden.
func WithTarget(g expression.Group) Option {
	return func(c *config) error {
		if !g.Valid() {
			return errors.NewValidationError("target", g, "unknown group")
		}
		c.target = g
		return nil
	}
}

// WithParallel toggles concurrent per-group summarization.
func WithParallel(enabled bool) Option {
	return func(c *config) error {
		c.parallel = enabled
		return nil
	}
}

// WithLogger sets the logger for load and comparison events.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}
