// Package app provides the application context and dependency management
// for the ctclatlas CLI. It centralizes configuration, logging and the
// lazily loaded atlas so commands receive them through one interface.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// App represents the ctclatlas application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Atlas instance (lazy-initialized, singleton)
	mu    sync.RWMutex
	atlas atlas.Atlas
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from files and the environment
// that can be customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format, detected from the
// terminal when unset.
func (a *App) OutputFormat() string {
	return string(output.DetectFormat(a.config.Format))
}

// Atlas returns the atlas instance, loading the configured dataset once.
// With options a new instance is built on top of the configured ones.
func (a *App) Atlas(opts ...atlas.Option) (atlas.Atlas, error) {
	if len(opts) > 0 {
		base, err := a.atlasOptions()
		if err != nil {
			return nil, err
		}
		at, err := atlas.New(append(base, opts...)...)
		if err != nil {
			return nil, errors.WrapResource("create", "atlas", "with custom options", err)
		}
		return at, nil
	}

	a.mu.RLock()
	if a.atlas != nil {
		at := a.atlas
		a.mu.RUnlock()
		return at, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.atlas != nil {
		return a.atlas, nil
	}

	if a.config.DatasetPath == "" {
		return nil, errors.NewConfigError("dataset",
			"no dataset configured: pass --dataset or set dataset in ~/.ctclatlas.yaml", nil)
	}

	base, err := a.atlasOptions()
	if err != nil {
		return nil, err
	}
	at, err := atlas.New(base...)
	if err != nil {
		return nil, errors.WrapResource("load", "atlas", a.config.DatasetPath, err)
	}

	a.atlas = at
	return at, nil
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	loaded := a.atlas != nil
	a.mu.RUnlock()

	a.logger.Debug().Bool("atlas_loaded", loaded).Msg("Shutting down")
	return nil
}

// atlasOptions constructs atlas options from the app configuration.
func (a *App) atlasOptions() ([]atlas.Option, error) {
	policy := a.config.Policy
	if policy.Metric == "" {
		policy = compare.DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, errors.NewConfigError("policy", err.Error(), err)
	}

	opts := []atlas.Option{
		atlas.WithLogger(a.logger),
		atlas.WithPolicy(policy),
		atlas.WithStrictLoading(a.config.Strict),
	}
	if a.config.DatasetPath != "" {
		opts = append(opts, atlas.WithManifest(a.config.DatasetPath))
	}
	if a.config.Target != "" {
		opts = append(opts, atlas.WithTarget(a.config.Target))
	}
	if a.config.LoadTimeout > 0 {
		opts = append(opts, atlas.WithLoadTimeout(a.config.LoadTimeout))
	}
	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithAtlas sets a custom atlas instance (useful for testing).
func WithAtlas(at atlas.Atlas) Option {
	return func(a *App) error {
		a.atlas = at
		return nil
	}
}
