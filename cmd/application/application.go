// Package application provides the application interface for ctclatlas commands
// and the API server.
//
// Commands and the server accept this interface rather than the concrete App
// type so they can be tested against a stub that serves an in-memory dataset:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            a, err := app.Atlas()
//	            if err != nil {
//	                return err
//	            }
//	            ins, err := a.Insight(cmd.Context(), args[0])
//	            // ... render ins
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas"
)

// Application provides the application interface that commands need.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Atlas returns the atlas instance. Without options it returns the
	// default instance, loaded once from the configured manifest. With options
	// a new instance is created on top of the default configuration.
	Atlas(opts ...atlas.Option) (atlas.Atlas, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, ...).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
