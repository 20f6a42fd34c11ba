// Package logging wires zerolog for the atlas: console output on a
// terminal, JSON everywhere else, and a logger carried on the context so
// that a comparison logs with the gene and request it belongs to.
//
//	ctx := logging.WithLogger(context.Background(), &logger)
//	ctx = logging.WithGene(ctx, "CCR4")
//	logging.FromContext(ctx).Debug().Int("cells", n).Msg("Summarized group")
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = NewLoggerFromConfig(DefaultConfig())

// Default returns the process-wide logger used when a context carries none.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger and zerolog's global one.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

// Warn starts a warn event on the default logger.
func Warn() *zerolog.Event { return defaultLogger.Warn() }

// Error starts an error event on the default logger.
func Error() *zerolog.Event { return defaultLogger.Error() }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
