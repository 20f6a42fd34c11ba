package cmdutil

import (
	"io"

	"github.com/ctcl-atlas/atlas/internal/cmd/alerts"
	"github.com/ctcl-atlas/atlas/internal/cmd/output"
	"github.com/ctcl-atlas/atlas/pkg/errors"
)

// ErrReported marks an error that has already been shown to the user.
var ErrReported = errors.New("error already reported")

type reportedError struct {
	err error
}

func (e *reportedError) Error() string        { return e.err.Error() }
func (e *reportedError) Unwrap() error        { return e.err }
func (e *reportedError) Is(target error) bool { return target == ErrReported }

// Report writes err as an alert in format and returns it marked as reported,
// so the top-level handler exits non-zero without printing it again.
func Report(w io.Writer, format output.Format, err error) error {
	if err == nil {
		return nil
	}
	if writeErr := alerts.NewFormatWriter(w, format).WriteAlert(alerts.FromError(err)); writeErr != nil {
		return err
	}
	return &reportedError{err: err}
}
