package cli

import (
	"errors"

	"github.com/reportforge/reportforge/pkg/config"
	"github.com/reportforge/reportforge/pkg/defaults"
	"github.com/reportforge/reportforge/pkg/reporterr"
)

// ExitInterrupted is used when a second interrupt forces an exit.
const ExitInterrupted = 130

// UsageError marks invalid arguments.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return defaults.ExitSuccess
	}
	var usage *UsageError
	switch {
	case errors.As(err, &usage),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingRequired):
		return defaults.ExitUserError
	}
	switch reporterr.KindOf(err) {
	case reporterr.KindMissingData:
		return defaults.ExitDataError
	case reporterr.KindRender:
		return defaults.ExitRenderError
	default:
		return defaults.ExitInternalError
	}
}
