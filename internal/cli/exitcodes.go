package cli

import (
	"errors"

	"github.com/frankli0324/go-centra"
)

// Exit codes for the centra command
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitFailure indicates the request failed on the network or the wire
	ExitFailure = 1

	// ExitHTTPError indicates a 4xx or 5xx response under --fail
	ExitHTTPError = 2

	// ExitConfigError indicates an invalid request or configuration
	ExitConfigError = 3

	// ExitTimeout indicates the request timed out
	ExitTimeout = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// usageError marks errors in the command line or config file.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		status *statusError
		usage  usageError
		cfg    *centra.ConfigError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &status):
		return ExitHTTPError
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfg):
		return ExitConfigError
	case errors.Is(err, centra.ErrTimeout):
		return ExitTimeout
	}
	return ExitFailure
}
