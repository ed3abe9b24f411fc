package cmd

import "errors"

// ExitCode is the process exit status of keyenv
type ExitCode int

const (
	// ExitSuccess is a normal exit
	ExitSuccess ExitCode = 0
	// ExitGeneral is any other failure
	ExitGeneral ExitCode = 1
	// ExitConfigError means the configuration could not be read or is incomplete
	ExitConfigError ExitCode = 2
	// ExitSelection means the selection is empty or does not exist
	ExitSelection ExitCode = 3
	// ExitWriteFailed means the profile or state could not be written
	ExitWriteFailed ExitCode = 4
)

// MapExitCode returns the exit code for err based on its sentinel
func MapExitCode(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case errors.Is(err, ErrInvalidSelection), errors.Is(err, ErrSelectionNotFound):
		return ExitSelection
	case errors.Is(err, ErrConfigUnreadable), errors.Is(err, ErrTokenMissing), errors.Is(err, ErrTokenFieldMissing):
		return ExitConfigError
	case errors.Is(err, ErrProfileWrite), errors.Is(err, ErrStateWrite), errors.Is(err, ErrCorruptBlock):
		return ExitWriteFailed
	default:
		return ExitGeneral
	}
}
