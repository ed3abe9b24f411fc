package cmd

import (
	"errors"
	"fmt"

	"keyenv/config"
	"keyenv/internal/envsync"
)

// Sentinels of the domain packages, re-exported for the CLI layer.
var (
	ErrConfigUnreadable  = config.ErrConfigUnreadable
	ErrSelectionNotFound = config.ErrSelectionNotFound
	ErrTokenMissing      = config.ErrTokenMissing
	ErrTokenFieldMissing = config.ErrTokenFieldMissing
	ErrInvalidSelection  = config.ErrInvalidSelection
	ErrCorruptBlock      = envsync.ErrCorruptBlock
	ErrProfileWrite      = envsync.ErrProfileWrite
	ErrStateWrite        = envsync.ErrStateWrite
)

// ErrNoSelection is returned when a command needs a remembered selection
var ErrNoSelection = fmt.Errorf("%w: no selection remembered; run 'keyenv use' first", ErrInvalidSelection)

// hintFor suggests a fix for well-known failures
func hintFor(err error) string {
	var pw *envsync.ProfileWriteError
	switch {
	case errors.As(err, &pw) && pw.LiveApplied:
		return "the variables are set for this process only; fix the profile and run 'keyenv use' again"
	case errors.Is(err, ErrCorruptBlock):
		return "remove the unmatched keyenv marker lines from the profile by hand"
	case errors.Is(err, ErrTokenMissing), errors.Is(err, ErrTokenFieldMissing):
		return "complete the entry in the configuration file"
	case errors.Is(err, ErrSelectionNotFound):
		return "run 'keyenv list' to see what is configured"
	default:
		return ""
	}
}
