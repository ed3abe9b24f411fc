package envsync

import (
	"errors"
	"fmt"

	"keyenv/config/validation"
)

// Sentinel errors matched with errors.Is
var (
	ErrInvalidEnv        = validation.ErrInvalidEnv
	ErrLiveEnvFailed     = errors.New("live environment update failed")
	ErrProfileReadFailed = errors.New("profile read failed")
	ErrProfileWrite      = errors.New("profile write failed")
	ErrCorruptBlock      = errors.New("corrupt managed block")
	ErrSettingsWrite     = errors.New("settings write failed")
	ErrStateWrite        = errors.New("state write failed")
)

// LiveEnvError reports a failure to change the process environment. Nothing
// on disk has been touched.
type LiveEnvError struct {
	Key string
	Err error
}

func (e *LiveEnvError) Error() string {
	return fmt.Sprintf("failed to update %s in the live environment: %v", e.Key, e.Err)
}

func (e *LiveEnvError) Unwrap() error { return e.Err }

func (e *LiveEnvError) Is(target error) bool { return target == ErrLiveEnvFailed }

// ProfileReadError reports an unreadable shell profile. It is raised before
// the live environment is changed.
type ProfileReadError struct {
	Path string
	Err  error
}

func (e *ProfileReadError) Error() string {
	return fmt.Sprintf("failed to read profile %s: %v", e.Path, e.Err)
}

func (e *ProfileReadError) Unwrap() error { return e.Err }

func (e *ProfileReadError) Is(target error) bool { return target == ErrProfileReadFailed }

// CorruptBlockError reports a managed block that cannot be stripped safely,
// such as a start sentinel without its end sentinel. Like ProfileReadError
// it leaves the live environment untouched.
type CorruptBlockError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptBlockError) Error() string {
	return fmt.Sprintf("profile %s has a corrupt keyenv block at line %d: %v", e.Path, e.Line, e.Err)
}

func (e *CorruptBlockError) Unwrap() error { return e.Err }

func (e *CorruptBlockError) Is(target error) bool { return target == ErrCorruptBlock }

// ProfileWriteError reports a failed profile rewrite. When LiveApplied is set
// the process environment already holds the new values while the profile and
// state file do not.
type ProfileWriteError struct {
	Path        string
	Err         error
	LiveApplied bool
}

func (e *ProfileWriteError) Error() string {
	msg := fmt.Sprintf("failed to write profile %s: %v", e.Path, e.Err)
	if e.LiveApplied {
		msg += " (the current process environment was already updated)"
	}
	return msg
}

func (e *ProfileWriteError) Unwrap() error { return e.Err }

func (e *ProfileWriteError) Is(target error) bool { return target == ErrProfileWrite }

// SettingsWriteError reports a JSON settings file that could not be updated
type SettingsWriteError struct {
	Path string
	Err  error
}

func (e *SettingsWriteError) Error() string {
	return fmt.Sprintf("failed to update settings %s: %v", e.Path, e.Err)
}

func (e *SettingsWriteError) Unwrap() error { return e.Err }

func (e *SettingsWriteError) Is(target error) bool { return target == ErrSettingsWrite }

// StateWriteError reports that the applied state could not be persisted
type StateWriteError struct {
	Path string
	Err  error
}

func (e *StateWriteError) Error() string {
	return fmt.Sprintf("failed to persist state %s: %v", e.Path, e.Err)
}

func (e *StateWriteError) Unwrap() error { return e.Err }

func (e *StateWriteError) Is(target error) bool { return target == ErrStateWrite }

// InvalidEnvError reports an environment map that cannot be exported safely.
// Nothing has been touched.
type InvalidEnvError struct {
	Err error
}

func (e *InvalidEnvError) Error() string { return e.Err.Error() }

func (e *InvalidEnvError) Unwrap() error { return e.Err }

func (e *InvalidEnvError) Is(target error) bool { return target == ErrInvalidEnv }
