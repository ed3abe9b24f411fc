package validation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"keyenv/internal/envmap"
	"keyenv/internal/shell"
)

// ErrInvalidEnv is returned for variables that cannot be exported safely
var ErrInvalidEnv = errors.New("invalid environment variable")

// InputValidator validates user input
type InputValidator struct {
}

// NewInputValidator creates a new InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateEnvName checks that a name is a shell identifier
func (iv *InputValidator) ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidEnv)
	}
	if !shell.IsValidName(name) {
		return fmt.Errorf("%w: %q is not a valid shell variable name", ErrInvalidEnv, name)
	}
	return nil
}

// ValidateEnvValue rejects values that cannot live on one line of the profile
// or state file, or in the process environment
func (iv *InputValidator) ValidateEnvValue(name, value string) error {
	if strings.ContainsAny(value, "\x00\r\n") {
		return fmt.Errorf("%w: value of %s contains a NUL or line break", ErrInvalidEnv, name)
	}
	return nil
}

// ValidateEnv checks every entry of env
func (iv *InputValidator) ValidateEnv(env envmap.EnvMap) error {
	var err error
	env.Each(func(k, v string) bool {
		if err = iv.ValidateEnvName(k); err != nil {
			return false
		}
		err = iv.ValidateEnvValue(k, v)
		return err == nil
	})
	return err
}

// ValidateProfilePath checks a user-supplied profile path
func (iv *InputValidator) ValidateProfilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("profile path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("profile path contains a NUL byte")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("profile path %s is a directory", path)
	}
	return nil
}
