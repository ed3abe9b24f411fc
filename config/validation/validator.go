package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelection is returned when a selection key is empty
var ErrInvalidSelection = errors.New("invalid selection")

// Validator validates selections before any configuration is read
type Validator struct {
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSelection requires every key to be a non-empty string. levels names
// each position (e.g. provider, product, account) for the error message.
func (v *Validator) ValidateSelection(levels []string, keys ...string) error {
	if len(keys) != len(levels) {
		return fmt.Errorf("%w: expected %d keys (%s), got %d",
			ErrInvalidSelection, len(levels), strings.Join(levels, "/"), len(keys))
	}

	var empty []string
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			empty = append(empty, levels[i])
		}
	}
	if len(empty) > 0 {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidSelection, strings.Join(empty, ", "))
	}
	return nil
}
