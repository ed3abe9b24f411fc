package config

import (
	"errors"
	"fmt"

	"keyenv/config/validation"
)

// Sentinel errors matched with errors.Is by callers.
var (
	ErrConfigUnreadable  = errors.New("configuration unreadable")
	ErrSelectionNotFound = errors.New("selection not found")
	ErrTokenMissing      = errors.New("token missing")
	ErrTokenFieldMissing = errors.New("token_field missing")
	// ErrInvalidSelection is re-exported from the validation package.
	ErrInvalidSelection = validation.ErrInvalidSelection
)

// Level names one tier of a selection.
type Level string

const (
	LevelProvider Level = "provider"
	LevelProduct  Level = "product"
	LevelModel    Level = "model"
	LevelAccount  Level = "account"
)

// ConfigUnreadableError reports a configuration document that is missing or
// does not parse.
type ConfigUnreadableError struct {
	Path string
	Err  error
}

func (e *ConfigUnreadableError) Error() string {
	return fmt.Sprintf("cannot read configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigUnreadableError) Unwrap() error { return e.Err }

func (e *ConfigUnreadableError) Is(target error) bool { return target == ErrConfigUnreadable }

// SelectionNotFoundError names the level whose key does not exist.
type SelectionNotFoundError struct {
	Level Level
	Key   string
}

func (e *SelectionNotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Level, e.Key)
}

func (e *SelectionNotFoundError) Is(target error) bool { return target == ErrSelectionNotFound }

// TokenMissingError reports an account without a token.
type TokenMissingError struct {
	Account string
}

func (e *TokenMissingError) Error() string {
	return fmt.Sprintf("account %q has no token configured", e.Account)
}

func (e *TokenMissingError) Is(target error) bool { return target == ErrTokenMissing }

// TokenFieldMissingError reports a product or model without token_field.
type TokenFieldMissingError struct {
	Level Level
	Key   string
}

func (e *TokenFieldMissingError) Error() string {
	return fmt.Sprintf("%s %q has no token_field configured", e.Level, e.Key)
}

func (e *TokenFieldMissingError) Is(target error) bool { return target == ErrTokenFieldMissing }
