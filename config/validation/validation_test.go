package validation

import (
	"errors"
	"testing"

	"keyenv/internal/envmap"

	"github.com/stretchr/testify/assert"
)

func TestValidateSelection(t *testing.T) {
	levels := []string{"provider", "product", "account"}
	tests := []struct {
		name      string
		keys      []string
		wantErr   bool
		errSubstr string
	}{
		{"all present", []string{"openai", "codex", "work"}, false, ""},
		{"empty provider", []string{"", "p", "a"}, true, "provider cannot be empty"},
		{"blank account", []string{"x", "p", "  "}, true, "account cannot be empty"},
		{"several empty", []string{"", "", "a"}, true, "provider, product cannot be empty"},
		{"wrong arity", []string{"x", "y"}, true, "expected 3 keys"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSelection(levels, tt.keys...)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidSelection))
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestValidateEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     envmap.EnvMap
		wantErr bool
	}{
		{"valid", envmap.New("OPENAI_API_KEY", "sk", "_X1", `a "b" $c`), false},
		{"empty map", envmap.EnvMap{}, false},
		{"dash in name", envmap.New("BAD-NAME", "x"), true},
		{"leading digit", envmap.New("1ABC", "x"), true},
		{"newline in value", envmap.New("A", "line1\nline2"), true},
		{"carriage return", envmap.New("A", "x\r"), true},
		{"nul in value", envmap.New("A", "x\x00y"), true},
	}

	iv := NewInputValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := iv.ValidateEnv(tt.env)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidEnv), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateProfilePath(t *testing.T) {
	iv := NewInputValidator()
	assert.Error(t, iv.ValidateProfilePath(""))
	assert.Error(t, iv.ValidateProfilePath(t.TempDir()))
	assert.NoError(t, iv.ValidateProfilePath("/tmp/does-not-exist/.zshrc"))
}
