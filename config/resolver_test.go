package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"keyenv/config/models"
	"keyenv/internal/envmap"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerDoc = `version = 1

[models.zhipu]
name = "Zhipu"

[models.zhipu.products.claude-code]
name = "Claude Code"
token_field = "TOKEN_VAR"

[models.zhipu.products.claude-code.default_config]
X = "a"
TOKEN_VAR = "placeholder"
TIMEOUT = 3000
DEBUG = true
RATIO = 0.5

[models.zhipu.products.codex]
default_config = { OPENAI_BASE_URL = "https://example.test/v1" }

[models.zhipu.accounts.work]
name = "Work"
token = "secret"

[models.zhipu.accounts.draft]
name = "Draft"

[models.zhipu.accounts.anon]
token = "t"

[models.bare]
[models.bare.accounts.a]
name = "A"
token = "x"

[models.empty]
name = "Empty"
`

const productDoc = `version = 2

[products.claude-code]
name = "Claude Code"

[products.claude-code.models.kimi]
name = "Kimi"
token_field = "ANTHROPIC_AUTH_TOKEN"

[products.claude-code.models.kimi.default_config]
ANTHROPIC_BASE_URL = "https://api.moonshot.cn/anthropic"

[products.claude-code.models.bare]

[products.other.models.kimi]
token_field = "KIMI_KEY"

[products.none]
name = "None"
`

const tokenDoc = `[kimi.personal]
name = "Personal"
token = "sk-kimi"

[kimi.unnamed]
token = "sk-2"

[kimi.pending]
name = "Pending"
`

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func providerResolver(t *testing.T) *Resolver {
	t.Helper()
	paths := PathsIn(t.TempDir())
	writeDoc(t, paths.ConfigFile, providerDoc)
	return NewResolver(paths, models.LayoutProvider, zerolog.Nop())
}

func productResolver(t *testing.T) *Resolver {
	t.Helper()
	paths := PathsIn(t.TempDir())
	writeDoc(t, paths.ProductsFile, productDoc)
	writeDoc(t, paths.TokensFile, tokenDoc)
	return NewResolver(paths, models.LayoutProduct, zerolog.Nop())
}

func TestBuildEnvTokenOverridesDefault(t *testing.T) {
	r := providerResolver(t)

	env, err := r.BuildEnv("zhipu", "claude-code", "work")
	require.NoError(t, err)

	assert.Equal(t, []string{"X", "TOKEN_VAR", "TIMEOUT", "DEBUG", "RATIO"}, env.Keys())
	assert.Equal(t, map[string]string{
		"X":         "a",
		"TOKEN_VAR": "secret",
		"TIMEOUT":   "3000",
		"DEBUG":     "true",
		"RATIO":     "0.5",
	}, env.Map())
}

func TestBuildEnvErrors(t *testing.T) {
	r := providerResolver(t)

	tests := []struct {
		name   string
		keys   [3]string
		target error
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unknown provider",
			keys:   [3]string{"nope", "claude-code", "work"},
			target: ErrSelectionNotFound,
			check: func(t *testing.T, err error) {
				var nf *SelectionNotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Equal(t, LevelProvider, nf.Level)
				assert.Equal(t, "nope", nf.Key)
			},
		},
		{
			name:   "unknown product",
			keys:   [3]string{"zhipu", "nope", "work"},
			target: ErrSelectionNotFound,
			check: func(t *testing.T, err error) {
				var nf *SelectionNotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Equal(t, LevelProduct, nf.Level)
			},
		},
		{
			name:   "account of another provider",
			keys:   [3]string{"zhipu", "claude-code", "a"},
			target: ErrSelectionNotFound,
			check: func(t *testing.T, err error) {
				var nf *SelectionNotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Equal(t, LevelAccount, nf.Level)
			},
		},
		{
			name:   "account without token",
			keys:   [3]string{"zhipu", "claude-code", "draft"},
			target: ErrTokenMissing,
		},
		{
			name:   "product without token_field",
			keys:   [3]string{"zhipu", "codex", "work"},
			target: ErrTokenFieldMissing,
		},
		{
			name:   "empty key",
			keys:   [3]string{"zhipu", "", "work"},
			target: ErrInvalidSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := r.BuildEnv(tt.keys[0], tt.keys[1], tt.keys[2])
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Zero(t, env.Len(), "no partial map on error")
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestBuildEnvEmptySelectionDoesNoIO(t *testing.T) {
	// The configuration file does not exist: any read would surface
	// ErrConfigUnreadable instead of ErrInvalidSelection.
	r := NewResolver(PathsIn(filepath.Join(t.TempDir(), "missing")), models.LayoutProvider, zerolog.Nop())

	_, err := r.BuildEnv("", "p", "a")
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.NotErrorIs(t, err, ErrConfigUnreadable)

	_, err = r.BuildModelEnv("p", "m", "")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestListProviders(t *testing.T) {
	r := providerResolver(t)

	items, err := r.ListProviders()
	require.NoError(t, err)
	assert.Equal(t, []models.Item{
		{Key: "zhipu", Name: "Zhipu"},
		{Key: "empty", Name: "Empty"},
	}, items)
}

func TestListProductsAndAccounts(t *testing.T) {
	r := providerResolver(t)

	products, err := r.ListProducts("zhipu")
	require.NoError(t, err)
	assert.Equal(t, []models.Item{
		{Key: "claude-code", Name: "Claude Code"},
		{Key: "codex", Name: "codex"},
	}, products)

	empty, err := r.ListProducts("empty")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	unknown, err := r.ListProducts("nope")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	accounts, err := r.ListAccounts("zhipu")
	require.NoError(t, err)
	assert.Equal(t, []models.Account{{Key: "work", Name: "Work", Token: "secret"}}, accounts)
}

func TestConfigUnreadable(t *testing.T) {
	paths := PathsIn(t.TempDir())
	r := NewResolver(paths, models.LayoutProvider, zerolog.Nop())

	_, err := r.ListProviders()
	var cu *ConfigUnreadableError
	require.True(t, errors.As(err, &cu))
	assert.Equal(t, paths.ConfigFile, cu.Path)

	writeDoc(t, paths.ConfigFile, "[models.x\nname = ")
	_, err = r.ListProviders()
	assert.ErrorIs(t, err, ErrConfigUnreadable)
	assert.Contains(t, err.Error(), paths.ConfigFile)
}

func TestConfigUnreadableRejectsNestedDefaults(t *testing.T) {
	paths := PathsIn(t.TempDir())
	writeDoc(t, paths.ConfigFile, `[models.p.products.q.default_config]
LIST = ["a", "b"]
`)
	r := NewResolver(paths, models.LayoutProvider, zerolog.Nop())

	_, err := r.ListProducts("p")
	assert.ErrorIs(t, err, ErrConfigUnreadable)
	assert.Contains(t, err.Error(), "LIST")
}

func TestUnsupportedVersion(t *testing.T) {
	paths := PathsIn(t.TempDir())
	writeDoc(t, paths.ConfigFile, "version = 2\n")
	r := NewResolver(paths, models.LayoutProvider, zerolog.Nop())

	_, err := r.ListProviders()
	assert.ErrorIs(t, err, ErrConfigUnreadable)
	assert.Contains(t, err.Error(), "unsupported version 2")
}

func TestResolverReadsFreshEveryCall(t *testing.T) {
	r := providerResolver(t)

	env, err := r.BuildEnv("zhipu", "claude-code", "work")
	require.NoError(t, err)
	assert.Equal(t, "secret", env.Map()["TOKEN_VAR"])

	writeDoc(t, r.Paths().ConfigFile, `[models.zhipu.products.claude-code]
token_field = "TOKEN_VAR"
[models.zhipu.accounts.work]
name = "Work"
token = "rotated"
`)
	env, err = r.BuildEnv("zhipu", "claude-code", "work")
	require.NoError(t, err)
	assert.True(t, env.Equal(envmap.New("TOKEN_VAR", "rotated")))
}

func TestBuildModelEnv(t *testing.T) {
	r := productResolver(t)

	env, err := r.BuildModelEnv("claude-code", "kimi", "personal")
	require.NoError(t, err)
	assert.True(t, env.Equal(envmap.New(
		"ANTHROPIC_BASE_URL", "https://api.moonshot.cn/anthropic",
		"ANTHROPIC_AUTH_TOKEN", "sk-kimi",
	)), "got %v", env.Map())
}

func TestModelAccountsAreSharedAcrossProducts(t *testing.T) {
	r := productResolver(t)

	env, err := r.BuildModelEnv("other", "kimi", "personal")
	require.NoError(t, err)
	assert.True(t, env.Equal(envmap.New("KIMI_KEY", "sk-kimi")))
}

func TestBuildModelEnvErrors(t *testing.T) {
	r := productResolver(t)

	_, err := r.BuildModelEnv("claude-code", "nope", "personal")
	var nf *SelectionNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, LevelModel, nf.Level)

	_, err = r.BuildModelEnv("claude-code", "kimi", "nope")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, LevelAccount, nf.Level)

	_, err = r.BuildModelEnv("claude-code", "kimi", "pending")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = r.BuildModelEnv("claude-code", "bare", "personal")
	require.True(t, errors.As(err, &nf), "bare has no accounts")
}

func TestListModelLayout(t *testing.T) {
	r := productResolver(t)

	keys, err := r.ListProductKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-code", "other", "none"}, keys)

	modelsList, err := r.ListModels("claude-code")
	require.NoError(t, err)
	assert.Equal(t, []models.Item{{Key: "kimi", Name: "Kimi"}, {Key: "bare", Name: "bare"}}, modelsList)

	none, err := r.ListModels("none")
	require.NoError(t, err)
	assert.Empty(t, none)

	accounts, err := r.ListAccountsForModel("kimi")
	require.NoError(t, err)
	assert.Equal(t, []models.Account{
		{Key: "personal", Name: "Personal", Token: "sk-kimi"},
		{Key: "unnamed", Name: "unnamed", Token: "sk-2"},
	}, accounts)
}

func TestProductLayoutFallsBackToBundledCatalog(t *testing.T) {
	paths := PathsIn(t.TempDir())
	writeDoc(t, paths.TokensFile, `[glm.main]
token = "sk-glm"
`)
	r := NewResolver(paths, models.LayoutProduct, zerolog.Nop())

	keys, err := r.ListProductKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-code", "codex"}, keys)

	env, err := r.BuildModelEnv("claude-code", "glm", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"ANTHROPIC_BASE_URL", "ANTHROPIC_AUTH_TOKEN"}, env.Keys())
}

func TestProductLayoutWithoutTokens(t *testing.T) {
	r := NewResolver(PathsIn(t.TempDir()), models.LayoutProduct, zerolog.Nop())

	accounts, err := r.ListAccountsForModel("glm")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestLayoutNeutralOperations(t *testing.T) {
	a := providerResolver(t)
	b := productResolver(t)

	assert.Equal(t, []Level{LevelProvider, LevelProduct, LevelAccount}, a.Levels())
	assert.Equal(t, []Level{LevelProduct, LevelModel, LevelAccount}, b.Levels())

	groups, err := b.Groups()
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	units, err := a.Units("zhipu")
	require.NoError(t, err)
	assert.Len(t, units, 2)

	accounts, err := b.Accounts("claude-code", "kimi")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	env, err := a.Build(Selection{Group: "zhipu", Unit: "claude-code", Account: "work"})
	require.NoError(t, err)
	assert.Equal(t, "secret", env.Map()["TOKEN_VAR"])

	env, err = b.Build(SelectionFromKeys([]string{"claude-code", "kimi", "personal"}))
	require.NoError(t, err)
	assert.Equal(t, "sk-kimi", env.Map()["ANTHROPIC_AUTH_TOKEN"])
}

func TestDetectLayout(t *testing.T) {
	paths := PathsIn(t.TempDir())
	assert.Equal(t, models.LayoutProvider, DetectLayout(paths))

	writeDoc(t, paths.TokensFile, "")
	assert.Equal(t, models.LayoutProduct, DetectLayout(paths))

	writeDoc(t, paths.ConfigFile, "")
	assert.Equal(t, models.LayoutProvider, DetectLayout(paths))
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("KEYENV_HOME", "/opt/keyenv")
	p, err := DefaultPaths()
	require.NoError(t, err)
	assert.Equal(t, "/opt/keyenv/state.env", p.StateFile)

	t.Setenv("KEYENV_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err = DefaultPaths()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/keyenv", p.Dir)
}
