package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"keyenv/config"
	"keyenv/internal/shell"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `version = 1

[models.openai]
name = "OpenAI"

[models.openai.products.codex]
name = "Codex"
token_field = "OPENAI_API_KEY"

[models.openai.products.codex.default_config]
OPENAI_BASE_URL = "https://api.openai.com/v1"

[models.openai.accounts.work]
name = "Work"
token = "sk-work-0123456789"

[models.openai.accounts.home]
name = "Home"
token = "sk-home-0123456789"

[models.openai.accounts.empty]
name = "Empty"
`

type fakeEnv map[string]string

func (f fakeEnv) Setenv(key, value string) error { f[key] = value; return nil }

func (f fakeEnv) Unsetenv(key string) error { delete(f, key); return nil }

type testEnv struct {
	dir     string
	home    string
	profile string
	live    fakeEnv
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	te := &testEnv{
		dir:  filepath.Join(root, "cfg"),
		home: filepath.Join(root, "home"),
		live: fakeEnv{},
	}
	te.profile = filepath.Join(te.home, ".zshrc")
	require.NoError(t, os.MkdirAll(te.dir, 0700))
	require.NoError(t, os.MkdirAll(te.home, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(te.dir, config.ConfigFileName), []byte(testConfig), 0600))

	t.Setenv("HOME", te.home)
	t.Setenv("SHELL", "/bin/zsh")
	return te
}

// run executes the CLI with a fresh App, as main does for every invocation
func (te *testEnv) run(t *testing.T, stdin string, interactive bool, args ...string) (string, string, error) {
	t.Helper()
	app := NewApp("test", "abc", "today")
	app.liveEnv = te.live
	app.stdin = strings.NewReader(stdin)
	app.interactive = func() bool { return interactive }

	root := NewRootCmd(app)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", te.dir}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestListCommands(t *testing.T) {
	te := setupTestEnv(t)

	out, _, err := te.run(t, "", false, "list", "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "openai")
	assert.Contains(t, out, "OpenAI")

	out, _, err = te.run(t, "", false, "list", "products", "openai")
	require.NoError(t, err)
	assert.Contains(t, out, "codex")

	out, _, err = te.run(t, "", false, "list", "accounts", "openai")
	require.NoError(t, err)
	assert.Contains(t, out, "work")
	assert.Contains(t, out, "sk-w****6789")
	assert.NotContains(t, out, "sk-work-0123456789")
	assert.NotContains(t, out, "Empty", "accounts without a token are hidden")
}

func TestEnvCommand(t *testing.T) {
	te := setupTestEnv(t)

	out, _, err := te.run(t, "", false, "env", "openai", "codex", "work")
	require.NoError(t, err)
	assert.Equal(t, "export OPENAI_BASE_URL=\"https://api.openai.com/v1\"\nexport OPENAI_API_KEY=\"sk-work-0123456789\"\n", out)

	out, _, err = te.run(t, "", false, "env", "--json", "openai", "codex", "work")
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "sk-work-0123456789", decoded["OPENAI_API_KEY"])
	assert.Less(t, strings.Index(out, "OPENAI_BASE_URL"), strings.Index(out, "OPENAI_API_KEY"))

	assert.Empty(t, te.live, "env never applies")
}

func TestUseAppliesAndRemembers(t *testing.T) {
	te := setupTestEnv(t)

	out, errOut, err := te.run(t, "", false, "use", "--print", "openai", "codex", "work")
	require.NoError(t, err)
	assert.Contains(t, out, `export OPENAI_API_KEY="sk-work-0123456789"`)
	assert.Contains(t, errOut, "Applied openai/codex/work")
	assert.Equal(t, "sk-work-0123456789", te.live["OPENAI_API_KEY"])

	profile, err := os.ReadFile(te.profile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(profile), shell.BlockStart))

	prefs, err := config.LoadPrefs(filepath.Join(te.dir, config.PrefsFileName))
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "codex", "work"}, prefs.Selection)

	// without arguments outside a terminal the remembered selection is reused
	_, _, err = te.run(t, "", false, "use")
	require.NoError(t, err)
	again, err := os.ReadFile(te.profile)
	require.NoError(t, err)
	assert.Equal(t, string(profile), string(again))
}

func TestUsePromptsForMissingLevels(t *testing.T) {
	te := setupTestEnv(t)

	_, errOut, err := te.run(t, "2\n", true, "use", "openai", "codex")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Available accounts")
	assert.Equal(t, "sk-home-0123456789", te.live["OPENAI_API_KEY"])

	// Enter keeps the remembered choice at every level
	_, _, err = te.run(t, "\n\n\n", true, "use")
	require.NoError(t, err)
	assert.Equal(t, "sk-home-0123456789", te.live["OPENAI_API_KEY"])
}

func TestUseWithoutSelectionFails(t *testing.T) {
	te := setupTestEnv(t)

	_, _, err := te.run(t, "", false, "use", "openai")
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, ExitSelection, MapExitCode(err))
}

func TestUseReportsUnknownSelection(t *testing.T) {
	te := setupTestEnv(t)

	_, _, err := te.run(t, "", false, "use", "openai", "codex", "nobody")
	var nf *config.SelectionNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, config.LevelAccount, nf.Level)
	assert.NoFileExists(t, te.profile)

	_, _, err = te.run(t, "", false, "use", "openai", "codex", "empty")
	assert.Equal(t, ExitConfigError, MapExitCode(err))
}

func TestClearRemovesEverything(t *testing.T) {
	te := setupTestEnv(t)
	require.NoError(t, os.WriteFile(te.profile, []byte("echo hi\n"), 0644))

	_, _, err := te.run(t, "", false, "use", "openai", "codex", "work")
	require.NoError(t, err)

	out, _, err := te.run(t, "", false, "clear", "--print")
	require.NoError(t, err)
	assert.Equal(t, "unset OPENAI_BASE_URL\nunset OPENAI_API_KEY\n", out)
	assert.Empty(t, te.live)

	profile, err := os.ReadFile(te.profile)
	require.NoError(t, err)
	assert.Equal(t, "echo hi\n", string(profile))

	_, _, err = te.run(t, "", false, "watch")
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestStatusAndLoadActive(t *testing.T) {
	te := setupTestEnv(t)
	_, _, err := te.run(t, "", false, "use", "openai", "codex", "work")
	require.NoError(t, err)

	out, errOut, err := te.run(t, "", false, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "openai/codex/work")
	assert.Contains(t, out, "OPENAI_API_KEY=sk-w****6789")
	assert.Contains(t, out, "OPENAI_BASE_URL=https://api.openai.com/v1")
	assert.Contains(t, out, te.profile)
	assert.Empty(t, errOut)

	out, _, err = te.run(t, "", false, "load-active")
	require.NoError(t, err)
	assert.Equal(t, "export OPENAI_BASE_URL=\"https://api.openai.com/v1\"\nexport OPENAI_API_KEY=\"sk-work-0123456789\"\n", out)
}

func TestTargetsCommands(t *testing.T) {
	te := setupTestEnv(t)
	custom := filepath.Join(te.home, ".profile.d", "keyenv.sh")
	settings := filepath.Join(te.home, ".claude", "settings.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(settings), 0755))
	require.NoError(t, os.WriteFile(settings, []byte(`{"model":"opus"}`), 0600))

	_, _, err := te.run(t, "", false, "targets", "set-profile", custom)
	require.NoError(t, err)
	_, _, err = te.run(t, "", false, "targets", "add-settings", settings)
	require.NoError(t, err)

	out, _, err := te.run(t, "", false, "targets")
	require.NoError(t, err)
	assert.Contains(t, out, custom)
	assert.Contains(t, out, settings)
	assert.Contains(t, out, "Known profiles")

	_, _, err = te.run(t, "", false, "use", "openai", "codex", "work")
	require.NoError(t, err)
	assert.FileExists(t, custom)
	assert.NoFileExists(t, te.profile)
	data, err := os.ReadFile(settings)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"OPENAI_API_KEY":"sk-work-0123456789"`)

	_, _, err = te.run(t, "", false, "targets", "remove-settings", settings)
	require.NoError(t, err)
	_, _, err = te.run(t, "", false, "targets", "remove-settings", settings)
	assert.Error(t, err)

	_, _, err = te.run(t, "", false, "targets", "reset-profile")
	require.NoError(t, err)
	prefs, err := config.LoadPrefs(filepath.Join(te.dir, config.PrefsFileName))
	require.NoError(t, err)
	assert.Empty(t, prefs.Profile)
	assert.Empty(t, prefs.SettingsFiles)
}

func TestTargetsRestoreProfile(t *testing.T) {
	te := setupTestEnv(t)
	require.NoError(t, os.WriteFile(te.profile, []byte("echo hi\n"), 0644))

	_, _, err := te.run(t, "", false, "targets", "restore-profile")
	assert.Error(t, err, "no backup yet")

	_, _, err = te.run(t, "", false, "use", "openai", "codex", "work")
	require.NoError(t, err)

	_, errOut, err := te.run(t, "", false, "targets", "restore-profile")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Restored "+te.profile)

	data, err := os.ReadFile(te.profile)
	require.NoError(t, err)
	assert.Equal(t, "echo hi\n", string(data))
}

func TestMissingConfigIsReported(t *testing.T) {
	te := setupTestEnv(t)
	require.NoError(t, os.Remove(filepath.Join(te.dir, config.ConfigFileName)))

	_, _, err := te.run(t, "", false, "list", "providers")
	assert.ErrorIs(t, err, ErrConfigUnreadable)
	assert.Equal(t, ExitConfigError, MapExitCode(err))
}

func TestMapExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ExitCode
	}{
		{"nil", nil, ExitSuccess},
		{"general", errors.New("boom"), ExitGeneral},
		{"invalid selection", ErrInvalidSelection, ExitSelection},
		{"not found", &config.SelectionNotFoundError{Level: config.LevelProduct, Key: "x"}, ExitSelection},
		{"unreadable", &config.ConfigUnreadableError{Path: "p", Err: errors.New("x")}, ExitConfigError},
		{"token missing", &config.TokenMissingError{Account: "a"}, ExitConfigError},
		{"profile write", ErrProfileWrite, ExitWriteFailed},
		{"state write", ErrStateWrite, ExitWriteFailed},
		{"corrupt block", ErrCorruptBlock, ExitWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapExitCode(tt.err))
		})
	}
}

func TestPrintErrorAddsHint(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, &config.SelectionNotFoundError{Level: config.LevelProvider, Key: "x"})
	assert.Contains(t, buf.String(), `provider "x" does not exist`)
	assert.Contains(t, buf.String(), "keyenv list")
}
