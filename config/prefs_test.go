package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrefsMissingFile(t *testing.T) {
	p, err := LoadPrefs(filepath.Join(t.TempDir(), PrefsFileName))
	require.NoError(t, err)
	assert.Equal(t, Prefs{}, p)
	assert.False(t, p.HasSelection())
}

func TestSavePrefsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", PrefsFileName)
	want := Prefs{
		Selection:     []string{"zhipu", "claude-code", "work"},
		Profile:       "/home/me/.zshrc",
		SettingsFiles: []string{"/home/me/.claude/settings.json"},
	}

	require.NoError(t, SavePrefs(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := LoadPrefs(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.HasSelection())
}

func TestLoadPrefsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), PrefsFileName)
	require.NoError(t, os.WriteFile(path, []byte("selection = ["), 0600))

	_, err := LoadPrefs(path)
	assert.ErrorIs(t, err, ErrConfigUnreadable)
}

func TestSettingsFileList(t *testing.T) {
	var p Prefs
	assert.True(t, p.AddSettingsFile("/a.json"))
	assert.False(t, p.AddSettingsFile("/a.json"))
	assert.True(t, p.AddSettingsFile("/b.json"))
	assert.Equal(t, []string{"/a.json", "/b.json"}, p.SettingsFiles)

	assert.True(t, p.RemoveSettingsFile("/a.json"))
	assert.False(t, p.RemoveSettingsFile("/a.json"))
	assert.Equal(t, []string{"/b.json"}, p.SettingsFiles)
}
