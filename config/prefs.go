package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"keyenv/config/storage"

	"github.com/BurntSushi/toml"
)

// Prefs is the tool-owned preferences document
type Prefs struct {
	// Selection is the last selection applied with "use"
	Selection []string `toml:"selection,omitempty"`
	// Profile overrides the shell profile detected from $SHELL
	Profile string `toml:"profile,omitempty"`
	// SettingsFiles are JSON files whose "env" object mirrors the profile block
	SettingsFiles []string `toml:"settings_files,omitempty"`
}

// LoadPrefs reads prefs from path. A missing file yields empty preferences.
func LoadPrefs(path string) (Prefs, error) {
	var p Prefs
	if _, err := decodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Prefs{}, nil
		}
		return Prefs{}, err
	}
	return p, nil
}

// SavePrefs writes prefs atomically with owner-only permissions
func SavePrefs(path string, p Prefs) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := storage.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// HasSelection reports whether a complete selection is remembered
func (p Prefs) HasSelection() bool {
	return len(p.Selection) == 3
}

// AddSettingsFile records path once; it reports whether prefs changed
func (p *Prefs) AddSettingsFile(path string) bool {
	if slices.Contains(p.SettingsFiles, path) {
		return false
	}
	p.SettingsFiles = append(p.SettingsFiles, path)
	return true
}

// RemoveSettingsFile forgets path; it reports whether prefs changed
func (p *Prefs) RemoveSettingsFile(path string) bool {
	i := slices.Index(p.SettingsFiles, path)
	if i < 0 {
		return false
	}
	p.SettingsFiles = slices.Delete(p.SettingsFiles, i, i+1)
	return true
}
