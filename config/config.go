package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"keyenv/config/models"
	"keyenv/config/storage"
)

// File names inside the application directory
const (
	ConfigFileName   = "config.toml"
	ProductsFileName = "products.toml"
	TokensFileName   = "tokens.toml"
	PrefsFileName    = "prefs.toml"
	StateFileName    = "state.env"
)

// Paths locates every tool-owned file
type Paths struct {
	Dir          string
	ConfigFile   string
	ProductsFile string
	TokensFile   string
	PrefsFile    string
	StateFile    string
}

// PathsIn returns the file layout rooted at dir
func PathsIn(dir string) Paths {
	return Paths{
		Dir:          dir,
		ConfigFile:   filepath.Join(dir, ConfigFileName),
		ProductsFile: filepath.Join(dir, ProductsFileName),
		TokensFile:   filepath.Join(dir, TokensFileName),
		PrefsFile:    filepath.Join(dir, PrefsFileName),
		StateFile:    filepath.Join(dir, StateFileName),
	}
}

// DefaultPaths resolves the application directory: $KEYENV_HOME, then
// $XDG_CONFIG_HOME/keyenv, then ~/.config/keyenv.
func DefaultPaths() (Paths, error) {
	if dir := os.Getenv("KEYENV_HOME"); dir != "" {
		return PathsIn(dir), nil
	}

	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("failed to get user home directory: %w", err)
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return PathsIn(filepath.Join(xdgConfigHome, "keyenv")), nil
}

// EnsureDir creates the application directory if needed
func (p Paths) EnsureDir() error {
	if err := os.MkdirAll(p.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// DetectLayout picks the hierarchy from the files present: config.toml means
// the provider layout, products.toml or tokens.toml alone the product layout.
// With nothing on disk the provider layout is assumed, so that a missing
// config.toml is reported rather than silently replaced.
func DetectLayout(p Paths) models.Layout {
	if storage.FileExists(p.ConfigFile) {
		return models.LayoutProvider
	}
	if storage.FileExists(p.TokensFile) || storage.FileExists(p.ProductsFile) {
		return models.LayoutProduct
	}
	return models.LayoutProvider
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
