package cmd

import (
	"fmt"
	"io"
	"os"

	"keyenv/config"
	"keyenv/config/storage"
	"keyenv/internal/envsync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// App owns the resolver and synchronizer for one process. It is built once by
// main and handed to every command; commands never construct their own.
type App struct {
	version string
	commit  string
	date    string

	configDir string
	verbose   bool

	paths    config.Paths
	prefs    config.Prefs
	resolver *config.Resolver
	syncer   *envsync.Synchronizer
	logger   zerolog.Logger

	// liveEnv and stdin are replaced in tests
	liveEnv     envsync.Environment
	stdin       io.Reader
	interactive func() bool
}

// NewApp creates the application with build information
func NewApp(version, commit, date string) *App {
	return &App{
		version:     version,
		commit:      commit,
		date:        date,
		logger:      zerolog.Nop(),
		stdin:       os.Stdin,
		interactive: isInteractiveTerminal,
	}
}

// setup resolves the application directory and wires the components. It
// runs once, before any subcommand.
func (a *App) setup(cmd *cobra.Command) error {
	a.logger = newLogger(cmd.ErrOrStderr(), a.verbose)

	var err error
	if a.configDir != "" {
		dir, err := config.ExpandHome(a.configDir)
		if err != nil {
			return err
		}
		a.paths = config.PathsIn(dir)
	} else if a.paths, err = config.DefaultPaths(); err != nil {
		return err
	}
	if err := a.paths.EnsureDir(); err != nil {
		return err
	}

	if a.prefs, err = config.LoadPrefs(a.paths.PrefsFile); err != nil {
		return err
	}

	layout := config.DetectLayout(a.paths)
	a.resolver = config.NewResolver(a.paths, layout, a.logger)
	a.logger.Debug().Str("dir", a.paths.Dir).Stringer("layout", layout).Msg("configuration located")

	return a.buildSyncer()
}

// buildSyncer (re)creates the synchronizer from the current preferences
func (a *App) buildSyncer() error {
	profile, err := config.ExpandHome(a.prefs.Profile)
	if err != nil {
		return err
	}
	settings := make([]string, 0, len(a.prefs.SettingsFiles))
	for _, p := range a.prefs.SettingsFiles {
		expanded, err := config.ExpandHome(p)
		if err != nil {
			return err
		}
		settings = append(settings, expanded)
	}

	a.syncer, err = envsync.New(envsync.Options{
		StatePath:     a.paths.StateFile,
		ProfilePath:   profile,
		SettingsFiles: settings,
		Backups:       storage.NewBackupManager(storage.DefaultBackupRetention),
		Env:           a.liveEnv,
		Logger:        &a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize synchronizer: %w", err)
	}
	return nil
}

// savePrefs persists preferences and rebuilds the synchronizer so that new
// targets take effect immediately
func (a *App) savePrefs() error {
	if err := config.SavePrefs(a.paths.PrefsFile, a.prefs); err != nil {
		return err
	}
	return a.buildSyncer()
}

// reloadPrefs re-reads preferences from disk
func (a *App) reloadPrefs() error {
	prefs, err := config.LoadPrefs(a.paths.PrefsFile)
	if err != nil {
		return err
	}
	a.prefs = prefs
	return nil
}
