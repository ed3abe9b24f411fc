// Package envsync applies an environment map to the live process, the user's
// shell profile and optional JSON settings files, and remembers what it
// applied so that variables dropped by the next selection are removed.
package envsync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"keyenv/config/storage"
	cfgsync "keyenv/config/sync"
	"keyenv/config/validation"
	"keyenv/internal/envmap"
	"keyenv/internal/shell"

	"github.com/rs/zerolog"
)

const (
	profilePerm = 0644
	statePerm   = 0600
	lockSuffix  = ".lock"
)

// File writers, replaced in tests to simulate I/O failures.
var (
	updateFile = storage.AtomicFileUpdate
	writeFile  = storage.AtomicWriteFile
)

// Environment is the process environment the synchronizer mutates
type Environment interface {
	Setenv(key, value string) error
	Unsetenv(key string) error
}

type osEnvironment struct{}

func (osEnvironment) Setenv(key, value string) error { return os.Setenv(key, value) }

func (osEnvironment) Unsetenv(key string) error { return os.Unsetenv(key) }

// Options configures a Synchronizer
type Options struct {
	// StatePath is the KEY=VALUE file holding the last applied map
	StatePath string
	// ProfilePath is the shell profile; empty means detect from $SHELL
	ProfilePath string
	// SettingsFiles are JSON documents whose "env" object is kept in step
	SettingsFiles []string
	// Backups, when set, snapshots files before they are rewritten
	Backups *storage.BackupManager
	// Env defaults to the real process environment
	Env Environment
	// Logger defaults to a no-op logger
	Logger *zerolog.Logger
}

// Targets lists the files a Synchronizer writes
type Targets struct {
	Profile  string   `json:"profile"`
	State    string   `json:"state"`
	Settings []string `json:"settings,omitempty"`
}

// Result describes a successful apply
type Result struct {
	Applied         envmap.EnvMap
	Unset           []string
	ProfilePath     string
	ProfileChanged  bool
	BackupPath      string
	SettingsUpdated []string
}

// Synchronizer applies environment maps. Calls are serialized across
// processes through an advisory lock next to the state file.
type Synchronizer struct {
	opts      Options
	validator *validation.InputValidator
	logger    zerolog.Logger
}

// New creates a Synchronizer
func New(opts Options) (*Synchronizer, error) {
	if opts.StatePath == "" {
		return nil, errors.New("state path is required")
	}
	if opts.ProfilePath == "" {
		p, err := shell.ProfilePath()
		if err != nil {
			return nil, err
		}
		opts.ProfilePath = p
	}
	if opts.Env == nil {
		opts.Env = osEnvironment{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Synchronizer{
		opts:      opts,
		validator: validation.NewInputValidator(),
		logger:    logger.With().Str("component", "envsync").Logger(),
	}, nil
}

// TargetPaths returns the files this synchronizer manages
func (s *Synchronizer) TargetPaths() Targets {
	return Targets{
		Profile:  s.opts.ProfilePath,
		State:    s.opts.StatePath,
		Settings: append([]string(nil), s.opts.SettingsFiles...),
	}
}

// Previous returns the last fully applied map. An unreadable state file reads
// as empty.
func (s *Synchronizer) Previous() envmap.EnvMap {
	unlock, err := s.lock(lockFileShared)
	if err != nil {
		s.logger.Debug().Err(err).Msg("reading state without lock")
	} else {
		defer unlock()
	}
	return s.loadState()
}

// RestoreProfile copies the most recent profile backup back over the
// profile. The persisted state is not changed; the next ApplyEnv rewrites the
// block from it.
func (s *Synchronizer) RestoreProfile() (string, error) {
	if s.opts.Backups == nil {
		return "", errors.New("profile backups are disabled")
	}

	unlock, err := s.lock(lockFileExclusive)
	if err != nil {
		return "", err
	}
	defer unlock()

	path := s.profileTarget()
	if err := s.opts.Backups.RestoreFromLatestBackup(path); err != nil {
		return "", &ProfileWriteError{Path: path, Err: err}
	}
	s.logger.Debug().Str("path", path).Msg("profile restored from backup")
	return path, nil
}

// InspectProfile parses the managed block currently in the profile
func (s *Synchronizer) InspectProfile() (env envmap.EnvMap, found bool, err error) {
	path := s.profileTarget()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return envmap.EnvMap{}, false, nil
	}
	if err != nil {
		return envmap.EnvMap{}, false, &ProfileReadError{Path: path, Err: err}
	}
	env, found, err = shell.ParseBlock(string(data))
	if err != nil {
		return envmap.EnvMap{}, found, corruptBlock(path, err)
	}
	return env, found, nil
}

// ApplyEnv makes next the active environment: keys applied previously but
// absent from next are unset, the live environment is updated, the managed
// profile block is rewritten, settings files are synced and finally next is
// recorded as the new state. State is only recorded when every step succeeds.
// The profile is read and checked before the live environment changes, so a
// ProfileReadError or CorruptBlockError leaves everything untouched.
func (s *Synchronizer) ApplyEnv(next envmap.EnvMap) (*Result, error) {
	if err := s.validator.ValidateEnv(next); err != nil {
		return nil, &InvalidEnvError{Err: err}
	}

	unlock, err := s.lock(lockFileExclusive)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prev := s.loadState()
	stale := envmap.StaleKeys(prev, next)
	s.logger.Debug().
		Strs("next", next.Keys()).
		Strs("unset", stale).
		Msg("applying environment")

	plan, err := s.planProfile(next)
	if err != nil {
		return nil, err
	}

	if err := s.applyLive(next, stale); err != nil {
		return nil, err
	}

	res := &Result{Applied: next.Clone(), Unset: stale, ProfilePath: plan.path}
	if err := s.writeProfile(plan, res); err != nil {
		return nil, err
	}

	for _, path := range s.opts.SettingsFiles {
		changed, err := cfgsync.SyncFile(path, next, stale, cfgsync.SyncOptions{CreateBackup: s.opts.Backups != nil})
		if err != nil {
			return nil, &SettingsWriteError{Path: path, Err: err}
		}
		if changed {
			res.SettingsUpdated = append(res.SettingsUpdated, path)
			s.logger.Debug().Str("path", path).Msg("settings updated")
		}
	}

	if err := writeFile(s.opts.StatePath, []byte(envmap.FormatState(next)), statePerm); err != nil {
		return nil, &StateWriteError{Path: s.opts.StatePath, Err: err}
	}
	return res, nil
}

func (s *Synchronizer) applyLive(next envmap.EnvMap, stale []string) error {
	for _, key := range stale {
		if err := s.opts.Env.Unsetenv(key); err != nil {
			return &LiveEnvError{Key: key, Err: err}
		}
	}
	var err error
	next.Each(func(key, value string) bool {
		if e := s.opts.Env.Setenv(key, value); e != nil {
			err = &LiveEnvError{Key: key, Err: e}
			return false
		}
		return true
	})
	return err
}

// profilePlan is the profile rewrite computed before anything is changed
type profilePlan struct {
	path    string
	content string
	changed bool
}

// planProfile reads the profile and renders its new content. An unreadable
// profile or a corrupt block fails here, before the live environment is
// touched.
func (s *Synchronizer) planProfile(next envmap.EnvMap) (profilePlan, error) {
	path := s.profileTarget()

	data, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return profilePlan{}, &ProfileReadError{Path: path, Err: err}
	}

	updated, err := shell.Rewrite(string(data), next)
	if err != nil {
		var mb *shell.MalformedBlockError
		if errors.As(err, &mb) {
			return profilePlan{}, corruptBlock(path, err)
		}
		return profilePlan{}, &ProfileWriteError{Path: path, Err: err}
	}

	changed := updated != string(data) || (!exists && updated != "")
	return profilePlan{path: path, content: updated, changed: changed}, nil
}

func (s *Synchronizer) writeProfile(plan profilePlan, res *Result) error {
	if !plan.changed {
		s.logger.Debug().Str("path", plan.path).Msg("profile already up to date")
		return nil
	}

	backup, err := updateFile(plan.path, plan.content, profilePerm, s.opts.Backups)
	if err != nil {
		return &ProfileWriteError{Path: plan.path, Err: err, LiveApplied: true}
	}
	res.ProfileChanged = true
	res.BackupPath = backup
	s.logger.Debug().Str("path", plan.path).Str("backup", backup).Msg("profile rewritten")
	return nil
}

// profileTarget follows symlinks so that a linked dotfile is edited in place
// rather than replaced by a regular file.
func (s *Synchronizer) profileTarget() string {
	resolved, err := filepath.EvalSymlinks(s.opts.ProfilePath)
	if err != nil {
		return s.opts.ProfilePath
	}
	return resolved
}

func (s *Synchronizer) loadState() envmap.EnvMap {
	f, err := os.Open(s.opts.StatePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug().Err(err).Str("path", s.opts.StatePath).Msg("state unreadable, treating as empty")
		}
		return envmap.EnvMap{}
	}
	defer f.Close()

	state, err := envmap.ParseState(f)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", s.opts.StatePath).Msg("state unreadable, treating as empty")
		return envmap.EnvMap{}
	}
	return state
}

func (s *Synchronizer) lock(acquire func(*os.File) error) (func(), error) {
	path := s.opts.StatePath + lockSuffix
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, statePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := acquire(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return func() {
		_ = unlockFile(f)
		f.Close()
	}, nil
}

func corruptBlock(path string, err error) error {
	line := 0
	var mb *shell.MalformedBlockError
	if errors.As(err, &mb) {
		line = mb.Line
	}
	return &CorruptBlockError{Path: path, Line: line, Err: err}
}
