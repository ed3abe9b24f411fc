//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package envsync

import "os"

// Platforms without advisory locking fall back to the single-writer
// assumption.
func lockFileExclusive(*os.File) error { return nil }

func lockFileShared(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
