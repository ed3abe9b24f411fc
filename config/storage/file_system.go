package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// AtomicWriteFile writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partially written file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}

	// Atomic rename - this is guaranteed to be atomic on all POSIX systems
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// AtomicFileUpdate replaces the content of filePath atomically, keeping the
// existing permission bits (defaultPerm for a new file). When bm is non-nil
// and the file already exists, a backup is taken first and old backups are
// pruned afterwards. It returns the backup path, if any.
func AtomicFileUpdate(filePath string, newContent string, defaultPerm os.FileMode, bm *BackupManager) (string, error) {
	perm := defaultPerm
	info, err := os.Stat(filePath)
	exists := err == nil
	if exists {
		perm = info.Mode().Perm()
	}

	var backupPath string
	if bm != nil && exists {
		backupPath, err = bm.CreateBackup(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to create backup file: %w", err)
		}
	}

	if err := AtomicWriteFile(filePath, []byte(newContent), perm); err != nil {
		return backupPath, err
	}

	// Cleanup old backups after successful update
	if backupPath != "" {
		// Non-fatal, the update itself succeeded
		_ = bm.CleanupOldBackups(filePath)
	}

	return backupPath, nil
}
