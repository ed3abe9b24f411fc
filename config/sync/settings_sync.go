// Package sync mirrors the applied environment into JSON settings files that
// carry an "env" object, such as ~/.claude/settings.json.
package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"keyenv/config/storage"
	"keyenv/internal/envmap"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SyncOptions provides options for synchronization
type SyncOptions struct {
	DryRun       bool // 仅验证，不写入
	CreateBackup bool // 更新前创建备份
	// ReplaceAll drops every existing env entry instead of only the stale ones
	ReplaceAll bool
}

// UpdateEnvField rewrites the "env" object of a settings document: stale keys
// are deleted, keys of next are set. Everything else in the document is left
// byte-for-byte as it was.
func UpdateEnvField(originalContent string, next envmap.EnvMap, stale []string, opts SyncOptions) (string, error) {
	if strings.TrimSpace(originalContent) == "" {
		originalContent = "{}"
	}
	if !json.Valid([]byte(originalContent)) {
		return "", fmt.Errorf("invalid JSON content")
	}
	root := gjson.Parse(originalContent)
	if !root.IsObject() {
		return "", fmt.Errorf("settings document is not a JSON object")
	}
	if env := root.Get("env"); env.Exists() && !env.IsObject() {
		return "", fmt.Errorf("env field is not an object")
	}

	updated := originalContent
	var err error
	if opts.ReplaceAll {
		updated, err = sjson.SetRaw(updated, "env", "{}")
		if err != nil {
			return "", fmt.Errorf("failed to reset env field: %w", err)
		}
	} else {
		for _, key := range stale {
			updated, err = sjson.Delete(updated, envPath(key))
			if err != nil {
				return "", fmt.Errorf("failed to remove %s: %w", key, err)
			}
		}
	}

	next.Each(func(key, value string) bool {
		updated, err = sjson.Set(updated, envPath(key), value)
		return err == nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to update env field: %w", err)
	}

	// Validate the update to ensure only the managed env entries changed
	touched := make(map[string]bool, len(stale)+next.Len())
	for _, k := range stale {
		touched[k] = true
	}
	for _, k := range next.Keys() {
		touched[k] = true
	}
	if err := validateJSONUpdate(originalContent, updated, touched, opts.ReplaceAll); err != nil {
		return "", fmt.Errorf("update validation failed: %w", err)
	}

	return updated, nil
}

// SyncFile applies UpdateEnvField to the file at path. Missing files are
// skipped; the tool never creates another program's settings. It reports
// whether the file content changed.
func SyncFile(path string, next envmap.EnvMap, stale []string, opts SyncOptions) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}

	updated, err := UpdateEnvField(string(data), next, stale, opts)
	if err != nil {
		return false, err
	}
	if updated == string(data) || opts.DryRun {
		return updated != string(data), nil
	}

	var bm *storage.BackupManager
	if opts.CreateBackup {
		bm = storage.NewBackupManager(storage.DefaultBackupRetention)
	}
	if _, err := storage.AtomicFileUpdate(path, updated, 0600, bm); err != nil {
		return false, err
	}
	return true, nil
}

// ReadEnv returns the string entries of the "env" object, in document order
func ReadEnv(content string) envmap.EnvMap {
	var env envmap.EnvMap
	gjson.Get(content, "env").ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			env.Set(key.Str, value.Str)
		}
		return true
	})
	return env
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `#`, `\#`, `@`, `\@`, `:`, `\:`)

func envPath(key string) string {
	return "env." + pathEscaper.Replace(key)
}

// validateJSONUpdate validates that only the managed env entries changed
func validateJSONUpdate(originalContent, updatedContent string, touched map[string]bool, replaceAll bool) error {
	if !json.Valid([]byte(updatedContent)) {
		return fmt.Errorf("updated JSON is invalid")
	}

	original, updated, err := parseToMaps(originalContent, updatedContent)
	if err != nil {
		return err
	}

	if differences := deepCompare(original, updated); len(differences) > 0 {
		return fmt.Errorf("unexpected changes to non-env fields: %s", strings.Join(differences, ", "))
	}
	if replaceAll {
		return nil
	}

	originalEnv, _ := original["env"].(map[string]interface{})
	updatedEnv, _ := updated["env"].(map[string]interface{})
	for key, originalVal := range originalEnv {
		if touched[key] {
			continue
		}
		updatedVal, exists := updatedEnv[key]
		if !exists {
			return fmt.Errorf("unmanaged env field '%s' was deleted", key)
		}
		if fmt.Sprintf("%v", originalVal) != fmt.Sprintf("%v", updatedVal) {
			return fmt.Errorf("unmanaged env field '%s' was modified", key)
		}
	}
	return nil
}

// parseToMaps parses two JSON strings to maps for deep comparison
func parseToMaps(originalStr, updatedStr string) (map[string]interface{}, map[string]interface{}, error) {
	var original map[string]interface{}
	if err := json.Unmarshal([]byte(originalStr), &original); err != nil {
		return nil, nil, fmt.Errorf("failed to parse original JSON: %w", err)
	}

	var updated map[string]interface{}
	if err := json.Unmarshal([]byte(updatedStr), &updated); err != nil {
		return nil, nil, fmt.Errorf("failed to parse updated JSON: %w", err)
	}

	return original, updated, nil
}

// deepCompare compares two maps, skipping env, and returns the differing fields
func deepCompare(original, updated map[string]interface{}) []string {
	var differences []string

	for key, originalVal := range original {
		if key == "env" {
			continue
		}
		updatedVal, exists := updated[key]
		if !exists {
			differences = append(differences, key+" (missing)")
			continue
		}
		if fmt.Sprintf("%v", originalVal) != fmt.Sprintf("%v", updatedVal) {
			differences = append(differences, key)
		}
	}

	for key := range updated {
		if key == "env" {
			continue
		}
		if _, exists := original[key]; !exists {
			differences = append(differences, key+" (new)")
		}
	}

	return differences
}
