// Package paths provides centralized path resolution for speechkit.
// This package has NO internal imports (only stdlib) to avoid import cycles.
// All functions return errors to allow callers to log appropriately.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the name of the config file looked up locally and in BaseDir.
const ConfigFileName = "speechkit.json"

// BaseDir returns the speechkit base directory (~/.speechkit).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".speechkit"), nil
}

// DataPath returns a path within the speechkit data directory (~/.speechkit/<subpath>).
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// ConfigPath returns the active config path.
// Priority: ./speechkit.json (current dir) > ~/.speechkit/speechkit.json
// Returns ("", nil) if no config exists - this is a valid state, not an error.
func ConfigPath() (string, error) {
	if _, err := os.Stat(ConfigFileName); err == nil {
		absPath, err := filepath.Abs(ConfigFileName)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		return absPath, nil
	}

	globalPath, err := DataPath(ConfigFileName)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", nil
}

// EnvFiles returns the .env files to load, lowest priority first:
// ~/.speechkit/.env then ./.env. Missing files are included; the loader skips them.
func EnvFiles() []string {
	var files []string
	if p, err := DataPath(".env"); err == nil {
		files = append(files, p)
	}
	return append(files, ".env")
}

// DefaultWhisperModelsDir returns where whisper.cpp models are stored by default.
func DefaultWhisperModelsDir() string {
	return "~/.speechkit/stt/whisper"
}

// EnsureDir creates a directory if it doesn't exist.
// Uses 0750 permissions (owner: rwx, group: rx, other: none).
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// ExpandTilde expands a path that starts with ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}

// Sibling returns a path next to original with the extension replaced by ext.
// Sibling("/a/talk.m4a", ".txt") == "/a/talk.txt".
func Sibling(original, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	base := strings.TrimSuffix(original, filepath.Ext(original))
	return base + ext
}
