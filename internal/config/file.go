package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
)

// DefaultBackupCount is how many previous versions of a config file Save keeps.
const DefaultBackupCount = 5

// AtomicWrite writes data to path through a temp file in the same directory
// followed by a rename, so a watcher or a concurrent reader never sees a
// partial transcript, WAV or config file. Missing parent directories are created.
func AtomicWrite(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	// Hidden and .tmp, so the directory watcher skips it.
	tmp, err := os.CreateTemp(dir, ".speechkit-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// writeJSONWithBackups keeps up to keep previous versions of path as
// path.bak (newest), path.bak.1, ... and then writes v as indented JSON.
// A failed backup is logged and does not stop the write.
func writeJSONWithBackups(path string, v any, keep int) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	if keep <= 0 {
		keep = DefaultBackupCount
	}
	if _, err := os.Stat(path); err == nil {
		if err := backup(path, keep); err != nil {
			L_warn("config: backup failed, saving anyway", "path", path, "error", err)
		}
	}

	// Credentials live in this file.
	return AtomicWrite(path, data, 0600)
}

func backupName(path string, i int) string {
	if i == 0 {
		return path + ".bak"
	}
	return fmt.Sprintf("%s.bak.%d", path, i)
}

// backup shifts existing backups one slot older, dropping the oldest, and
// copies the current file into the newest slot.
func backup(path string, keep int) error {
	oldest := backupName(path, keep-1)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		L_trace("config: failed to remove oldest backup", "path", oldest, "error", err)
	}
	for i := keep - 2; i >= 0; i-- {
		src, dst := backupName(path, i), backupName(path, i+1)
		if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
			L_trace("config: failed to rotate backup", "src", src, "dst", dst, "error", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	current, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	newest := backupName(path, 0)
	if err := os.WriteFile(newest, current, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	L_debug("config: created backup", "path", newest)
	return nil
}
