package profile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BackupSuffix ends the file name of every backup WriteFileAtomic keeps.
const BackupSuffix = ".backup.json"

// BackupPath returns where WriteFileAtomic keeps the previous version of path.
func BackupPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + BackupSuffix
}

// WriteFileAtomic writes data to a hidden temp file in the target directory,
// syncs it and renames it over path. With backup set, an existing file is
// copied to BackupPath first. On failure the temp file is removed and path is
// left untouched.
func WriteFileAtomic(path string, data []byte, backup bool) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if backup {
		if err = copyFile(path, BackupPath(path)); err != nil {
			return fmt.Errorf("failed to back up %s: %w", filepath.Base(path), err)
		}
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// copyFile copies src to dst. A missing src is not an error.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
