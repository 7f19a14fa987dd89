package cas

import (
	"os"
	"path/filepath"

	"go.trai.ch/keg/internal/core/domain"
)

// writeFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over path, so readers observe either the old or
// the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.WrapIO(err, "failed to create temporary file", dir)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return domain.WrapIO(err, "failed to write temporary file", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return domain.WrapIO(err, "failed to sync temporary file", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return domain.WrapIO(err, "failed to close temporary file", tmpName)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return domain.WrapIO(err, "failed to set file mode", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.WrapIO(err, "failed to replace file", path)
	}
	committed = true

	return syncDir(dir)
}

// syncDir flushes directory entries so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // Directory inside the store root
	if err != nil {
		return domain.WrapIO(err, "failed to open directory", dir)
	}
	defer d.Close() //nolint:errcheck // Read-only handle
	if err := d.Sync(); err != nil {
		return domain.WrapIO(err, "failed to sync directory", dir)
	}
	return nil
}
