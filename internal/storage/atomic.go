package storage

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a partially written snapshot.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return &IOError{Op: "create", Path: tmpFile, Err: err}
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return &IOError{Op: "write", Path: tmpFile, Err: err}
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return &IOError{Op: "sync", Path: tmpFile, Err: err}
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return &IOError{Op: "close", Path: tmpFile, Err: err}
	}

	if err = os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
