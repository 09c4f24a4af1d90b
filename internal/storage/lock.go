package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"datasync/internal/providers"
)

// FileLocker guards a snapshot with an O_EXCL lock file next to it. A lock
// older than ttl is considered abandoned and broken.
type FileLocker struct {
	ttl    time.Duration
	logger providers.Logger
}

func NewFileLocker(ttl time.Duration, logger providers.Logger) *FileLocker {
	return &FileLocker{ttl: ttl, logger: logger}
}

// Acquire takes the lock for path and returns the function releasing it.
func (l *FileLocker) Acquire(path string) (func(), error) {
	lockPath := path + ".lock"

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, _ = fmt.Fprintf(f, `{"pid":%d,"time":%d}`+"\n", os.Getpid(), time.Now().Unix())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, &IOError{Op: "lock", Path: lockPath, Err: err}
		}

		fi, err := os.Stat(lockPath)
		if err != nil {
			continue
		}
		if age := time.Since(fi.ModTime()); age < l.ttl {
			return nil, &IOError{Op: "lock", Path: lockPath, Err: ErrLocked}
		}
		l.logger.Warnf(providers.TypeStorage, "Breaking stale lock %s", lockPath)
		_ = os.Remove(lockPath)
	}
	return nil, &IOError{Op: "lock", Path: lockPath, Err: ErrLocked}
}
