package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"datasync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLocker_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	l := NewFileLocker(time.Minute, &testutil.MockLogger{})

	release, err := l.Acquire(path)
	require.NoError(t, err)

	_, err = l.Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	release2, err := l.Acquire(path)
	require.NoError(t, err)
	release2()
}

func TestFileLocker_BreaksStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path+".lock", []byte("{}"), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	logger := &testutil.MockLogger{}
	l := NewFileLocker(time.Minute, logger)

	release, err := l.Acquire(path)
	require.NoError(t, err)
	defer release()
	assert.Len(t, logger.Entries("warn"), 1)
}
