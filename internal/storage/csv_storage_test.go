package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"datasync/internal/models"
	"datasync/internal/structures"
	"datasync/internal/testutil"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	firstRun  = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	secondRun = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
)

func newTestCSVStorage(t *testing.T, lock bool) (*CSVStorage, *testutil.MockLogger, *testutil.MockMetrics) {
	t.Helper()
	conf := &structures.Config{
		Storage: structures.StorageConfig{
			Dir:     filepath.Join(t.TempDir(), "data"),
			Format:  "csv",
			Lock:    lock,
			LockTTL: time.Minute,
		},
	}
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	s, err := NewCSVStorage(conf, logger, metrics)
	require.NoError(t, err)
	s.now = func() time.Time { return firstRun }
	return s, logger, metrics
}

func user(id int, name, createdAt, updatedAt string) models.Record {
	return models.Record{
		"id":                  json.Number(strconv.Itoa(id)),
		"first_name":          name,
		models.FieldCreatedAt: createdAt,
		models.FieldUpdatedAt: updatedAt,
	}
}

func TestCSVStorage_EmptyInput(t *testing.T) {
	s, logger, _ := newTestCSVStorage(t, false)

	_, err := s.Upsert(models.CategoryUsers, nil, "id")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Len(t, logger.Entries("error"), 1)
	_, statErr := os.Stat(s.Path(models.CategoryUsers))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCSVStorage_FirstSave(t *testing.T) {
	s, _, metrics := newTestCSVStorage(t, false)

	result, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
		user(2, "Peggy", "2024-04-02T00:00", "2024-04-03T00:00"),
	}, "id")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, "2024-05-01T10:30", result.ChargedAt)

	table, err := s.Load(models.CategoryUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "first_name", "charged_at"}, table.Header)
	assert.Equal(t, []string{"1", "2"}, table.Column("id"))
	assert.Equal(t, []string{"2024-05-01T10:30", "2024-05-01T10:30"}, table.Column(models.FieldChargedAt))
	assert.False(t, table.HasColumn(models.FieldCreatedAt))
	assert.False(t, table.HasColumn(models.FieldUpdatedAt))

	assert.Equal(t, 2, metrics.Merged["users:inserted"])
	assert.Equal(t, 2, metrics.RecordsTotal["users"])
}

func TestCSVStorage_FirstSaveWithoutTimestamps(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)

	_, err := s.Upsert(models.CategoryTracks, []models.Record{{"id": json.Number("1")}}, "id")
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path(models.CategoryTracks))
	require.NoError(t, err)
	assert.Equal(t, "id,charged_at\n1,2024-05-01T10:30\n", string(data))
}

func TestCSVStorage_UpdateAndInsert(t *testing.T) {
	s, _, metrics := newTestCSVStorage(t, false)
	_, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
		user(2, "Peggy", "2024-04-02T00:00", "2024-04-02T00:00"),
	}, "id")
	require.NoError(t, err)

	s.now = func() time.Time { return secondRun }
	result, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
		user(2, "Margaret", "2024-04-02T00:00", "2024-05-01T12:00"),
		user(3, "Kim", "2024-05-01T11:00", "2024-05-01T11:00"),
	}, "id")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 3, result.Rows)

	table, err := s.Load(models.CategoryUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, table.Column("id"))
	assert.Equal(t, []string{"Michelle", "Margaret", "Kim"}, table.Column("first_name"))
	assert.Equal(t, []string{"2024-05-01T10:30", "2024-05-02T08:00", "2024-05-02T08:00"}, table.Column(models.FieldChargedAt))
	assert.False(t, table.HasColumn(models.FieldUpdatedAt))

	assert.Equal(t, 1, metrics.Merged["users:updated"])
	assert.Equal(t, 3, metrics.Merged["users:inserted"])
}

func TestCSVStorage_CreatedAndUpdatedSameRecordIsNotDuplicated(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	_, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
	}, "id")
	require.NoError(t, err)

	s.now = func() time.Time { return secondRun }
	result, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-05-01T12:00", "2024-05-01T12:00"),
	}, "id")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Rows)
}

func TestCSVStorage_NoOpLeavesFileUntouched(t *testing.T) {
	s, logger, _ := newTestCSVStorage(t, false)
	batch := []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
		user(2, "Peggy", "2024-04-02T00:00", "2024-05-01T10:30"),
	}
	_, err := s.Upsert(models.CategoryUsers, batch, "id")
	require.NoError(t, err)

	path := s.Path(models.CategoryUsers)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	s.now = func() time.Time { return secondRun }
	result, err := s.Upsert(models.CategoryUsers, batch, "id")
	require.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.Equal(t, 2, result.Rows)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.WithinDuration(t, old, fi.ModTime(), time.Second)

	found := false
	for _, e := range logger.Entries("info") {
		if strings.HasPrefix(e.Message(), "No new or updated users records") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCSVStorage_MissingMergeColumns(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	_, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
	}, "id")
	require.NoError(t, err)
	before, _ := os.ReadFile(s.Path(models.CategoryUsers))

	_, err = s.Upsert(models.CategoryUsers, []models.Record{
		{"id": json.Number("2"), "first_name": "Peggy", models.FieldCreatedAt: "2024-06-01T00:00"},
	}, "id")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Equal(t, models.FieldUpdatedAt, verr.Field)

	after, _ := os.ReadFile(s.Path(models.CategoryUsers))
	assert.Equal(t, before, after)
}

func TestCSVStorage_BadTimestamp(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	_, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
	}, "id")
	require.NoError(t, err)

	_, err = s.Upsert(models.CategoryUsers, []models.Record{
		user(2, "Peggy", "yesterday", "2024-06-01T00:00"),
	}, "id")
	assert.ErrorIs(t, err, ErrBadTimestamp)
}

func TestCSVStorage_CorruptSnapshot(t *testing.T) {
	s, logger, _ := newTestCSVStorage(t, false)
	path := s.Path(models.CategoryUsers)
	require.NoError(t, os.WriteFile(path, []byte("id,charged_at\n1,2024-05-01T10:30,extra\n"), 0644))

	_, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(2, "Peggy", "2024-06-01T00:00", "2024-06-01T00:00"),
	}, "id")

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "parse", ioErr.Op)
	assert.NotEmpty(t, logger.Entries("error"))

	data, _ := os.ReadFile(path)
	assert.Contains(t, string(data), "extra")
}

func TestCSVStorage_SnapshotWithoutChargedAtIsReplaced(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	path := s.Path(models.CategoryUsers)
	require.NoError(t, os.WriteFile(path, []byte("id,first_name\n9,Legacy\n"), 0644))

	result, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
	}, "id")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	table, err := s.Load(models.CategoryUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, table.Column("id"))
}

func TestCSVStorage_LoadMissingFile(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)

	table, err := s.Load(models.CategoryTracks)
	require.NoError(t, err)
	assert.True(t, table.Empty())
}

func TestCSVStorage_ExplodesListenHistoryItems(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)

	result, err := s.Upsert(models.CategoryListenHistory, []models.Record{
		{
			"user_id":             json.Number("7"),
			"items":               []any{json.Number("11"), json.Number("12")},
			models.FieldCreatedAt: "2024-04-01T00:00",
			models.FieldUpdatedAt: "2024-04-01T00:00",
		},
	}, "user_id")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)

	table, err := s.Load(models.CategoryListenHistory)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "track_id", "charged_at"}, table.Header)
	assert.Equal(t, []string{"11", "12"}, table.Column("track_id"))
	assert.Equal(t, []string{"7", "7"}, table.Column("user_id"))
}

func TestCSVStorage_NewUserHistoryRowsAllAppended(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	_, err := s.Upsert(models.CategoryListenHistory, []models.Record{
		{
			"user_id":             json.Number("7"),
			"items":               []any{json.Number("11")},
			models.FieldCreatedAt: "2024-04-01T00:00",
			models.FieldUpdatedAt: "2024-04-01T00:00",
		},
	}, "user_id")
	require.NoError(t, err)

	s.now = func() time.Time { return secondRun }
	result, err := s.Upsert(models.CategoryListenHistory, []models.Record{
		{
			"user_id":             json.Number("8"),
			"items":               []any{json.Number("21"), json.Number("22")},
			models.FieldCreatedAt: "2024-05-01T12:00",
			models.FieldUpdatedAt: "2024-05-01T12:00",
		},
	}, "user_id")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 3, result.Rows)
}

func TestCSVStorage_UpdatedUserHistoryReplacesRows(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	_, err := s.Upsert(models.CategoryListenHistory, []models.Record{
		{
			"user_id":             json.Number("7"),
			"items":               []any{json.Number("11"), json.Number("12")},
			models.FieldCreatedAt: "2024-04-01T00:00",
			models.FieldUpdatedAt: "2024-04-01T00:00",
		},
	}, "user_id")
	require.NoError(t, err)

	s.now = func() time.Time { return secondRun }
	result, err := s.Upsert(models.CategoryListenHistory, []models.Record{
		{
			"user_id":             json.Number("7"),
			"items":               []any{json.Number("11"), json.Number("12"), json.Number("13")},
			models.FieldCreatedAt: "2024-04-01T00:00",
			models.FieldUpdatedAt: "2024-05-01T12:00",
		},
	}, "user_id")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated)
	assert.Equal(t, 0, result.Inserted)

	table, err := s.Load(models.CategoryListenHistory)
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "12", "13"}, table.Column("track_id"))
	assert.Equal(t, []string{"2024-05-02T08:00", "2024-05-02T08:00", "2024-05-02T08:00"}, table.Column(models.FieldChargedAt))
}

func TestCSVStorage_LockedSnapshot(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, true)
	path := s.Path(models.CategoryUsers)
	require.NoError(t, os.WriteFile(path+".lock", []byte("{}"), 0644))

	_, err := s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
	}, "id")
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, os.Remove(path+".lock"))
	_, err = s.Upsert(models.CategoryUsers, []models.Record{
		user(1, "Michelle", "2024-04-01T00:00", "2024-04-01T00:00"),
	}, "id")
	require.NoError(t, err)
	_, statErr := os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(statErr))
}

func TestCSVStorage_SaveUsesCategoryKey(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)

	err := s.Save(models.CategoryListenHistory, []models.Record{
		{"user_id": json.Number("3"), "track_id": json.Number("4")},
	})
	require.NoError(t, err)

	table, err := s.Load(models.CategoryListenHistory)
	require.NoError(t, err)
	assert.Equal(t, "user_id", table.Header[0])
}

func TestCSVStorage_RepeatedUpdateKeepsKeyUnique(t *testing.T) {
	s, _, _ := newTestCSVStorage(t, false)
	track := func(title, updatedAt string) models.Record {
		return models.Record{
			"id":                  json.Number("1"),
			"title":               title,
			models.FieldCreatedAt: "2024-04-01T00:00",
			models.FieldUpdatedAt: updatedAt,
		}
	}
	_, err := s.Upsert(models.CategoryTracks, []models.Record{track("seed", "2024-04-01T00:00")}, "id")
	require.NoError(t, err)

	s.now = func() time.Time { return secondRun }
	result, err := s.Upsert(models.CategoryTracks, []models.Record{
		track("first", "2024-05-01T12:00"),
		track("second", "2024-05-01T13:00"),
	}, "id")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Inserted)

	data, err := os.ReadFile(s.Path(models.CategoryTracks))
	require.NoError(t, err)
	assert.Equal(t, "id,title,charged_at\n1,second,2024-05-02T08:00\n", string(data))
}
