package storage

import (
	"os"
	"path/filepath"
	"time"

	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/structures"
)

// CSVStorage keeps one CSV snapshot per category and merges every new batch
// into it using the charged_at watermark.
//
// The read-modify-write cycle is not synchronized. Concurrent writers on the
// same category must enable the lock file.
type CSVStorage struct {
	dir     string
	locker  *FileLocker
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewCSVStorage(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) (*CSVStorage, error) {
	dir := conf.Storage.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	s := &CSVStorage{
		dir:     dir,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
	if conf.Storage.Lock {
		s.locker = NewFileLocker(conf.Storage.LockTTL, logger)
	}
	logger.Infof(providers.TypeStorage, "CSVStorage initialized with directory: %s", dir)
	return s, nil
}

func (s *CSVStorage) Path(category models.Category) string {
	return filepath.Join(s.dir, category.String()+".csv")
}

func (s *CSVStorage) Save(category models.Category, records []models.Record) error {
	_, err := s.Upsert(category, records, category.KeyField())
	return err
}

func (s *CSVStorage) Load(category models.Category) (*models.Table, error) {
	return readCSV(s.Path(category))
}

// Upsert merges records into the category snapshot:
//   - no snapshot (or no charged_at in it): the batch becomes the snapshot;
//   - otherwise rows whose updated_at is past the watermark overwrite the rows
//     with the same key, and rows whose created_at is past it are appended;
//   - nothing past the watermark: the file is left untouched.
//
// created_at and updated_at only drive the decision and are not persisted.
func (s *CSVStorage) Upsert(category models.Category, records []models.Record, keyField string) (*models.MergeResult, error) {
	path := s.Path(category)
	start := time.Now()

	if len(records) == 0 {
		err := &ValidationError{Category: category.String(), Err: ErrEmptyInput}
		s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, err)
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(path)
		if err != nil {
			s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, err)
			return nil, err
		}
		defer release()
	}

	snapshot, err := readCSV(path)
	if err != nil {
		s.logger.Errorf(providers.TypeStorage, "Failed to load existing data from %s: %s", path, err)
		return nil, err
	}

	rows, sources := explodeItems(records)
	chargedAt := s.now().UTC().Format(models.ChargedAtLayout)

	var result *models.MergeResult
	watermark, ok := watermarkOf(snapshot)
	if !ok {
		snapshot = newSnapshot(rows, keyField, chargedAt)
		result = &models.MergeResult{Inserted: len(rows), ChargedAt: chargedAt}
	} else {
		parts, err := classify(category.String(), rows, sources, watermark)
		if err != nil {
			s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, err)
			return nil, err
		}
		if len(parts.updated) == 0 && len(parts.created) == 0 {
			s.logger.Infof(providers.TypeStorage, "No new or updated %s records since %s, %s left untouched",
				category, watermark.Format(models.ChargedAtLayout), path)
			return &models.MergeResult{NoOp: true, Rows: snapshot.Len()}, nil
		}
		result = applyMerge(snapshot, parts, keyField, chargedAt)
	}

	snapshot.DropColumns(models.FieldCreatedAt, models.FieldUpdatedAt)
	result.Rows = snapshot.Len()

	data, err := encodeCSV(snapshot)
	if err != nil {
		ioErr := &IOError{Op: "encode", Path: path, Err: err}
		s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, ioErr)
		return nil, ioErr
	}
	if err := writeFileAtomic(path, data); err != nil {
		s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, err)
		return nil, err
	}

	s.metrics.AddRecordsMerged(category.String(), "inserted", result.Inserted)
	s.metrics.AddRecordsMerged(category.String(), "updated", result.Updated)
	s.metrics.SetRecordsTotal(category.String(), result.Rows)
	s.metrics.ObserveSaveDuration(category.String(), time.Since(start))

	s.logger.Infof(providers.TypeStorage, "Saved %d new and %d updated records to %s (%d rows, charged_at %s)",
		result.Inserted, result.Updated, path, result.Rows, chargedAt)
	return result, nil
}
