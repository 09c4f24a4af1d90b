package storage

import "datasync/internal/models"

// Sink is what the pipeline writes a cleaned batch into. Backends differ in
// how they treat the previous snapshot, which is exposed through Upserter and
// Overwriter.
type Sink interface {
	Save(category models.Category, records []models.Record) error
	Load(category models.Category) (*models.Table, error)
}

// Upserter merges a batch into the existing snapshot on a unique key.
type Upserter interface {
	Upsert(category models.Category, records []models.Record, keyField string) (*models.MergeResult, error)
}

// Overwriter replaces the snapshot with the batch.
type Overwriter interface {
	Overwrite(category models.Category, records []models.Record) error
}
