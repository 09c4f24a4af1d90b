package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/storage/interfaces"
	"datasync/internal/structures"
	json "github.com/goccy/go-json"
)

// JSONStorage overwrites {category}.json with the latest batch. With
// compression enabled the file is zstd encoded and named {category}.json.zst.
type JSONStorage struct {
	dir        string
	compress   bool
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewJSONStorage(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (*JSONStorage, error) {
	dir := conf.Storage.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	logger.Infof(providers.TypeStorage, "JsonStorage initialized with directory: %s", dir)
	return &JSONStorage{
		dir:        dir,
		compress:   conf.Storage.Compress,
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

func (s *JSONStorage) Path(category models.Category) string {
	name := category.String() + ".json"
	if s.compress {
		name += ".zst"
	}
	return filepath.Join(s.dir, name)
}

func (s *JSONStorage) Save(category models.Category, records []models.Record) error {
	return s.Overwrite(category, records)
}

func (s *JSONStorage) Overwrite(category models.Category, records []models.Record) error {
	path := s.Path(category)
	start := time.Now()

	if records == nil {
		records = []models.Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		ioErr := &IOError{Op: "encode", Path: path, Err: err}
		s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, ioErr)
		return ioErr
	}
	if s.compress {
		if data, err = s.compressor.Compress(data); err != nil {
			ioErr := &IOError{Op: "compress", Path: path, Err: err}
			s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, ioErr)
			return ioErr
		}
	}
	if err := writeFileAtomic(path, data); err != nil {
		s.logger.Errorf(providers.TypeStorage, "Failed to save data to %s: %s", path, err)
		return err
	}

	s.metrics.SetRecordsTotal(category.String(), len(records))
	s.metrics.ObserveSaveDuration(category.String(), time.Since(start))
	s.logger.Infof(providers.TypeStorage, "Data %s saved to %s (%d records)", category, path, len(records))
	return nil
}

func (s *JSONStorage) Load(category models.Category) (*models.Table, error) {
	path := s.Path(category)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewTable(), nil
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if s.compress {
		if data, err = s.compressor.Decompress(data); err != nil {
			return nil, &IOError{Op: "decompress", Path: path, Err: err}
		}
	}

	var records []models.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}
	return recordsToTable(records, category.KeyField()), nil
}

func recordsToTable(records []models.Record, keyField string) *models.Table {
	seen := map[string]struct{}{keyField: {}}
	var columns []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	table := models.NewTable(append([]string{keyField}, columns...)...)
	for _, r := range records {
		row := make(map[string]string, len(r))
		for k, v := range r {
			row[k] = models.FormatValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
