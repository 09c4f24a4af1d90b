package services

import (
	"datasync/internal/models"
	"datasync/internal/providers"
)

type CleanerServiceInterface interface {
	Clean(records []models.Record, keyField string) []models.Record
}

// CleanerService drops incomplete records and deduplicates the batch on the
// category key. The first occurrence of a key wins and input order is kept.
type CleanerService struct {
	logger providers.Logger
}

func (cs *CleanerService) Clean(records []models.Record, keyField string) []models.Record {
	cleaned := make([]models.Record, 0, len(records))
	if len(records) == 0 {
		return cleaned
	}

	schema := batchSchema(records)
	seen := make(map[string]struct{}, len(records))
	incomplete, duplicates := 0, 0

	for _, r := range records {
		if !complete(r, schema) || !r.Has(keyField) {
			incomplete++
			continue
		}
		key := r.String(keyField)
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, r)
	}

	if incomplete > 0 || duplicates > 0 {
		cs.logger.Debugf(providers.TypePipeline, "Cleaner dropped %d incomplete and %d duplicate records on %s",
			incomplete, duplicates, keyField)
	}
	return cleaned
}

func batchSchema(records []models.Record) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				fields = append(fields, k)
			}
		}
	}
	return fields
}

func complete(r models.Record, schema []string) bool {
	for _, field := range schema {
		if !r.Has(field) {
			return false
		}
	}
	return true
}

func NewCleanerService(logger providers.Logger) CleanerServiceInterface {
	return &CleanerService{logger: logger}
}
