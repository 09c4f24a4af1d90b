package services

import (
	"context"
	"sync"
	"time"

	"datasync/internal/fetcher"
	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/storage"
	"github.com/google/uuid"
)

type PipelineServiceInterface interface {
	Run(ctx context.Context) *models.RunReport
	FetchAndSave(ctx context.Context, category models.Category) (int, error)
	LastReport() *models.RunReport
}

// PipelineService runs fetch, clean and save for every category, one category
// at a time.
type PipelineService struct {
	fetcher    fetcher.FetcherInterface
	cleaner    CleanerServiceInterface
	sink       storage.Sink
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	categories []models.Category

	mu   sync.RWMutex
	last *models.RunReport
}

// Run processes the categories in their fixed order. A failing category is
// logged and recorded in the report; the remaining ones are still attempted.
// Only a cancelled context stops the run early.
func (ps *PipelineService) Run(ctx context.Context) *models.RunReport {
	report := &models.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   make([]*models.CategoryResult, 0, len(ps.categories)),
	}
	ps.logger.Infof(providers.TypePipeline, "Start pipeline run %s", report.ID)

	for _, c := range ps.categories {
		if err := ctx.Err(); err != nil {
			ps.logger.Warnf(providers.TypePipeline, "Run %s stopped before %s: %s", report.ID, c, err)
			break
		}

		res, err := ps.process(ctx, c)
		if err != nil {
			res.Error = err.Error()
			ps.metrics.IncCategoryFailures(c.String())
			ps.logger.Errorf(providers.TypePipeline, "Run %s: failed to process %s: %s", report.ID, c, err)
		}
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = time.Now().UTC()
	ps.metrics.SetLastRun(report.FinishedAt)

	if report.Failed() {
		ps.logger.Warnf(providers.TypePipeline, "Pipeline run %s finished with %d failed categories in %s",
			report.ID, len(report.Failures()), report.FinishedAt.Sub(report.StartedAt))
	} else {
		ps.logger.Infof(providers.TypePipeline, "Pipeline run %s executed successfully in %s",
			report.ID, report.FinishedAt.Sub(report.StartedAt))
	}

	ps.mu.Lock()
	ps.last = report
	ps.mu.Unlock()
	return report
}

// FetchAndSave handles a single category and returns the number of records
// handed to storage. Storage errors are returned to the caller.
func (ps *PipelineService) FetchAndSave(ctx context.Context, category models.Category) (int, error) {
	res, err := ps.process(ctx, category)
	return res.Saved, err
}

func (ps *PipelineService) LastReport() *models.RunReport {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.last
}

func (ps *PipelineService) process(ctx context.Context, c models.Category) (*models.CategoryResult, error) {
	start := time.Now()
	res := &models.CategoryResult{Category: c, Name: c.String()}
	defer func() { res.Duration = time.Since(start) }()

	ps.logger.Infof(providers.TypePipeline, "Fetching data for %s", c)
	raw := ps.fetcher.FetchAll(ctx, c.Endpoint())
	res.Fetched = len(raw)

	records := ps.cleaner.Clean(raw, c.KeyField())
	res.Cleaned = len(records)
	if len(records) == 0 {
		res.Skipped = true
		ps.logger.Infof(providers.TypePipeline, "No data to save for %s", c)
		return res, nil
	}

	if u, ok := ps.sink.(storage.Upserter); ok {
		merged, err := u.Upsert(c, records, c.KeyField())
		if err != nil {
			return res, err
		}
		res.Inserted, res.Updated = merged.Inserted, merged.Updated
	} else if err := ps.sink.Save(c, records); err != nil {
		return res, err
	}

	res.Saved = len(records)
	ps.logger.Infof(providers.TypePipeline, "Saved %d %s records (%d fetched)", res.Saved, c, res.Fetched)
	return res, nil
}

func NewPipelineService(
	fetcher fetcher.FetcherInterface,
	cleaner CleanerServiceInterface,
	sink storage.Sink,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) PipelineServiceInterface {
	return &PipelineService{
		fetcher:    fetcher,
		cleaner:    cleaner,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
		categories: models.Categories(),
	}
}
