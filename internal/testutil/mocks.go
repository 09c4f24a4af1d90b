package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"datasync/internal/models"
	"datasync/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Entries returns the recorded entries of one level.
func (m *MockLogger) Entries(level string) []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogEntry
	for _, e := range m.Logs {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// MockMetrics implements providers.MetricsProviderInterface and counts the
// calls the pipeline cares about.
type MockMetrics struct {
	mu               sync.Mutex
	PagesFetched     map[string]int
	FetchErrors      map[string]int
	Merged           map[string]int
	RecordsTotal     map[string]int
	CategoryFailures map[string]int
	LastRun          time.Time
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		PagesFetched:     make(map[string]int),
		FetchErrors:      make(map[string]int),
		Merged:           make(map[string]int),
		RecordsTotal:     make(map[string]int),
		CategoryFailures: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits(_ string)                            {}
func (m *MockMetrics) IncCacheMisses(_ string)                          {}
func (m *MockMetrics) ObservePageDuration(_ string, _ time.Duration)    {}
func (m *MockMetrics) ObserveSaveDuration(_ string, _ time.Duration)    {}

func (m *MockMetrics) IncPagesFetched(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PagesFetched[endpoint]++
}

func (m *MockMetrics) IncFetchErrors(_ string, class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErrors[class]++
}

func (m *MockMetrics) AddRecordsMerged(category string, kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merged[category+":"+kind] += count
}

func (m *MockMetrics) SetRecordsTotal(category string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsTotal[category] = count
}

func (m *MockMetrics) IncCategoryFailures(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CategoryFailures[category]++
}

func (m *MockMetrics) SetLastRun(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRun = t
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() { m.Closed = true }

// MockFetcher implements fetcher.FetcherInterface. Responses are served per
// endpoint; Calls keeps the order endpoints were requested in.
type MockFetcher struct {
	mu        sync.Mutex
	Responses map[string][]models.Record
	Calls     []string
	FetchFn   func(ctx context.Context, endpoint string) []models.Record
}

func (m *MockFetcher) FetchAll(ctx context.Context, endpoint string) []models.Record {
	m.mu.Lock()
	m.Calls = append(m.Calls, endpoint)
	fn := m.FetchFn
	resp := m.Responses[endpoint]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, endpoint)
	}
	return resp
}

// MockSink implements storage.Sink and records every save.
type MockSink struct {
	mu     sync.Mutex
	Saves  []SaveCall
	Errors map[models.Category]error
	Tables map[models.Category]*models.Table
}

type SaveCall struct {
	Category models.Category
	Records  []models.Record
}

func (m *MockSink) Save(category models.Category, records []models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves = append(m.Saves, SaveCall{Category: category, Records: records})
	if m.Errors != nil {
		return m.Errors[category]
	}
	return nil
}

func (m *MockSink) Load(category models.Category) (*models.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Errors != nil && m.Errors[category] != nil {
		return nil, m.Errors[category]
	}
	if t, ok := m.Tables[category]; ok {
		return t, nil
	}
	return models.NewTable(), nil
}

func (m *MockSink) SavedCategories() []models.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Category, 0, len(m.Saves))
	for _, s := range m.Saves {
		out = append(out, s.Category)
	}
	return out
}
