package controllers

import (
	"net/http"

	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/scheduler/interfaces"
	"datasync/internal/services"
	"datasync/internal/storage"
	json "github.com/goccy/go-json"
)

type ApiController struct {
	logger    providers.Logger
	pipeline  services.PipelineServiceInterface
	sink      storage.Sink
	scheduler interfaces.SchedulerInterface
	cache     providers.CacheProviderInterface
}

type snapshotResponse struct {
	Category string              `json:"category"`
	RunID    string              `json:"run_id,omitempty"`
	Count    int                 `json:"count"`
	Header   []string            `json:"header"`
	Rows     []map[string]string `json:"rows"`
}

type runResponse struct {
	Status string `json:"status"`
}

func NewApiController(
	logger providers.Logger,
	pipeline services.PipelineServiceInterface,
	sink storage.Sink,
	scheduler interfaces.SchedulerInterface,
	cache providers.CacheProviderInterface,
) *ApiController {
	return &ApiController{
		logger:    logger,
		pipeline:  pipeline,
		sink:      sink,
		scheduler: scheduler,
		cache:     cache,
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

// lastRunID versions cache keys so a finished run invalidates every cached
// snapshot.
func (ac *ApiController) lastRunID() string {
	if report := ac.pipeline.LastReport(); report != nil {
		return report.ID
	}
	return ""
}

func (ac *ApiController) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	runID := ac.lastRunID()
	ac.serveFromCacheOrCompute(w, providers.SnapshotCacheKey(category.String(), runID), func() (any, error) {
		table, err := ac.sink.Load(category)
		if err != nil {
			ac.logger.Errorf(providers.TypeApp, "Failed to load %s snapshot: %s", category, err)
			return nil, err
		}
		return &snapshotResponse{
			Category: category.String(),
			RunID:    runID,
			Count:    table.Len(),
			Header:   table.Header,
			Rows:     table.Rows,
		}, nil
	})
}

func (ac *ApiController) GetLastRun(w http.ResponseWriter, r *http.Request) {
	report := ac.pipeline.LastReport()
	if report == nil {
		http.Error(w, "Not Found: no run finished yet", http.StatusNotFound)
		return
	}
	gson, err := json.Marshal(report)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !ac.scheduler.Trigger() {
		gson, _ := json.Marshal(runResponse{Status: "already running"})
		writeJSON(w, http.StatusConflict, gson)
		return
	}
	ac.logger.Infof(providers.TypeApp, "Pipeline run triggered from %s", r.RemoteAddr)
	gson, _ := json.Marshal(runResponse{Status: "accepted"})
	writeJSON(w, http.StatusAccepted, gson)
}
