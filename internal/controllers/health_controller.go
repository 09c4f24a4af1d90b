package controllers

import (
	"fmt"
	"net/http"
	"time"

	"datasync/internal/scheduler/interfaces"
	"datasync/internal/services"
	json "github.com/goccy/go-json"
)

type HealthController struct {
	pipeline  services.PipelineServiceInterface
	scheduler interfaces.SchedulerInterface
	startTime time.Time
}

type lastRunSummary struct {
	ID         string    `json:"id"`
	FinishedAt time.Time `json:"finished_at"`
	Failed     []string  `json:"failed,omitempty"`
}

type healthResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Running       bool            `json:"running"`
	LastRun       *lastRunSummary `json:"last_run,omitempty"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Running:       hc.scheduler.Running(),
	}
	if report := hc.pipeline.LastReport(); report != nil {
		resp.LastRun = &lastRunSummary{ID: report.ID, FinishedAt: report.FinishedAt}
		for _, f := range report.Failures() {
			resp.LastRun.Failed = append(resp.LastRun.Failed, f.Name)
		}
		if report.Failed() {
			resp.Status = "degraded"
		}
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(pipeline services.PipelineServiceInterface, scheduler interfaces.SchedulerInterface) *HealthController {
	return &HealthController{
		pipeline:  pipeline,
		scheduler: scheduler,
		startTime: time.Now(),
	}
}
