package models

import "time"

// MergeResult describes what a single save did to a category snapshot.
type MergeResult struct {
	Inserted  int
	Updated   int
	NoOp      bool
	ChargedAt string
	Rows      int
}

// CategoryResult is the outcome of fetch, clean and save for one category.
type CategoryResult struct {
	Category Category      `json:"-"`
	Name     string        `json:"category"`
	Fetched  int           `json:"fetched"`
	Cleaned  int           `json:"cleaned"`
	Saved    int           `json:"saved"`
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Skipped  bool          `json:"skipped"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunReport collects the per-category results of one pipeline run.
type RunReport struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Results    []*CategoryResult `json:"results"`
}

func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if res.Error != "" {
			return true
		}
	}
	return false
}

func (r *RunReport) Failures() []*CategoryResult {
	var out []*CategoryResult
	for _, res := range r.Results {
		if res.Error != "" {
			out = append(out, res)
		}
	}
	return out
}
