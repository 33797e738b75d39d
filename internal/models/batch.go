package models

import "time"

// ProfileResult is the outcome of one profile job in a batch
type ProfileResult struct {
	ProfileID string         `json:"profile_id"`
	Success   bool           `json:"success"`
	Skipped   bool           `json:"skipped"` // Profile locked by another actor
	Attempts  int            `json:"attempts"`
	Message   string         `json:"message,omitempty"`
	Report    *FinanceReport `json:"report,omitempty"`
}

// BatchReport collects the per-profile results of a run in input order
type BatchReport struct {
	RunID      string          `json:"run_id" badgerhold:"key"`
	StartedAt  time.Time       `json:"started_at" badgerholdIndex:"StartedAt"`
	FinishedAt time.Time       `json:"finished_at"`
	Trigger    string          `json:"trigger"` // "cli", "api", "schedule"
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Results    []ProfileResult `json:"results"`
}

// Tally recomputes the aggregate counters from Results
func (r *BatchReport) Tally() {
	r.Total = len(r.Results)
	r.Succeeded, r.Failed, r.Skipped = 0, 0, 0
	for _, res := range r.Results {
		switch {
		case res.Success:
			r.Succeeded++
		case res.Skipped:
			r.Skipped++
		default:
			r.Failed++
		}
	}
}

// Progress is emitted at chunk start and on each job completion
type Progress struct {
	RunID     string `json:"run_id"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	ProfileID string `json:"profile_id,omitempty"`
	Status    string `json:"status"`
}

// Progress statuses
const (
	ProgressStarted   = "started"
	ProgressChunk     = "chunk_started"
	ProgressSucceeded = "success"
	ProgressFailed    = "failed"
	ProgressSkipped   = "skipped"
)

// Status returns the progress status matching this result
func (r ProfileResult) Status() string {
	switch {
	case r.Success:
		return ProgressSucceeded
	case r.Skipped:
		return ProgressSkipped
	default:
		return ProgressFailed
	}
}
