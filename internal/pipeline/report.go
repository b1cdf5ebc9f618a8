package pipeline

import (
	"time"

	"github.com/ibeckermayer/xscrape/internal/types"
)

// RunReport aggregates the terminal state of every account in a run
type RunReport struct {
	ID         string                `json:"id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Results    []types.AccountResult `json:"results"`
}

// Records returns the number of records collected across accounts
func (r *RunReport) Records() int {
	n := 0
	for _, res := range r.Results {
		n += res.Records
	}
	return n
}

// AllCompleted reports whether every account completed
func (r *RunReport) AllCompleted() bool {
	for _, res := range r.Results {
		if res.Status != types.StatusCompleted {
			return false
		}
	}
	return true
}

// Count returns how many accounts ended with status
func (r *RunReport) Count(status types.Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
