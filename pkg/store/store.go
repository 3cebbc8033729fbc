// Package store persists finished and in-flight runs so they can be looked
// up by id.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// Status is the lifecycle state of a stored run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Run is the stored record of one task execution.
type Run struct {
	ID           string              `json:"id"`
	Task         string              `json:"task"`
	Status       Status              `json:"status"`
	Answer       *string             `json:"final_answer"`
	Errors       *string             `json:"errors"`
	Steps        int                 `json:"steps"`
	VisitedSites []state.VisitedSite `json:"visited_websites"`
	CreatedAt    time.Time           `json:"created_at"`
	FinishedAt   time.Time           `json:"finished_at,omitempty"`
	Duration     time.Duration       `json:"duration"`
}

// Store saves and loads runs. Save inserts or replaces by ID.
type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// FromResult builds the record of a finished run. A run without an answer
// is stored as failed.
func FromResult(task string, res agent.Result, finished time.Time) Run {
	status := StatusDone
	if res.Answer == nil {
		status = StatusFailed
	}
	return Run{
		ID:           res.RunID,
		Task:         task,
		Status:       status,
		Answer:       res.Answer,
		Errors:       res.Errors,
		Steps:        res.Steps,
		VisitedSites: res.VisitedSites,
		CreatedAt:    finished.Add(-res.Duration),
		FinishedAt:   finished,
		Duration:     res.Duration,
	}
}
