// Package store defines the persistence interfaces for take-off runs and
// the correction log.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/afriplan/takeoff/pkg/common"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus tracks a take-off run through the queue.
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunProcessing RunStatus = "processing"
	RunDone       RunStatus = "done"
	RunFailed     RunStatus = "failed"
)

// Run is one take-off execution over a drawing set.
type Run struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Status    RunStatus `json:"status"`
	ReportKey string    `json:"report_key,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStore persists take-off runs.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg string) error
	SetRunReport(ctx context.Context, id string, reportKey string) error
}

// CorrectionStore persists the replayable correction log.
type CorrectionStore interface {
	SaveCorrection(ctx context.Context, c common.Correction) error
	ListCorrections(ctx context.Context, runID string) ([]common.Correction, error)
	// ListProjectCorrections returns every correction recorded against any
	// run of the project, oldest first, so new runs can replay the full log.
	ListProjectCorrections(ctx context.Context, projectID string) ([]common.Correction, error)
}
