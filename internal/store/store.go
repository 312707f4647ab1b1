// Package store keeps a local history of search runs and their reports.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/mail-timeline/internal/model"
)

// ErrNotFound is returned when a run or report does not exist.
var ErrNotFound = errors.New("not found")

// RunFilter controls which runs ListRuns returns.
type RunFilter struct {
	// Keyword restricts results to runs that searched for it, compared
	// case-insensitively.
	Keyword string
	Limit   int
}

// Store defines the persistence interface for run history.
type Store interface {
	// SaveRun stores a run and its rendered report in one transaction.
	// An empty run ID is replaced with a new UUID, which is returned.
	SaveRun(ctx context.Context, run model.Run, report model.StoredReport) (string, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	GetRun(ctx context.Context, id string) (*model.Run, error)
	GetReport(ctx context.Context, runID string) (*model.StoredReport, error)

	// DeleteRunsBefore removes runs started before the cutoff and
	// returns how many were removed.
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
