// Package store keeps a history of scrape runs and their per-URL outcomes.
package store

import (
	"context"

	"github.com/sells-group/social-cli/internal/model"
)

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLiteFile is created under the output directory when no
// database URL is configured.
const DefaultSQLiteFile = "social.db"

const defaultListLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status         model.RunStatus `json:"status,omitempty"`
	CompetitorSlug string          `json:"competitor_slug,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, rc model.RunContext, total int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, succeeded, failed int) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Fetches
	RecordFetch(ctx context.Context, outcome model.FetchOutcome) error
	ListFetches(ctx context.Context, runID string) ([]model.FetchOutcome, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Adapter reports batch progress into a Store.
type Adapter struct {
	Store Store
}

// StartRun records a new run in the running state.
func (a *Adapter) StartRun(ctx context.Context, rc model.RunContext, total int) error {
	_, err := a.Store.CreateRun(ctx, rc, total)
	return err
}

// RecordFetch stores one URL outcome.
func (a *Adapter) RecordFetch(ctx context.Context, outcome model.FetchOutcome) error {
	return a.Store.RecordFetch(ctx, outcome)
}

// FinishRun sets the final status and counts.
func (a *Adapter) FinishRun(ctx context.Context, runID string, status model.RunStatus, succeeded, failed int) error {
	return a.Store.CompleteRun(ctx, runID, status, succeeded, failed)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
