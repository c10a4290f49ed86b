package model

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/social-cli/internal/slug"
)

// TimestampLayout formats the batch timestamp shared by every file and
// manifest record of a run (UTC, e.g. 20250114T093000Z).
const TimestampLayout = "20060102T150405Z"

// RunContext carries the run-wide values every component needs. It is built
// once at startup and passed explicitly.
type RunContext struct {
	RunID          string    `json:"run_id"`
	OutDir         string    `json:"out_dir"`
	Competitor     string    `json:"competitor,omitempty"`
	CompetitorSlug string    `json:"competitor_slug,omitempty"`
	Timestamp      string    `json:"timestamp"`
	StartedAt      time.Time `json:"started_at"`
}

// NewRunContext stamps a run started at now. An empty competitor leaves
// output un-namespaced.
func NewRunContext(outDir, competitor string, now time.Time) RunContext {
	now = now.UTC()
	rc := RunContext{
		RunID:      uuid.New().String(),
		OutDir:     outDir,
		Competitor: competitor,
		Timestamp:  now.Format(TimestampLayout),
		StartedAt:  now,
	}
	if competitor != "" {
		rc.CompetitorSlug = slug.Make(competitor)
	}
	return rc
}

// BaseDir is <out-dir>/<competitor-slug?>.
func (rc RunContext) BaseDir() string {
	return filepath.Join(rc.OutDir, rc.CompetitorSlug)
}

// RawDir holds one JSON artifact per fetched URL.
func (rc RunContext) RawDir() string {
	return filepath.Join(rc.BaseDir(), "raw")
}

// ManifestPath is the append-only sources.jsonl of the run's base dir.
func (rc RunContext) ManifestPath() string {
	return filepath.Join(rc.BaseDir(), "sources.jsonl")
}

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is a batch run as recorded in the run store.
type Run struct {
	ID             string    `json:"id"`
	Competitor     string    `json:"competitor,omitempty"`
	CompetitorSlug string    `json:"competitor_slug,omitempty"`
	OutDir         string    `json:"out_dir"`
	Timestamp      string    `json:"timestamp"`
	Status         RunStatus `json:"status"`
	Total          int       `json:"total"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
