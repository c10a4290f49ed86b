package model

import "time"

// ManifestRecord is one line of sources.jsonl. Field order is part of the
// file format.
type ManifestRecord struct {
	URL       string `json:"url"`
	Saved     string `json:"saved"`
	Timestamp string `json:"timestamp"`
}

// FetchStatus is the outcome of a single URL in a batch.
type FetchStatus string

const (
	FetchStatusOK    FetchStatus = "ok"
	FetchStatusError FetchStatus = "error"
)

// FetchOutcome records what happened to one URL of a run.
type FetchOutcome struct {
	RunID     string        `json:"run_id"`
	Position  int           `json:"position"`
	URL       string        `json:"url"`
	Status    FetchStatus   `json:"status"`
	SavedPath string        `json:"saved_path,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
	Duration  time.Duration `json:"duration"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// OK reports whether the URL was fetched and saved.
func (o FetchOutcome) OK() bool {
	return o.Status == FetchStatusOK
}
