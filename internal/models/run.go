package models

import "time"

// RunStatus describes how far a domain got through the pipeline
type RunStatus string

const (
	RunCompleted   RunStatus = "completed"    // URLs written, command composed
	RunEmpty       RunStatus = "empty"        // files written, nothing to scan
	RunFetchFailed RunStatus = "fetch_failed" // archive request failed
	RunWriteFailed RunStatus = "write_failed" // output bundle could not be written
)

// Succeeded reports whether the domain finished its pipeline.
// An empty result still counts: the archive answered and the files exist.
func (s RunStatus) Succeeded() bool {
	return s == RunCompleted || s == RunEmpty
}

// ScanRun is one pass of the pipeline over a single domain
type ScanRun struct {
	ID          int64
	Domain      string
	StartedAt   time.Time
	OutputDir   string
	RawFile     string
	CleanedFile string
	RawCount    int
	CleanCount  int
	Command     string // empty when no command was composed
	Executed    bool
	Status      RunStatus
	Error       string
}

// RunFilter holds filter criteria for querying the run ledger
type RunFilter struct {
	Domain string // exact match, empty for all
	Status RunStatus
	Limit  int
}

// DomainRunStats summarizes the ledger for a single domain
type DomainRunStats struct {
	Domain     string
	RunCount   int
	LastRunAt  time.Time
	TotalClean int
}
