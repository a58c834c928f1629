package storage

import "time"

// Page outcomes recorded in audit_results.
const (
	OutcomePassed        = "passed"
	OutcomeNeedsRevision = "needs_revision"
	OutcomeInventoried   = "inventoried"
	OutcomeLocalMissing  = "local_missing"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomePersistFailed = "persist_failed"
)

// RunKind tells content audit runs apart from SEO runs in audit_runs.
type RunKind string

const (
	RunKindAudit RunKind = "audit"
	RunKindSEO   RunKind = "seo"
)

// Counters mirrors the orchestrator's end-of-run summary.
type Counters struct {
	Total           int
	Passed          int
	NeedsRevision   int
	InventoriedOnly int
	FetchFailed     int
	LocalMissing    int
	PersistFailed   int
}

// Run is one row of audit_runs.
type Run struct {
	ID         int64
	Kind       RunKind
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Counters
}

// Result captures a single page outcome.
type Result struct {
	RunID         int64
	OccurredAt    time.Time
	PageID        string
	Slug          string
	Outcome       string
	ReviewStatus  string
	Notes         string
	VideoCount    int
	ImageCount    int
	WordCount     int
	MissingVideos int
	ExtraVideos   int
	MissingImages int
}

// SEOResult is one page of an SEO audit run.
type SEOResult struct {
	RunID    int64
	Slug     string
	URL      string
	Score    int
	Findings string // JSON array
}
