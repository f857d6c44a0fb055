// Package history keeps a local ledger of publish runs.
package history

import (
	"context"
	"time"
)

// Outcome is the final state of a run.
type Outcome string

const (
	OutcomePublished   Outcome = "published"
	OutcomeBuildFailed Outcome = "build_failed"
	OutcomeFailed      Outcome = "failed"
	OutcomeRefused     Outcome = "refused"
	OutcomeReaped      Outcome = "reaped"
)

// Run is one ledger row.
type Run struct {
	ID             int64
	RunID          string
	Directory      string
	Ref            string
	Repository     string
	Mode           string
	Uploaded       int
	Deleted        int
	InvalidationID string
	URL            string
	Outcome        Outcome
	Error          string
	StartedAt      time.Time
	Duration       time.Duration
}

// Store records runs and lists them back, newest first.
type Store interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	ByDirectory(ctx context.Context, dir string, limit int) ([]Run, error)
	Close() error
}
