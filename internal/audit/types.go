// Package audit records one row per sanitize job. Rows hold field names,
// counts and status only; neither document text nor extracted values are
// ever written.
package audit

import (
	"context"
	"time"

	"github.com/lib/pq"
)

// Job statuses
const (
	StatusOK      = "ok"
	StatusBlocked = "blocked"
	StatusFailed  = "failed"
)

// Job is one audit row
type Job struct {
	ID             string         `db:"id" json:"id"`
	Source         string         `db:"source" json:"source"` // upload, api or batch
	InternalPO     string         `db:"internal_po" json:"internal_po"`
	Format         string         `db:"format" json:"format"`
	Status         string         `db:"status" json:"status"`
	RedactedFields pq.StringArray `db:"redacted_fields" json:"redacted_fields"`
	KeptFields     pq.StringArray `db:"kept_fields" json:"kept_fields"`
	Pages          int            `db:"pages" json:"pages"`
	DurationMs     int64          `db:"duration_ms" json:"duration_ms"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Summary counts jobs by status
type Summary struct {
	Total   int64 `db:"total" json:"total"`
	OK      int64 `db:"ok" json:"ok"`
	Blocked int64 `db:"blocked" json:"blocked"`
	Failed  int64 `db:"failed" json:"failed"`
}

// Recorder persists audit rows
type Recorder interface {
	Record(ctx context.Context, job *Job) error
	List(ctx context.Context, limit int) ([]*Job, error)
	Summary(ctx context.Context) (*Summary, error)
	Close() error
}

// Noop discards every job. Used when auditing is disabled.
type Noop struct{}

func (Noop) Record(context.Context, *Job) error        { return nil }
func (Noop) List(context.Context, int) ([]*Job, error) { return []*Job{}, nil }
func (Noop) Summary(context.Context) (*Summary, error) { return &Summary{}, nil }
func (Noop) Close() error                              { return nil }
