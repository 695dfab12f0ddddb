// Package artifact keeps generated factory documents until they are downloaded.
package artifact

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown or expired artifacts.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one generated document
type Artifact struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists artifacts for a bounded time
type Store interface {
	Put(ctx context.Context, a *Artifact) error
	Get(ctx context.Context, name string) (*Artifact, error)
	Delete(ctx context.Context, name string) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats tracks store usage
type Stats struct {
	Backend string  `json:"backend"`
	Stored  int64   `json:"stored"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Keys    int64   `json:"keys"`
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
