// Package store is the snapshot cache for derived site data. Computed
// payloads (navigation, footer, sitemap, routes) are kept per content
// version with a TTL so page loads do not hit the content API on every
// request and the last good snapshot survives process restarts.
package store

import (
	"context"
	"time"
)

// Snapshot kinds used as cache keys.
const (
	KindNavigation = "navigation"
	KindFooter     = "footer"
	KindSitemap    = "sitemap"
	KindRoutes     = "routes"
)

// Snapshot is one cached derived payload.
type Snapshot struct {
	Kind      string
	Version   string
	Payload   []byte
	CreatedAt time.Time
}

// Store persists derived snapshots keyed by kind and content version.
type Store interface {
	// Get returns the snapshot for kind/version, or ok=false when absent
	// or expired.
	Get(ctx context.Context, kind, version string) (Snapshot, bool, error)
	// Put stores or replaces the snapshot for kind/version.
	Put(ctx context.Context, kind, version string, payload []byte) error
	// Prune removes expired snapshots.
	Prune(ctx context.Context) (int64, error)
	// Close releases the underlying resources.
	Close() error
}
