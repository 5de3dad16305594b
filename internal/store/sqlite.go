package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/metrics"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	ttl      time.Duration
	recorder metrics.Recorder
	now      func() time.Time
	mu       sync.RWMutex
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithRecorder injects a metrics recorder for cache hit/miss counting.
func WithRecorder(r metrics.Recorder) SQLiteOption {
	return func(s *SQLiteStore) { s.recorder = r }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore opens the snapshot database. Use ":memory:" for an
// in-process cache or a file path for one that survives restarts. ttl <= 0
// means snapshots never expire.
func NewSQLiteStore(dbPath string, ttl time.Duration, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryStore, serrors.SeverityError,
			fmt.Sprintf("open snapshot database %s", dbPath))
	}

	s := &SQLiteStore{
		db:       db,
		ttl:      ttl,
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, serrors.Wrap(err, serrors.CategoryStore, serrors.SeverityError,
			"initialize snapshot schema")
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		kind TEXT NOT NULL,
		version TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (kind, version)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the cached snapshot for kind/version. Expired entries count
// as misses; they are removed lazily by Prune.
func (s *SQLiteStore) Get(ctx context.Context, kind, version string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT payload, created_at FROM snapshots WHERE kind = ? AND version = ?",
		kind, version,
	)

	var (
		payload   []byte
		createdAt int64
	)
	if err := row.Scan(&payload, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			s.recorder.IncCacheLookup(kind, false)
			return Snapshot{}, false, nil
		}
		s.recorder.IncCacheLookup(kind, false)
		return Snapshot{}, false, serrors.Wrap(err, serrors.CategoryStore, serrors.SeverityError,
			fmt.Sprintf("read snapshot %s/%s", kind, version))
	}

	created := time.Unix(createdAt, 0)
	if s.ttl > 0 && s.now().Sub(created) > s.ttl {
		s.recorder.IncCacheLookup(kind, false)
		return Snapshot{}, false, nil
	}

	s.recorder.IncCacheLookup(kind, true)
	return Snapshot{Kind: kind, Version: version, Payload: payload, CreatedAt: created}, true, nil
}

// Put stores or replaces the snapshot for kind/version.
func (s *SQLiteStore) Put(ctx context.Context, kind, version string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (kind, version, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, version) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		kind, version, payload, s.now().Unix(),
	)
	if err != nil {
		return serrors.Wrap(err, serrors.CategoryStore, serrors.SeverityError,
			fmt.Sprintf("write snapshot %s/%s", kind, version))
	}
	return nil
}

// Prune deletes snapshots older than the TTL and reports how many were
// removed. A store without TTL never prunes.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, serrors.Wrap(err, serrors.CategoryStore, serrors.SeverityError, "prune snapshots")
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
