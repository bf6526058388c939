// internal/scheduler/store.go
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// JobStore persists each job's next firing instant, so a restarted process
// knows whether it slept through a firing.
type JobStore interface {
	NextFire(ctx context.Context, name string) (time.Time, bool, error)
	SetNextFire(ctx context.Context, name string, t time.Time) error
}

// PostgresJobStore keeps job state in a job_state table.
type PostgresJobStore struct {
	db *sqlx.DB
}

func NewPostgresJobStore(db *sqlx.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) NextFire(ctx context.Context, name string) (time.Time, bool, error) {
	var next time.Time
	err := s.db.GetContext(ctx, &next, `SELECT next_fire FROM job_state WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load job state: %w", err)
	}
	return next.UTC(), true, nil
}

func (s *PostgresJobStore) SetNextFire(ctx context.Context, name string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_state (name, next_fire)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET next_fire = EXCLUDED.next_fire
	`, name, t.UTC())
	if err != nil {
		return fmt.Errorf("save job state: %w", err)
	}
	return nil
}

// MemoryJobStore is an in-process JobStore for tests.
type MemoryJobStore struct {
	mu   sync.Mutex
	next map[string]time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{next: make(map[string]time.Time)}
}

func (s *MemoryJobStore) NextFire(ctx context.Context, name string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.next[name]
	return t, ok, nil
}

func (s *MemoryJobStore) SetNextFire(ctx context.Context, name string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[name] = t
	return nil
}
