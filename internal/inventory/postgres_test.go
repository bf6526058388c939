// internal/inventory/postgres_test.go
package inventory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwise/internal/journal"
)

// setupTestDB connects to a PostgreSQL database for testing and creates the
// schema. The test is skipped when no database is reachable.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgDB := os.Getenv("PGDATABASE")

	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgUser == "" {
		pgUser = "shelfwise"
	}
	if pgPassword == "" {
		pgPassword = "shelfwise"
	}
	if pgDB == "" {
		pgDB = "shelfwise_test"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sqlx.Open("postgres", connStr)
	require.NoError(t, err)

	if err := db.Ping(); err != nil {
		t.Skipf("skipping postgres tests: could not connect: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS borrowers (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			membership_start TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			isbn TEXT,
			published_year INT,
			checked_out BOOLEAN NOT NULL DEFAULT FALSE,
			due_at TIMESTAMPTZ,
			borrower_id UUID REFERENCES borrowers(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT items_loan_shape CHECK (
				(checked_out AND due_at IS NOT NULL AND borrower_id IS NOT NULL)
				OR (NOT checked_out AND due_at IS NULL AND borrower_id IS NULL)
			)
		);
		CREATE TABLE IF NOT EXISTS circulation_events (
			id BIGSERIAL PRIMARY KEY,
			item_id UUID NOT NULL,
			borrower_id UUID NOT NULL,
			action TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	require.NoError(t, err)

	_, err = db.Exec(`TRUNCATE TABLE circulation_events, items, borrowers CASCADE`)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func newPostgresRepo(t *testing.T) *PostgresRepository {
	db := setupTestDB(t)
	return NewPostgresRepository(db, journal.New(db))
}

func TestPostgresCheckoutReturnRoundTrip(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	item := &Item{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "9780141439518"}
	require.NoError(t, repo.CreateItem(ctx, item))
	b := &Borrower{Name: "Alice", Email: "alice@example.com", MembershipStart: time.Now().UTC()}
	require.NoError(t, repo.CreateBorrower(ctx, b))

	dueAt := time.Now().UTC().AddDate(0, 0, 14)
	got, err := repo.CheckoutItem(ctx, item.ID, b.ID, dueAt)
	require.NoError(t, err)
	require.NotNil(t, got.Loan)
	assert.Equal(t, b.ID, got.Loan.BorrowerID)
	assert.WithinDuration(t, dueAt, got.Loan.DueAt, time.Second)

	got, err = repo.ReturnItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Loan)

	entries, err := repo.ItemHistory(ctx, item.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, journal.ActionReturn, entries[0].Action)
	assert.Equal(t, journal.ActionCheckout, entries[1].Action)
}

func TestPostgresConcurrentCheckoutSingleWinner(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	item := &Item{Title: "Contended", Author: "A"}
	require.NoError(t, repo.CreateItem(ctx, item))

	const attempts = 10
	borrowers := make([]*Borrower, attempts)
	for i := range borrowers {
		borrowers[i] = &Borrower{Name: fmt.Sprintf("b%d", i), Email: fmt.Sprintf("b%d@example.com", i), MembershipStart: time.Now().UTC()}
		require.NoError(t, repo.CreateBorrower(ctx, borrowers[i]))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	dueAt := time.Now().UTC().AddDate(0, 0, 14)
	for _, b := range borrowers {
		wg.Add(1)
		go func(b *Borrower) {
			defer wg.Done()
			if _, err := repo.CheckoutItem(ctx, item.ID, b.ID, dueAt); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(b)
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "only one concurrent checkout should succeed")
}

func TestPostgresReturnErrors(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	item := &Item{Title: "Shelf", Author: "A"}
	require.NoError(t, repo.CreateItem(ctx, item))

	_, err := repo.ReturnItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotCheckedOut)
}

func TestPostgresCountsSingleSnapshot(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	b := &Borrower{Name: "Alice", Email: "alice@example.com", MembershipStart: time.Now().UTC()}
	require.NoError(t, repo.CreateBorrower(ctx, b))

	for i := 0; i < 3; i++ {
		item := &Item{Title: "Shelf", Author: "A"}
		require.NoError(t, repo.CreateItem(ctx, item))
	}
	overdueItem := &Item{Title: "Overdue", Author: "A"}
	require.NoError(t, repo.CreateItem(ctx, overdueItem))
	_, err := repo.CheckoutItem(ctx, overdueItem.ID, b.ID, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)

	counts, err := repo.CountItems(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 1, counts.CheckedOut)
	assert.Equal(t, 1, counts.Overdue)
}

func TestPostgresDeleteBorrowerWithLoanConflicts(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	item := &Item{Title: "Held", Author: "A"}
	require.NoError(t, repo.CreateItem(ctx, item))
	b := &Borrower{Name: "Alice", Email: "alice@example.com", MembershipStart: time.Now().UTC()}
	require.NoError(t, repo.CreateBorrower(ctx, b))
	_, err := repo.CheckoutItem(ctx, item.ID, b.ID, time.Now().UTC().AddDate(0, 0, 14))
	require.NoError(t, err)

	err = repo.DeleteBorrower(ctx, b.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPostgresOverdueFilterExcludesFutureDue(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	b := &Borrower{Name: "Alice", Email: "alice@example.com", MembershipStart: time.Now().UTC()}
	require.NoError(t, repo.CreateBorrower(ctx, b))

	overdueItem := &Item{Title: "Overdue", Author: "A"}
	require.NoError(t, repo.CreateItem(ctx, overdueItem))
	currentItem := &Item{Title: "Current", Author: "A"}
	require.NoError(t, repo.CreateItem(ctx, currentItem))

	_, err := repo.CheckoutItem(ctx, overdueItem.ID, b.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	_, err = repo.CheckoutItem(ctx, currentItem.ID, b.ID, time.Now().UTC().AddDate(0, 0, 30))
	require.NoError(t, err)

	now := time.Now().UTC()
	items, err := repo.ListItems(ctx, ItemFilter{OverdueBefore: &now})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, overdueItem.ID, items[0].ID)
}
