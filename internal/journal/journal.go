// internal/journal/journal.go
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Action identifies the lending transition an entry records.
type Action string

const (
	ActionCheckout Action = "checkout"
	ActionReturn   Action = "return"
)

// Entry is one recorded circulation event. Entries are append-only: they make
// checkout and return transitions auditable after the fact.
type Entry struct {
	ID         int64     `json:"id" db:"id"`
	ItemID     uuid.UUID `json:"item_id" db:"item_id"`
	BorrowerID uuid.UUID `json:"borrower_id" db:"borrower_id"`
	Action     Action    `json:"action" db:"action"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

// Journal persists circulation events in Postgres. Appends happen inside the
// same transaction as the lending-state update they describe, so the journal
// never disagrees with the items table.
type Journal struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func New(db *sqlx.DB) *Journal {
	return &Journal{
		db:     db,
		tracer: otel.Tracer("shelfwise/journal"),
	}
}

// AppendTx records an entry within the caller's transaction.
func (j *Journal) AppendTx(ctx context.Context, tx *sqlx.Tx, e Entry) error {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("item.id", e.ItemID.String()),
			attribute.String("action", string(e.Action)),
		),
	)
	defer span.End()

	occurredAt := e.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO circulation_events (item_id, borrower_id, action, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, e.ItemID, e.BorrowerID, e.Action, occurredAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			span.SetAttributes(attribute.String("pq.code", string(pqErr.Code)))
		}
		return fmt.Errorf("insert circulation event: %w", err)
	}

	return nil
}

// ForItem returns an item's circulation history, most recent first.
func (j *Journal) ForItem(ctx context.Context, itemID uuid.UUID, limit int) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.for_item",
		trace.WithAttributes(attribute.String("item.id", itemID.String())),
	)
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	var entries []Entry
	err := j.db.SelectContext(ctx, &entries, `
		SELECT id, item_id, borrower_id, action, occurred_at
		FROM circulation_events
		WHERE item_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("query circulation events: %w", err)
	}

	span.SetAttributes(attribute.Int("entries.loaded", len(entries)))
	return entries, nil
}
