// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shelfwise/internal/inventory"
	"shelfwise/internal/journal"
)

// Summary is one consistent aggregate snapshot of the inventory.
// Available + CheckedOut == Total always holds within a single Summary.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Available   int       `json:"available"`
	CheckedOut  int       `json:"checked_out"`
	Overdue     int       `json:"overdue"`
}

// Service is the circulation engine: it owns the checkout/return state
// machine and the time-based classification over the inventory.
type Service interface {
	// Checkout lends an item to a borrower for periodDays days. A zero
	// periodDays selects the configured default.
	Checkout(ctx context.Context, itemID, borrowerID uuid.UUID, periodDays int) (*inventory.Item, error)
	// Return ends an item's loan.
	Return(ctx context.Context, itemID uuid.UUID) (*inventory.Item, error)
	// ClassifyOverdue returns the items on loan whose due instant is strictly
	// before now. The same now applies to the whole scan.
	ClassifyOverdue(ctx context.Context, now time.Time) ([]inventory.Item, error)
	// ListCheckedOut returns all items currently on loan.
	ListCheckedOut(ctx context.Context) ([]inventory.Item, error)
	// Aggregate computes inventory counts as of now from one snapshot.
	Aggregate(ctx context.Context, now time.Time) (Summary, error)
	// History returns an item's circulation events, most recent first.
	History(ctx context.Context, itemID uuid.UUID, limit int) ([]journal.Entry, error)
}
