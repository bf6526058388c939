// internal/inventory/repository.go
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"shelfwise/internal/journal"
)

var (
	// ErrNotFound is returned when a referenced item or borrower id is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for checkout of an already-checked-out item and
	// for deletions blocked by an outstanding loan.
	ErrConflict = errors.New("conflicting lending state")
	// ErrNotCheckedOut is returned for a return of an available item. It is
	// distinct from ErrConflict so callers can tell "nothing to return" from
	// "someone else holds it".
	ErrNotCheckedOut = errors.New("item is not checked out")
	// ErrValidation is returned for malformed input at creation/update time.
	ErrValidation = errors.New("invalid input")
)

// ItemFilter narrows ListItems. Nil fields are ignored.
type ItemFilter struct {
	CheckedOut    *bool
	OverdueBefore *time.Time
	BorrowerID    *uuid.UUID
}

// ItemUpdate carries descriptive-attribute changes. Lending state is never
// updated through here; it moves only through CheckoutItem and ReturnItem.
type ItemUpdate struct {
	Title         *string
	Author        *string
	ISBN          *string
	PublishedYear *int
}

// BorrowerUpdate carries borrower attribute changes. Nil fields are ignored.
type BorrowerUpdate struct {
	Name            *string
	Email           *string
	Phone           *string
	MembershipStart *time.Time
}

// Repository persists items and borrowers. Implementations must make
// CheckoutItem and ReturnItem linearizable per item: two concurrent checkouts
// of the same available item may not both succeed.
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, upd ItemUpdate) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	// CheckoutItem atomically moves an available item onto loan. It returns
	// ErrNotFound if the item or borrower is absent and ErrConflict if the
	// item is already checked out.
	CheckoutItem(ctx context.Context, itemID, borrowerID uuid.UUID, dueAt time.Time) (*Item, error)
	// ReturnItem atomically clears an item's loan. It returns ErrNotFound if
	// the item is absent and ErrNotCheckedOut if it is already available.
	ReturnItem(ctx context.Context, itemID uuid.UUID) (*Item, error)

	// CountItems reads one consistent snapshot of the inventory as of now.
	CountItems(ctx context.Context, now time.Time) (Counts, error)

	// ItemHistory returns the item's circulation events, most recent first.
	ItemHistory(ctx context.Context, itemID uuid.UUID, limit int) ([]journal.Entry, error)

	CreateBorrower(ctx context.Context, b *Borrower) error
	GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error)
	ListBorrowers(ctx context.Context) ([]Borrower, error)
	UpdateBorrower(ctx context.Context, id uuid.UUID, upd BorrowerUpdate) (*Borrower, error)
	// DeleteBorrower rejects deletion with ErrConflict while any item still
	// references the borrower.
	DeleteBorrower(ctx context.Context, id uuid.UUID) error
}
