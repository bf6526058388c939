// internal/inventory/domain.go
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Loan holds the lending half of an item's state. An Item with a nil Loan is
// available; a non-nil Loan always carries both the borrower and the due
// instant, so no partial combination of the two is representable.
type Loan struct {
	BorrowerID uuid.UUID `json:"borrower_id"`
	DueAt      time.Time `json:"due_at"`
}

// Item is a lendable unit.
type Item struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	ISBN          string    `json:"isbn,omitempty"`
	PublishedYear int       `json:"published_year,omitempty"`
	Loan          *Loan     `json:"loan,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CheckedOut reports whether the item is currently on loan.
func (i *Item) CheckedOut() bool { return i.Loan != nil }

// OverdueAt reports whether the item is on loan with a due instant strictly
// before now.
func (i *Item) OverdueAt(now time.Time) bool {
	return i.Loan != nil && i.Loan.DueAt.Before(now)
}

// Borrower is an entity permitted to check out items.
type Borrower struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	MembershipStart time.Time `json:"membership_start"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Counts is one consistent snapshot of the inventory, taken in a single query
// so the three numbers cannot tear. CheckedOut + available always equals Total.
type Counts struct {
	Total      int `db:"total"`
	CheckedOut int `db:"checked_out"`
	Overdue    int `db:"overdue"`
}
