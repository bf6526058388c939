// internal/inventory/memory.go
package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelfwise/internal/clock"
	"shelfwise/internal/journal"
)

// MemoryRepository is an in-process Repository used by tests. It enforces the
// same transition preconditions as the Postgres implementation, under one
// mutex so checkout/return stay linearizable per item.
type MemoryRepository struct {
	mu        sync.Mutex
	clk       clock.Clock
	items     map[uuid.UUID]*Item
	borrowers map[uuid.UUID]*Borrower
	events    []journal.Entry
	nextEvent int64
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(clk clock.Clock) *MemoryRepository {
	return &MemoryRepository{
		clk:       clk,
		items:     make(map[uuid.UUID]*Item),
		borrowers: make(map[uuid.UUID]*Borrower),
		nextEvent: 1,
	}
}

func (r *MemoryRepository) CreateItem(ctx context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.ID = uuid.New()
	now := r.clk.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getItemLocked(id)
}

func (r *MemoryRepository) getItemLocked(id uuid.UUID) (*Item, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	if item.Loan != nil {
		loan := *item.Loan
		cp.Loan = &loan
	}
	return &cp, nil
}

func (r *MemoryRepository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []Item
	for _, item := range r.items {
		if filter.CheckedOut != nil && item.CheckedOut() != *filter.CheckedOut {
			continue
		}
		if filter.OverdueBefore != nil && !item.OverdueAt(*filter.OverdueBefore) {
			continue
		}
		if filter.BorrowerID != nil && (item.Loan == nil || item.Loan.BorrowerID != *filter.BorrowerID) {
			continue
		}
		cp := *item
		if item.Loan != nil {
			loan := *item.Loan
			cp.Loan = &loan
		}
		items = append(items, cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items, nil
}

func (r *MemoryRepository) UpdateItem(ctx context.Context, id uuid.UUID, upd ItemUpdate) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.Author != nil {
		item.Author = *upd.Author
	}
	if upd.ISBN != nil {
		item.ISBN = *upd.ISBN
	}
	if upd.PublishedYear != nil {
		item.PublishedYear = *upd.PublishedYear
	}
	item.UpdatedAt = r.clk.Now()
	return r.getItemLocked(id)
}

func (r *MemoryRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.CheckedOut() {
		return fmt.Errorf("%w: item is checked out", ErrConflict)
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) CheckoutItem(ctx context.Context, itemID, borrowerID uuid.UUID, dueAt time.Time) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := r.borrowers[borrowerID]; !ok {
		return nil, fmt.Errorf("%w: borrower %s", ErrNotFound, borrowerID)
	}
	if item.CheckedOut() {
		return nil, fmt.Errorf("%w: item already checked out", ErrConflict)
	}

	item.Loan = &Loan{BorrowerID: borrowerID, DueAt: dueAt}
	item.UpdatedAt = r.clk.Now()
	r.appendEventLocked(itemID, borrowerID, journal.ActionCheckout)
	return r.getItemLocked(itemID)
}

func (r *MemoryRepository) ReturnItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	if !item.CheckedOut() {
		return nil, ErrNotCheckedOut
	}

	borrowerID := item.Loan.BorrowerID
	item.Loan = nil
	item.UpdatedAt = r.clk.Now()
	r.appendEventLocked(itemID, borrowerID, journal.ActionReturn)
	return r.getItemLocked(itemID)
}

func (r *MemoryRepository) CountItems(ctx context.Context, now time.Time) (Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts Counts
	for _, item := range r.items {
		counts.Total++
		if item.CheckedOut() {
			counts.CheckedOut++
		}
		if item.OverdueAt(now) {
			counts.Overdue++
		}
	}
	return counts, nil
}

func (r *MemoryRepository) ItemHistory(ctx context.Context, itemID uuid.UUID, limit int) ([]journal.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[itemID]; !ok {
		return nil, ErrNotFound
	}
	if limit <= 0 {
		limit = 50
	}

	var entries []journal.Entry
	for i := len(r.events) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.events[i].ItemID == itemID {
			entries = append(entries, r.events[i])
		}
	}
	return entries, nil
}

func (r *MemoryRepository) appendEventLocked(itemID, borrowerID uuid.UUID, action journal.Action) {
	r.events = append(r.events, journal.Entry{
		ID:         r.nextEvent,
		ItemID:     itemID,
		BorrowerID: borrowerID,
		Action:     action,
		OccurredAt: r.clk.Now(),
	})
	r.nextEvent++
}

func (r *MemoryRepository) CreateBorrower(ctx context.Context, b *Borrower) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b.ID = uuid.New()
	now := r.clk.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	cp := *b
	r.borrowers[b.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.borrowers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) ListBorrowers(ctx context.Context) ([]Borrower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var borrowers []Borrower
	for _, b := range r.borrowers {
		borrowers = append(borrowers, *b)
	}
	sort.Slice(borrowers, func(i, j int) bool {
		if !borrowers[i].CreatedAt.Equal(borrowers[j].CreatedAt) {
			return borrowers[i].CreatedAt.Before(borrowers[j].CreatedAt)
		}
		return borrowers[i].ID.String() < borrowers[j].ID.String()
	})
	return borrowers, nil
}

func (r *MemoryRepository) UpdateBorrower(ctx context.Context, id uuid.UUID, upd BorrowerUpdate) (*Borrower, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.borrowers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		b.Name = *upd.Name
	}
	if upd.Email != nil {
		b.Email = *upd.Email
	}
	if upd.Phone != nil {
		b.Phone = *upd.Phone
	}
	if upd.MembershipStart != nil {
		b.MembershipStart = *upd.MembershipStart
	}
	b.UpdatedAt = r.clk.Now()
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) DeleteBorrower(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.borrowers[id]; !ok {
		return ErrNotFound
	}
	for _, item := range r.items {
		if item.Loan != nil && item.Loan.BorrowerID == id {
			return fmt.Errorf("%w: borrower has items checked out", ErrConflict)
		}
	}
	delete(r.borrowers, id)
	return nil
}
