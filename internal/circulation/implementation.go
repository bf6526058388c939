// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelfwise/internal/clock"
	"shelfwise/internal/inventory"
	"shelfwise/internal/journal"
)

// service implements the Service interface.
type service struct {
	repo          inventory.Repository
	clk           clock.Clock
	defaultPeriod int
	log           *slog.Logger
	tracer        trace.Tracer
}

// NewService creates a circulation engine. defaultPeriodDays is used when a
// checkout does not name a period.
func NewService(repo inventory.Repository, clk clock.Clock, defaultPeriodDays int, log *slog.Logger) Service {
	return &service{
		repo:          repo,
		clk:           clk,
		defaultPeriod: defaultPeriodDays,
		log:           log,
		tracer:        otel.Tracer("shelfwise/circulation"),
	}
}

func (s *service) Checkout(ctx context.Context, itemID, borrowerID uuid.UUID, periodDays int) (*inventory.Item, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.checkout",
		trace.WithAttributes(
			attribute.String("item.id", itemID.String()),
			attribute.String("borrower.id", borrowerID.String()),
			attribute.Int("period.days", periodDays),
		),
	)
	defer span.End()

	if periodDays == 0 {
		periodDays = s.defaultPeriod
	}
	if periodDays < 0 {
		return nil, fmt.Errorf("%w: checkout period must be positive, got %d", inventory.ErrValidation, periodDays)
	}

	// Surface a missing borrower before touching the item. The conditional
	// update below still owns the race on the item itself.
	if _, err := s.repo.GetBorrower(ctx, borrowerID); err != nil {
		return nil, fmt.Errorf("resolve borrower: %w", err)
	}

	dueAt := s.clk.Now().AddDate(0, 0, periodDays)
	item, err := s.repo.CheckoutItem(ctx, itemID, borrowerID, dueAt)
	if err != nil {
		return nil, err
	}

	s.log.Info("item checked out",
		"item_id", itemID, "borrower_id", borrowerID, "due_at", dueAt)
	return item, nil
}

func (s *service) Return(ctx context.Context, itemID uuid.UUID) (*inventory.Item, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("item.id", itemID.String())),
	)
	defer span.End()

	item, err := s.repo.ReturnItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	s.log.Info("item returned", "item_id", itemID)
	return item, nil
}

func (s *service) ClassifyOverdue(ctx context.Context, now time.Time) ([]inventory.Item, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.classify_overdue")
	defer span.End()

	items, err := s.repo.ListItems(ctx, inventory.ItemFilter{OverdueBefore: &now})
	if err != nil {
		return nil, fmt.Errorf("list overdue items: %w", err)
	}

	span.SetAttributes(attribute.Int("overdue.count", len(items)))
	return items, nil
}

func (s *service) ListCheckedOut(ctx context.Context) ([]inventory.Item, error) {
	checkedOut := true
	items, err := s.repo.ListItems(ctx, inventory.ItemFilter{CheckedOut: &checkedOut})
	if err != nil {
		return nil, fmt.Errorf("list checked-out items: %w", err)
	}
	return items, nil
}

func (s *service) Aggregate(ctx context.Context, now time.Time) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.aggregate")
	defer span.End()

	counts, err := s.repo.CountItems(ctx, now)
	if err != nil {
		return Summary{}, fmt.Errorf("count items: %w", err)
	}

	return Summary{
		GeneratedAt: now,
		Total:       counts.Total,
		Available:   counts.Total - counts.CheckedOut,
		CheckedOut:  counts.CheckedOut,
		Overdue:     counts.Overdue,
	}, nil
}

func (s *service) History(ctx context.Context, itemID uuid.UUID, limit int) ([]journal.Entry, error) {
	return s.repo.ItemHistory(ctx, itemID, limit)
}
