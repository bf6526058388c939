// internal/inventory/postgres.go
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelfwise/internal/journal"
)

const pgForeignKeyViolation = "23503"

// PostgresRepository implements Repository against a relational store. The
// checkout transition is a conditional update so the precondition check and
// the write are one atomic statement.
type PostgresRepository struct {
	db      *sqlx.DB
	journal *journal.Journal
	tracer  trace.Tracer
}

func NewPostgresRepository(db *sqlx.DB, jnl *journal.Journal) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		journal: jnl,
		tracer:  otel.Tracer("shelfwise/inventory"),
	}
}

type itemRow struct {
	ID            uuid.UUID      `db:"id"`
	Title         string         `db:"title"`
	Author        string         `db:"author"`
	ISBN          sql.NullString `db:"isbn"`
	PublishedYear sql.NullInt32  `db:"published_year"`
	CheckedOut    bool           `db:"checked_out"`
	DueAt         sql.NullTime   `db:"due_at"`
	BorrowerID    uuid.NullUUID  `db:"borrower_id"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r itemRow) toItem() Item {
	item := Item{
		ID:        r.ID,
		Title:     r.Title,
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ISBN.Valid {
		item.ISBN = r.ISBN.String
	}
	if r.PublishedYear.Valid {
		item.PublishedYear = int(r.PublishedYear.Int32)
	}
	if r.CheckedOut {
		item.Loan = &Loan{
			BorrowerID: r.BorrowerID.UUID,
			DueAt:      r.DueAt.Time,
		}
	}
	return item
}

const itemColumns = `id, title, author, isbn, published_year, checked_out, due_at, borrower_id, created_at, updated_at`

func (r *PostgresRepository) CreateItem(ctx context.Context, item *Item) error {
	item.ID = uuid.New()

	var isbn sql.NullString
	if item.ISBN != "" {
		isbn = sql.NullString{String: item.ISBN, Valid: true}
	}
	var year sql.NullInt32
	if item.PublishedYear != 0 {
		year = sql.NullInt32{Int32: int32(item.PublishedYear), Valid: true}
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO items (id, title, author, isbn, published_year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, item.ID, item.Title, item.Author, isbn, year).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	var row itemRow
	err := r.db.GetContext(ctx, &row, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	item := row.toItem()
	return &item, nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var conds []string
	var args []interface{}

	if filter.CheckedOut != nil {
		args = append(args, *filter.CheckedOut)
		conds = append(conds, fmt.Sprintf("checked_out = $%d", len(args)))
	}
	if filter.OverdueBefore != nil {
		args = append(args, *filter.OverdueBefore)
		conds = append(conds, fmt.Sprintf("checked_out AND due_at < $%d", len(args)))
	}
	if filter.BorrowerID != nil {
		args = append(args, *filter.BorrowerID)
		conds = append(conds, fmt.Sprintf("borrower_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toItem())
	}
	return items, nil
}

func (r *PostgresRepository) UpdateItem(ctx context.Context, id uuid.UUID, upd ItemUpdate) (*Item, error) {
	var sets []string
	var args []interface{}

	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Author != nil {
		add("author", *upd.Author)
	}
	if upd.ISBN != nil {
		add("isbn", sql.NullString{String: *upd.ISBN, Valid: *upd.ISBN != ""})
	}
	if upd.PublishedYear != nil {
		add("published_year", sql.NullInt32{Int32: int32(*upd.PublishedYear), Valid: *upd.PublishedYear != 0})
	}

	if len(sets) == 0 {
		return r.GetItem(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE items SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetItem(ctx, id)
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1 AND NOT checked_out`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	exists, err := r.itemExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: item is checked out", ErrConflict)
}

// CheckoutItem performs the check-and-set in one statement: the WHERE clause
// carries the availability precondition, so two concurrent checkouts of the
// same item cannot both match.
func (r *PostgresRepository) CheckoutItem(ctx context.Context, itemID, borrowerID uuid.UUID, dueAt time.Time) (*Item, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.checkout",
		trace.WithAttributes(
			attribute.String("item.id", itemID.String()),
			attribute.String("borrower.id", borrowerID.String()),
		),
	)
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE items
		SET checked_out = TRUE, due_at = $2, borrower_id = $3, updated_at = NOW()
		WHERE id = $1 AND NOT checked_out
	`, itemID, dueAt, borrowerID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgForeignKeyViolation {
			return nil, fmt.Errorf("%w: borrower %s", ErrNotFound, borrowerID)
		}
		return nil, fmt.Errorf("checkout item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		exists, err := r.itemExistsTx(ctx, tx, itemID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return nil, fmt.Errorf("%w: item already checked out", ErrConflict)
	}

	entry := journal.Entry{
		ItemID:     itemID,
		BorrowerID: borrowerID,
		Action:     journal.ActionCheckout,
	}
	if err := r.journal.AppendTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	return r.GetItem(ctx, itemID)
}

func (r *PostgresRepository) ReturnItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	ctx, span := r.tracer.Start(ctx, "inventory.return",
		trace.WithAttributes(attribute.String("item.id", itemID.String())),
	)
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Row lock so the borrower id read for the journal and the clearing
	// update see the same loan.
	var row itemRow
	err = tx.GetContext(ctx, &row, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", err)
	}
	if !row.CheckedOut {
		return nil, ErrNotCheckedOut
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE items
		SET checked_out = FALSE, due_at = NULL, borrower_id = NULL, updated_at = NOW()
		WHERE id = $1
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("return item: %w", err)
	}

	entry := journal.Entry{
		ItemID:     itemID,
		BorrowerID: row.BorrowerID.UUID,
		Action:     journal.ActionReturn,
	}
	if err := r.journal.AppendTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit return: %w", err)
	}
	return r.GetItem(ctx, itemID)
}

// CountItems computes all three counts in a single statement, so they come
// from one snapshot and cannot disagree with each other.
func (r *PostgresRepository) CountItems(ctx context.Context, now time.Time) (Counts, error) {
	var counts Counts
	err := r.db.GetContext(ctx, &counts, `
		SELECT COUNT(*)                                              AS total,
		       COUNT(*) FILTER (WHERE checked_out)                   AS checked_out,
		       COUNT(*) FILTER (WHERE checked_out AND due_at < $1)   AS overdue
		FROM items
	`, now)
	if err != nil {
		return Counts{}, fmt.Errorf("count items: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) ItemHistory(ctx context.Context, itemID uuid.UUID, limit int) ([]journal.Entry, error) {
	if _, err := r.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return r.journal.ForItem(ctx, itemID, limit)
}

type borrowerRow struct {
	ID              uuid.UUID      `db:"id"`
	Name            string         `db:"name"`
	Email           string         `db:"email"`
	Phone           sql.NullString `db:"phone"`
	MembershipStart time.Time      `db:"membership_start"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r borrowerRow) toBorrower() Borrower {
	b := Borrower{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		MembershipStart: r.MembershipStart,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Phone.Valid {
		b.Phone = r.Phone.String
	}
	return b
}

const borrowerColumns = `id, name, email, phone, membership_start, created_at, updated_at`

func (r *PostgresRepository) CreateBorrower(ctx context.Context, b *Borrower) error {
	b.ID = uuid.New()

	var phone sql.NullString
	if b.Phone != "" {
		phone = sql.NullString{String: b.Phone, Valid: true}
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO borrowers (id, name, email, phone, membership_start)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, b.ID, b.Name, b.Email, phone, b.MembershipStart).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert borrower: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	var row borrowerRow
	err := r.db.GetContext(ctx, &row, `SELECT `+borrowerColumns+` FROM borrowers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get borrower: %w", err)
	}
	b := row.toBorrower()
	return &b, nil
}

func (r *PostgresRepository) ListBorrowers(ctx context.Context) ([]Borrower, error) {
	var rows []borrowerRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+borrowerColumns+` FROM borrowers ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list borrowers: %w", err)
	}
	borrowers := make([]Borrower, 0, len(rows))
	for _, row := range rows {
		borrowers = append(borrowers, row.toBorrower())
	}
	return borrowers, nil
}

func (r *PostgresRepository) UpdateBorrower(ctx context.Context, id uuid.UUID, upd BorrowerUpdate) (*Borrower, error) {
	var sets []string
	var args []interface{}

	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Phone != nil {
		add("phone", sql.NullString{String: *upd.Phone, Valid: *upd.Phone != ""})
	}
	if upd.MembershipStart != nil {
		add("membership_start", *upd.MembershipStart)
	}

	if len(sets) == 0 {
		return r.GetBorrower(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE borrowers SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update borrower: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetBorrower(ctx, id)
}

func (r *PostgresRepository) DeleteBorrower(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM borrowers WHERE id = $1`, id)
	if err != nil {
		// The items.borrower_id foreign key blocks deletion while any
		// checkout is outstanding.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("%w: borrower has items checked out", ErrConflict)
		}
		return fmt.Errorf("delete borrower: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) itemExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check item exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) itemExistsTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check item exists: %w", err)
	}
	return exists, nil
}
