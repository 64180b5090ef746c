package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeline/lodgeline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, customer_id, amount_cents, currency, status, reference, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var paidAt *time.Time
	err := row.Scan(&p.ID, &p.CustomerID, &p.AmountCents, &p.Currency, &p.Status, &p.Reference, &paidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, shared.ErrNotFound
		}
		return Payment{}, err
	}
	if paidAt != nil {
		p.PaidAt = *paidAt
	}
	return p, nil
}

// ListByCustomer returns a customer's payments, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE customer_id = $1
		ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListPending returns pending payments older than the cutoff, for the
// reminder job.
func (r *Repository) ListPending(ctx context.Context, olderThan time.Time) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at`,
		olderThan,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Get fetches a payment by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

// Create inserts a payment record.
func (r *Repository) Create(ctx context.Context, customerID, amountCents int64, currency, status, reference string, paidAt *time.Time) (Payment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO payments (customer_id, amount_cents, currency, status, reference, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		customerID, amountCents, currency, status, reference, paidAt,
	)
	return scanPayment(row)
}

// SetStatus transitions a payment. paidAt is only stored on the move
// into received.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string, paidAt *time.Time) (Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, paid_at = COALESCE($3, paid_at), updated_at = now()
		WHERE id = $1
		RETURNING `+paymentColumns,
		id, status, paidAt,
	)
	return scanPayment(row)
}

func collect(rows pgx.Rows) ([]Payment, error) {
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
