package overview

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregate counts from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CustomerCounts(ctx context.Context) (int, int, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'suspended')
		FROM customers`
	var active, suspended int
	if err := r.pool.QueryRow(ctx, query).Scan(&active, &suspended); err != nil {
		return 0, 0, err
	}
	return active, suspended, nil
}

func (r *Repository) PaymentSummary(ctx context.Context, since time.Time) (int, int64, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'received' AND paid_at >= $1), 0)
		FROM payments`
	var pending int
	var received int64
	if err := r.pool.QueryRow(ctx, query, since).Scan(&pending, &received); err != nil {
		return 0, 0, err
	}
	return pending, received, nil
}

func (r *Repository) TicketCounts(ctx context.Context) (int, int, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'closed'),
			COUNT(*) FILTER (WHERE status <> 'closed' AND priority = 'urgent')
		FROM tickets`
	var open, urgent int
	if err := r.pool.QueryRow(ctx, query).Scan(&open, &urgent); err != nil {
		return 0, 0, err
	}
	return open, urgent, nil
}
