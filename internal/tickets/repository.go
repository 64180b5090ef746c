package tickets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeline/lodgeline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tickets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, customer_id, property_id, title, description, priority, status, assignee_id, created_at, updated_at, closed_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var assignee *int64
	var closedAt *time.Time
	err := row.Scan(&t.ID, &t.CustomerID, &t.PropertyID, &t.Title, &t.Description, &t.Priority, &t.Status, &assignee, &t.CreatedAt, &t.UpdatedAt, &closedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, shared.ErrNotFound
		}
		return Ticket{}, err
	}
	if assignee != nil {
		t.AssigneeID = *assignee
	}
	if closedAt != nil {
		t.ClosedAt = *closedAt
	}
	return t, nil
}

// ListOpen returns every ticket not yet closed, most urgent first.
func (r *Repository) ListOpen(ctx context.Context) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE status <> 'closed'
		ORDER BY CASE priority
			WHEN 'urgent' THEN 0
			WHEN 'high' THEN 1
			WHEN 'normal' THEN 2
			ELSE 3
		END, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListByCustomer returns a customer's tickets, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID int64) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
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

// Get fetches a ticket by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

// Create inserts a new open ticket.
func (r *Repository) Create(ctx context.Context, customerID, propertyID int64, title, description, priority string) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tickets (customer_id, property_id, title, description, priority, status)
		VALUES ($1, $2, $3, $4, $5, 'open')
		RETURNING `+ticketColumns,
		customerID, propertyID, title, description, priority,
	)
	return scanTicket(row)
}

// Assign sets the assignee and moves the ticket into in_progress.
func (r *Repository) Assign(ctx context.Context, id, assigneeID int64) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets
		SET assignee_id = $2, status = 'in_progress', updated_at = now()
		WHERE id = $1 AND status <> 'closed'
		RETURNING `+ticketColumns,
		id, assigneeID,
	)
	return scanTicket(row)
}

// Close stamps the ticket closed.
func (r *Repository) Close(ctx context.Context, id int64) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tickets
		SET status = 'closed', closed_at = now(), updated_at = now()
		WHERE id = $1 AND status <> 'closed'
		RETURNING `+ticketColumns,
		id,
	)
	return scanTicket(row)
}

func collect(rows pgx.Rows) ([]Ticket, error) {
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
