package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeline/lodgeline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, email, plan, status, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Plan, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// List returns a page of customers ordered by name plus the total count.
func (r *Repository) List(ctx context.Context, page shared.Pagination) ([]Customer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+customerColumns+` FROM customers
		ORDER BY name
		LIMIT $1 OFFSET $2`,
		page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Get fetches a customer by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

// Create inserts a new active customer.
func (r *Repository) Create(ctx context.Context, name, email, plan string) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, plan, status)
		VALUES ($1, $2, $3, 'active')
		RETURNING `+customerColumns,
		name, email, plan,
	)
	c, err := scanCustomer(row)
	if err != nil {
		return Customer{}, mapConstraint(err)
	}
	return c, nil
}

// Update replaces a customer's profile and plan.
func (r *Repository) Update(ctx context.Context, id int64, name, email, plan string) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, email = $3, plan = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, name, email, plan,
	)
	c, err := scanCustomer(row)
	if err != nil {
		return Customer{}, mapConstraint(err)
	}
	return c, nil
}

// SetStatus transitions a customer between active and suspended.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) (Customer, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE customers
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, status,
	)
	return scanCustomer(row)
}

// Delete removes a customer by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_customers_email" {
		return shared.ErrConflict
	}
	return err
}
