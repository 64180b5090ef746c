package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgeline/lodgeline/internal/shared"
)

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, permissions, is_system, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var r Role
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Permissions, &r.IsSystem, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return r, nil
}

// List returns all roles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Get fetches a role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// GetByName fetches a role by exact name.
func (r *Repository) GetByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	return scanRole(row)
}

// Create inserts a new custom role.
func (r *Repository) Create(ctx context.Context, name, description string, permissions []string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, permissions, is_system)
		VALUES ($1, $2, $3, FALSE)
		RETURNING `+roleColumns,
		name, description, permissions,
	)
	role, err := scanRole(row)
	if err != nil {
		return Role{}, mapConstraint(err)
	}
	return role, nil
}

// Update replaces a role's name, description and permission set.
func (r *Repository) Update(ctx context.Context, id int64, name, description string, permissions []string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+roleColumns,
		id, name, description, permissions,
	)
	role, err := scanRole(row)
	if err != nil {
		return Role{}, mapConstraint(err)
	}
	return role, nil
}

// Delete removes a role by ID. Returns shared.ErrNotFound if nothing
// was deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
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
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_roles_name" {
		return shared.ErrConflict
	}
	return err
}
