// internal/repository/postgres/user_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"userstore/internal/domain"
	"userstore/internal/repository"
	"userstore/internal/util"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, first_name, last_name, created_at, updated_at`

// UserRepository implements repository.UserRepository for PostgreSQL.
type UserRepository struct {
	// Methods receive a DBExecutor, so the same repository serves both pooled
	// connections and transactions.
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &UserRepository{}
}

// CreateUser inserts a new user using the provided DBExecutor. The database
// assigns the ID and both timestamps. Unique violations come back wrapped but
// otherwise untouched; see util.IsUniqueViolation.
func (r *UserRepository) CreateUser(ctx context.Context, q repository.DBExecutor, user *domain.User) error {
	query := `INSERT INTO users (username, email, first_name, last_name, created_at, updated_at)
              VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
              RETURNING id, created_at, updated_at`
	err := q.QueryRowContext(ctx, query, user.Username, user.Email, user.FirstName, user.LastName).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID using the provided DBExecutor.
func (r *UserRepository) GetUserByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.User, error) {
	user, err := r.getOne(ctx, q, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username using the provided DBExecutor.
func (r *UserRepository) GetUserByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.User, error) {
	user, err := r.getOne(ctx, q, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username '%s': %w", username, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email using the provided DBExecutor.
func (r *UserRepository) GetUserByEmail(ctx context.Context, q repository.DBExecutor, email string) (*domain.User, error) {
	user, err := r.getOne(ctx, q, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email '%s': %w", email, err)
	}
	return user, nil
}

// getOne maps a single row; no row yields (nil, nil).
func (r *UserRepository) getOne(ctx context.Context, q repository.DBExecutor, query string, arg interface{}) (*domain.User, error) {
	var user domain.User
	if err := q.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser writes every mutable field by ID and stores the new updated_at
// on the entity. updated_at is forced past its previous value so it advances
// even for two updates inside one transaction.
func (r *UserRepository) UpdateUser(ctx context.Context, q repository.DBExecutor, user *domain.User) error {
	query := `UPDATE users
              SET username = $1, email = $2, first_name = $3, last_name = $4,
                  updated_at = GREATEST(CURRENT_TIMESTAMP, updated_at + INTERVAL '1 microsecond')
              WHERE id = $5
              RETURNING updated_at`
	var updatedAt time.Time
	err := q.QueryRowContext(ctx, query, user.Username, user.Email, user.FirstName, user.LastName, user.ID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &util.UserNotFoundError{ID: user.ID}
		}
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	user.UpdatedAt = updatedAt
	return nil
}

// DeleteUser deletes a user by ID and reports whether a row was removed.
func (r *UserRepository) DeleteUser(ctx context.Context, q repository.DBExecutor, id int64) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after deleting user %d: %w", id, err)
	}
	return rowsAffected > 0, nil
}

// ListUsers retrieves all users ordered by ID.
func (r *UserRepository) ListUsers(ctx context.Context, q repository.DBExecutor) ([]domain.User, error) {
	users := []domain.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	if err := q.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CountUsers returns the total number of users.
func (r *UserRepository) CountUsers(ctx context.Context, q repository.DBExecutor) (int64, error) {
	var count int64
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// SearchUsers matches term as a case-insensitive substring of username, email,
// first_name or last_name, ordered by username. The term is not escaped, so an
// empty term matches every user and % or _ act as wildcards.
func (r *UserRepository) SearchUsers(ctx context.Context, q repository.DBExecutor, term string) ([]domain.User, error) {
	users := []domain.User{}
	query := `SELECT ` + userColumns + ` FROM users
              WHERE username ILIKE $1 OR email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1
              ORDER BY username`
	if err := q.SelectContext(ctx, &users, query, "%"+term+"%"); err != nil {
		return nil, fmt.Errorf("failed to search users for '%s': %w", term, err)
	}
	return users, nil
}

// ListUsersCreatedBetween returns users whose created_at falls within [start, end].
func (r *UserRepository) ListUsersCreatedBetween(ctx context.Context, q repository.DBExecutor, start, end time.Time) ([]domain.User, error) {
	users := []domain.User{}
	query := `SELECT ` + userColumns + ` FROM users
              WHERE created_at BETWEEN $1 AND $2
              ORDER BY created_at`
	if err := q.SelectContext(ctx, &users, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list users created between %s and %s: %w",
			start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}
	return users, nil
}

// DeleteAllUsers deletes all users. Intended for test and state resets.
func (r *UserRepository) DeleteAllUsers(ctx context.Context, q repository.DBExecutor) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete all users: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected after deleting all users: %w", err)
	}
	return rowsAffected, nil
}
