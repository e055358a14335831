// internal/repository/user_repo.go
package repository

import (
	"context"
	"time"

	"userstore/internal/domain"
)

// UserRepository defines the interface for user data operations.
// Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	// CreateUser inserts the user and fills in its ID and timestamps.
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	// GetUserByID retrieves a user by their ID.
	GetUserByID(ctx context.Context, q DBExecutor, id int64) (*domain.User, error)
	// GetUserByUsername retrieves a user by their username.
	GetUserByUsername(ctx context.Context, q DBExecutor, username string) (*domain.User, error)
	// GetUserByEmail retrieves a user by their email.
	GetUserByEmail(ctx context.Context, q DBExecutor, email string) (*domain.User, error)
	// UpdateUser writes every mutable field and refreshes UpdatedAt.
	// It fails with *util.UserNotFoundError when the ID matches no row.
	UpdateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	// DeleteUser removes a user and reports whether a row was removed.
	DeleteUser(ctx context.Context, q DBExecutor, id int64) (bool, error)
	// ListUsers returns every user ordered by ID.
	ListUsers(ctx context.Context, q DBExecutor) ([]domain.User, error)
	// CountUsers returns the number of users.
	CountUsers(ctx context.Context, q DBExecutor) (int64, error)
	// SearchUsers matches term case-insensitively against username, email and both names.
	SearchUsers(ctx context.Context, q DBExecutor, term string) ([]domain.User, error)
	// ListUsersCreatedBetween returns users created in [start, end], oldest first.
	ListUsersCreatedBetween(ctx context.Context, q DBExecutor, start, end time.Time) ([]domain.User, error)
	// DeleteAllUsers removes every user and returns how many rows went away.
	DeleteAllUsers(ctx context.Context, q DBExecutor) (int64, error)
}
