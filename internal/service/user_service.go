// internal/service/user_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"userstore/internal/domain"
	"userstore/internal/repository"
	"userstore/internal/util"
	"userstore/pkg/db"

	"github.com/jmoiron/sqlx"
)

// TxFunc is a unit of work. Repository calls made with tx join the surrounding transaction.
type TxFunc func(ctx context.Context, tx repository.DBExecutor) error

// UserService defines the user operations exposed to callers. Writes each run
// in their own transaction; single-statement reads use the pool directly.
type UserService interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
	FindAllUsers(ctx context.Context) ([]domain.User, error)
	CountUsers(ctx context.Context) (int64, error)
	SearchUsers(ctx context.Context, term string) ([]domain.User, error)
	GetUsersByDateRange(ctx context.Context, start, end time.Time) ([]domain.User, error)
	ExecuteTransaction(ctx context.Context, fn TxFunc) error
	DeleteAllUsers(ctx context.Context) error
}

// userService implements the UserService interface.
type userService struct {
	dbBeginner db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	userRepo   repository.UserRepository
	logger     *slog.Logger
}

// NewUserService creates a new instance of UserService.
func NewUserService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	userRepo repository.UserRepository,
	logger *slog.Logger,
) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// CreateUser persists a new user and returns it with ID and timestamps set.
// A duplicate username or email surfaces the driver's error; check it with
// util.IsUniqueViolation. On any failure, including a failed commit, the user
// is left unpersisted.
func (s *userService) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || !user.IsValid() {
		return nil, util.ErrInvalidInput
	}

	err := s.inTx(ctx, func(ctx context.Context, tx repository.DBExecutor) error {
		return s.userRepo.CreateUser(ctx, tx, user)
	})
	if err != nil {
		// RETURNING may have filled in identity for a row that was rolled back.
		user.Detach()
		s.logger.ErrorContext(ctx, "Failed to create user", "username", user.Username, "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// FindByID returns the user or nil when no user has that ID.
func (s *userService) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetUserByID(ctx, s.dbExecutor, id)
}

// FindByUsername returns the user or nil when the username is unknown.
func (s *userService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.userRepo.GetUserByUsername(ctx, s.dbExecutor, username)
}

// FindByEmail returns the user or nil when the email is unknown.
func (s *userService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.GetUserByEmail(ctx, s.dbExecutor, email)
}

// UpdateUser writes all mutable fields and refreshes UpdatedAt on the entity.
// An unknown ID fails with *util.UserNotFoundError. UpdatedAt only changes
// once the update has committed.
func (s *userService) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil || !user.IsValid() {
		return nil, util.ErrInvalidInput
	}

	prevUpdatedAt := user.UpdatedAt
	err := s.inTx(ctx, func(ctx context.Context, tx repository.DBExecutor) error {
		return s.userRepo.UpdateUser(ctx, tx, user)
	})
	if err != nil {
		user.UpdatedAt = prevUpdatedAt
		s.logger.ErrorContext(ctx, "Failed to update user", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "User updated", "user_id", user.ID)
	return user, nil
}

// DeleteUser removes the user and reports whether anything was removed.
func (s *userService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := s.inTx(ctx, func(ctx context.Context, tx repository.DBExecutor) error {
		var err error
		removed, err = s.userRepo.DeleteUser(ctx, tx, id)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete user", "user_id", id, "error", err)
		return false, fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "User delete processed", "user_id", id, "removed", removed)
	return removed, nil
}

func (s *userService) FindAllUsers(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.ListUsers(ctx, s.dbExecutor)
}

func (s *userService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.CountUsers(ctx, s.dbExecutor)
}

// SearchUsers does not special-case the empty term: it matches everyone.
func (s *userService) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	return s.userRepo.SearchUsers(ctx, s.dbExecutor, term)
}

// GetUsersByDateRange returns users created within [start, end], oldest first.
func (s *userService) GetUsersByDateRange(ctx context.Context, start, end time.Time) ([]domain.User, error) {
	return s.userRepo.ListUsersCreatedBetween(ctx, s.dbExecutor, start, end)
}

// ExecuteTransaction runs fn in a single transaction. If fn fails or panics,
// everything it did is rolled back; its error is returned exactly as produced
// and a panic is re-raised.
func (s *userService) ExecuteTransaction(ctx context.Context, fn TxFunc) error {
	err := s.inTx(ctx, fn)
	if err != nil {
		s.logger.DebugContext(ctx, "Transaction rolled back", "error", err)
	}
	return err
}

// DeleteAllUsers clears the users table. Meant for test and state resets only.
func (s *userService) DeleteAllUsers(ctx context.Context) error {
	var n int64
	err := s.inTx(ctx, func(ctx context.Context, tx repository.DBExecutor) error {
		var err error
		n, err = s.userRepo.DeleteAllUsers(ctx, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete all users: %w", err)
	}
	s.logger.WarnContext(ctx, "All users deleted", "count", n)
	return nil
}

func (s *userService) inTx(ctx context.Context, fn TxFunc) error {
	return db.WithTx(ctx, s.dbBeginner, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, tx)
	})
}
