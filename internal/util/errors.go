// internal/util/errors.go
package util

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Common application-specific errors.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input provided")
	ErrUserNotFound = errors.New("user not found")
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique constraint failure.
const uniqueViolation = "23505"

// UserNotFoundError reports an update that matched no row.
type UserNotFoundError struct {
	ID int64
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user with ID %d not found", e.ID)
}

// Is lets errors.Is(err, ErrUserNotFound) match.
func (e *UserNotFoundError) Is(target error) bool {
	return target == ErrUserNotFound
}

// IsError reports whether err or anything it wraps is target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// IsUniqueViolation reports whether err carries a PostgreSQL unique constraint
// failure from either lib/pq or pgx. The driver error itself is left intact.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
