// internal/domain/user.go
package domain

import (
	"fmt"
	"time"

	"userstore/internal/util"
)

// User represents one account record.
type User struct {
	ID        int64     `db:"id" json:"id"`                 // BIGSERIAL, zero until persisted
	Username  string    `db:"username" json:"username"`     // Unique, required
	Email     string    `db:"email" json:"email"`           // Unique, required
	FirstName *string   `db:"first_name" json:"first_name"` // Optional
	LastName  *string   `db:"last_name" json:"last_name"`   // Optional
	CreatedAt time.Time `db:"created_at" json:"created_at"` // Assigned by the database
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // Assigned by the database, advances on update
}

// NewUser creates an unpersisted User. Username and email are required.
func NewUser(username, email string) (*User, error) {
	u := &User{Username: username, Email: email}
	if !u.IsValid() {
		return nil, fmt.Errorf("username and email are required: %w", util.ErrInvalidInput)
	}
	return u, nil
}

// NewUserWithNames creates an unpersisted User with optional name parts.
// Empty name parts are stored as NULL.
func NewUserWithNames(username, email, firstName, lastName string) (*User, error) {
	u, err := NewUser(username, email)
	if err != nil {
		return nil, err
	}
	u.FirstName = optional(firstName)
	u.LastName = optional(lastName)
	return u, nil
}

// FullName joins the name parts with a single space, falls back to whichever
// part is present, and is empty when neither is.
func (u *User) FullName() string {
	first, last := deref(u.FirstName), deref(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// IsValid checks if the user has required fields.
func (u *User) IsValid() bool {
	return u.Username != "" && u.Email != ""
}

// IsPersisted reports whether the database has assigned identity and timestamps.
func (u *User) IsPersisted() bool {
	return u.ID != 0 && !u.CreatedAt.IsZero() && !u.UpdatedAt.IsZero()
}

// Detach returns the in-memory user to the unpersisted state after its row is deleted.
func (u *User) Detach() {
	u.ID = 0
	u.CreatedAt = time.Time{}
	u.UpdatedAt = time.Time{}
}

func (u *User) String() string {
	return fmt.Sprintf("User(id=%d, username=%q, email=%q)", u.ID, u.Username, u.Email)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
