// internal/api/types/response.go
package types

import (
	"time"

	"userstore/internal/domain"
)

// ListResponse wraps a collection together with its size.
// T represents the type of data contained in the 'Data' slice.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// UserResponse is the wire form of a domain.User.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse copies u into its wire form.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserListResponse converts users and counts them.
func NewUserListResponse(users []domain.User) ListResponse[UserResponse] {
	data := make([]UserResponse, 0, len(users))
	for i := range users {
		data = append(data, NewUserResponse(&users[i]))
	}
	return ListResponse[UserResponse]{Data: data, Count: len(data)}
}
