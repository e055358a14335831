// internal/api/handler/user.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"userstore/internal/api/types"
	"userstore/internal/domain"
	"userstore/internal/service"
	"userstore/internal/util" // For custom errors
)

// DefaultTimeout bounds every request handled by the router.
const DefaultTimeout = 30 * time.Second

// UserHandler handles HTTP requests related to user operations.
type UserHandler struct {
	service service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		service: svc,
		logger:  logger,
	}
}

// Helper function to send JSON responses.
func (h *UserHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *UserHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrUserNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsUniqueViolation(err):
		statusCode = http.StatusConflict
		message = "Username or email already exists"
	case util.IsError(err, context.DeadlineExceeded):
		statusCode = http.StatusGatewayTimeout
		message = "Request timed out"
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// UserRequest represents the request body for create and update.
type UserRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (req UserRequest) apply(u *domain.User) {
	u.Username = req.Username
	u.Email = req.Email
	u.FirstName = nonEmpty(req.FirstName)
	u.LastName = nonEmpty(req.LastName)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (h *UserHandler) decode(r *http.Request) (UserRequest, error) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("malformed request body: %w", util.ErrInvalidInput)
	}
	if req.Username == "" || req.Email == "" {
		return req, fmt.Errorf("username and email are required: %w", util.ErrInvalidInput)
	}
	return req, nil
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user ID: %w", util.ErrInvalidInput)
	}
	return id, nil
}

// CreateUser handles the create user request.
// POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	user := &domain.User{}
	req.apply(user)

	created, err := h.service.CreateUser(r.Context(), user)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, types.NewUserResponse(created))
}

// GetUser handles the get user by ID request.
// GET /users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	user, err := h.service.FindByID(r.Context(), id)
	h.respondWithUser(w, user, err)
}

// GetUserByUsername handles GET /users/by-username/{username}.
func (h *UserHandler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	h.respondWithUser(w, user, err)
}

// GetUserByEmail handles GET /users/by-email/{email}.
func (h *UserHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.FindByEmail(r.Context(), chi.URLParam(r, "email"))
	h.respondWithUser(w, user, err)
}

func (h *UserHandler) respondWithUser(w http.ResponseWriter, user *domain.User, err error) {
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if user == nil {
		h.respondWithError(w, util.ErrNotFound)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.NewUserResponse(user))
}

// UpdateUser handles the update user request. Every mutable field is replaced.
// PUT /users/{userID}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	req, err := h.decode(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	user, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if user == nil {
		h.respondWithError(w, &util.UserNotFoundError{ID: id})
		return
	}
	req.apply(user)

	updated, err := h.service.UpdateUser(r.Context(), user)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.NewUserResponse(updated))
}

// DeleteUser handles the delete user request.
// DELETE /users/{userID}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	removed, err := h.service.DeleteUser(r.Context(), id)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if !removed {
		h.respondWithError(w, util.ErrNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles the list request. With ?q= it searches, with ?from=&to=
// (RFC 3339) it filters by creation time, otherwise it returns everyone.
// GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		users []domain.User
		err   error
	)
	switch {
	case query.Has("q"):
		users, err = h.service.SearchUsers(r.Context(), query.Get("q"))
	case query.Has("from") || query.Has("to"):
		start, perr := time.Parse(time.RFC3339, query.Get("from"))
		if perr != nil {
			h.respondWithError(w, fmt.Errorf("invalid 'from' timestamp: %w", util.ErrInvalidInput))
			return
		}
		end, perr := time.Parse(time.RFC3339, query.Get("to"))
		if perr != nil {
			h.respondWithError(w, fmt.Errorf("invalid 'to' timestamp: %w", util.ErrInvalidInput))
			return
		}
		users, err = h.service.GetUsersByDateRange(r.Context(), start, end)
	default:
		users, err = h.service.FindAllUsers(r.Context())
	}
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.NewUserListResponse(users))
}

// CountUsers handles GET /users/count.
func (h *UserHandler) CountUsers(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountUsers(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]int64{"count": count})
}
