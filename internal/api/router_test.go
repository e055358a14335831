// internal/api/router_test.go
package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"userstore/internal/api"
	"userstore/internal/api/handler"
	"userstore/internal/domain"
	"userstore/internal/service"
	"userstore/internal/util"
)

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) FindAllUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserService) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	args := m.Called(ctx, term)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserService) GetUsersByDateRange(ctx context.Context, start, end time.Time) ([]domain.User, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserService) ExecuteTransaction(ctx context.Context, fn service.TxFunc) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockUserService) DeleteAllUsers(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestServer(t *testing.T) (*httptest.Server, *MockUserService) {
	t.Helper()
	svc := new(MockUserService)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.NewRouter(handler.NewUserHandler(svc, logger), logger, handler.DefaultTimeout))
	t.Cleanup(func() {
		srv.Close()
		svc.AssertExpectations(t)
	})
	return srv, svc
}

// makeRequest helper function: sends an HTTP request to the test server.
func makeRequest(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func strPtr(s string) *string { return &s }

func persisted(id int64, username, email string) *domain.User {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{ID: id, Username: username, Email: email, CreatedAt: now, UpdatedAt: now}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := makeRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestCreateUserEndpoint(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "jdoe" && u.Email == "jdoe@example.com" &&
				u.FirstName != nil && *u.FirstName == "John" && u.LastName == nil
		})).Return(&domain.User{
			ID: 1, Username: "jdoe", Email: "jdoe@example.com", FirstName: strPtr("John"),
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}, nil).Once()

		resp, body := makeRequest(t, srv, http.MethodPost, "/users",
			`{"username":"jdoe","email":"jdoe@example.com","first_name":"John","last_name":""}`)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, float64(1), got["id"])
		assert.Equal(t, "John", got["full_name"])
		assert.Nil(t, got["last_name"])
	})

	t.Run("MissingEmail", func(t *testing.T) {
		srv, _ := newTestServer(t)
		resp, body := makeRequest(t, srv, http.MethodPost, "/users", `{"username":"jdoe"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "invalid input provided")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		srv, _ := newTestServer(t)
		resp, _ := makeRequest(t, srv, http.MethodPost, "/users", `{"username":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Duplicate", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}).Once()

		resp, body := makeRequest(t, srv, http.MethodPost, "/users", `{"username":"jdoe","email":"jdoe@example.com"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, body, "already exists")
	})
}

func TestGetUserEndpoints(t *testing.T) {
	t.Run("ByID", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByID", mock.Anything, int64(7)).Return(persisted(7, "jdoe", "jdoe@example.com"), nil).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users/7", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"username":"jdoe"`)
	})

	t.Run("ByIDAbsent", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByID", mock.Anything, int64(999)).Return(nil, nil).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users/999", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body, "Resource not found")
	})

	t.Run("ByIDNotANumber", func(t *testing.T) {
		srv, _ := newTestServer(t)
		resp, _ := makeRequest(t, srv, http.MethodGet, "/users/abc", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ByUsername", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByUsername", mock.Anything, "jdoe").Return(persisted(7, "jdoe", "jdoe@example.com"), nil).Once()

		resp, _ := makeRequest(t, srv, http.MethodGet, "/users/by-username/jdoe", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ByEmailAbsent", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, nil).Once()

		resp, _ := makeRequest(t, srv, http.MethodGet, "/users/by-email/nobody@example.com", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("StorageFailure", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByID", mock.Anything, int64(7)).Return(nil, errors.New("connection reset")).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users/7", "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, body, "connection reset")
	})
}

func TestUpdateUserEndpoint(t *testing.T) {
	t.Run("Updated", func(t *testing.T) {
		srv, svc := newTestServer(t)
		existing := persisted(7, "jdoe", "jdoe@example.com")
		svc.On("FindByID", mock.Anything, int64(7)).Return(existing, nil).Once()
		svc.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == 7 && u.Email == "new@example.com" && u.LastName != nil && *u.LastName == "Doe"
		})).Return(existing, nil).Once()

		resp, body := makeRequest(t, srv, http.MethodPut, "/users/7",
			`{"username":"jdoe","email":"new@example.com","last_name":"Doe"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"full_name":"Doe"`)
	})

	t.Run("Unknown", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByID", mock.Anything, int64(999)).Return(nil, nil).Once()

		resp, _ := makeRequest(t, srv, http.MethodPut, "/users/999", `{"username":"ghost","email":"ghost@example.com"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("RowVanishedBeforeUpdate", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByID", mock.Anything, int64(7)).Return(persisted(7, "jdoe", "jdoe@example.com"), nil).Once()
		svc.On("UpdateUser", mock.Anything, mock.Anything).Return(nil, &util.UserNotFoundError{ID: 7}).Once()

		resp, _ := makeRequest(t, srv, http.MethodPut, "/users/7", `{"username":"jdoe","email":"jdoe@example.com"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Conflict", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindByID", mock.Anything, int64(7)).Return(persisted(7, "jdoe", "jdoe@example.com"), nil).Once()
		svc.On("UpdateUser", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("update user: %w", &pgconn.PgError{Code: "23505"})).Once()

		resp, _ := makeRequest(t, srv, http.MethodPut, "/users/7", `{"username":"taken","email":"jdoe@example.com"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestDeleteUserEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.On("DeleteUser", mock.Anything, int64(7)).Return(true, nil).Once()
	svc.On("DeleteUser", mock.Anything, int64(8)).Return(false, nil).Once()

	resp, _ := makeRequest(t, srv, http.MethodDelete, "/users/7", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = makeRequest(t, srv, http.MethodDelete, "/users/8", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListUsersEndpoint(t *testing.T) {
	users := []domain.User{*persisted(1, "alice", "alice@example.com"), *persisted(2, "bob", "bob@example.com")}

	t.Run("All", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("FindAllUsers", mock.Anything).Return(users, nil).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			Data  []map[string]interface{} `json:"data"`
			Count int                      `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, 2, got.Count)
		assert.Equal(t, "alice", got.Data[0]["username"])
	})

	t.Run("SearchWithEmptyTerm", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("SearchUsers", mock.Anything, "").Return(users, nil).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users?q=", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"count":2`)
	})

	t.Run("DateRange", func(t *testing.T) {
		srv, svc := newTestServer(t)
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		svc.On("GetUsersByDateRange", mock.Anything, mock.MatchedBy(start.Equal), mock.MatchedBy(end.Equal)).
			Return(users[:1], nil).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users?from=2024-01-01T00:00:00Z&to=2024-12-31T00:00:00Z", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"count":1`)
	})

	t.Run("BadDate", func(t *testing.T) {
		srv, _ := newTestServer(t)
		resp, body := makeRequest(t, srv, http.MethodGet, "/users?from=yesterday&to=2024-12-31T00:00:00Z", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "from")
	})

	t.Run("Count", func(t *testing.T) {
		srv, svc := newTestServer(t)
		svc.On("CountUsers", mock.Anything).Return(int64(42), nil).Once()

		resp, body := makeRequest(t, srv, http.MethodGet, "/users/count", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"count":42}`, body)
	})
}

func TestRequestTimeout(t *testing.T) {
	svc := new(MockUserService)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(api.NewRouter(handler.NewUserHandler(svc, logger), logger, 50*time.Millisecond))
	defer srv.Close()

	svc.On("FindAllUsers", mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return([]domain.User(nil), context.DeadlineExceeded).Once()

	resp, body := makeRequest(t, srv, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Contains(t, body, "Request timed out")
	svc.AssertExpectations(t)
}
