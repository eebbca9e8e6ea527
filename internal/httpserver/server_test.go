package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/iam/internal/db"
	"github.com/Skotchmaster/iam/internal/domain"
	"github.com/Skotchmaster/iam/internal/events"
	"github.com/Skotchmaster/iam/internal/hash"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/middleware"
	"github.com/Skotchmaster/iam/internal/models"
	"github.com/Skotchmaster/iam/internal/paging"
	"github.com/Skotchmaster/iam/internal/repo"
	"github.com/Skotchmaster/iam/internal/revocation"
	"github.com/Skotchmaster/iam/internal/service"
	"github.com/Skotchmaster/iam/internal/tokens"
	"github.com/Skotchmaster/iam/internal/transport"
)

var testSecret = []byte("httpserver-test-secret-0123456789-abcdefghijklmnopqrstuvwxyz")

type testServer struct {
	e     *echo.Echo
	store *repo.GormRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	store := repo.New(gdb)
	_, err = service.SeedRoles(ctx, store)
	require.NoError(t, err)

	codec, err := tokens.NewCodec(testSecret, 1)
	require.NoError(t, err)
	registry := revocation.NewRegistry(store, codec)

	svc := &service.AuthService{
		Users:       store,
		Roles:       store,
		Hasher:      hash.NewBcrypt(4),
		Tokens:      codec,
		Registry:    registry,
		Events:      events.Nop{},
		DefaultRole: domain.RoleBuyer,
	}
	e := New(logging.NewWithWriter(io.Discard, "error"), &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		Gate:        middleware.NewGate(codec, registry, store),
	})
	return &testServer{e: e, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func signUpAndIn(t *testing.T, s *testServer, username string, roles ...string) transport.AuthResource {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/authentication/sign-up", "",
		transport.SignUpRequest{Username: username, Password: "Secret123", Roles: roles})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/sign-in", "",
		transport.SignInRequest{Username: username, Password: "Secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[transport.AuthResource](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", "", nil).Code)
}

func TestSignUp_HTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/authentication/sign-up", "",
		transport.SignUpRequest{Username: "alice", Password: "Secret123"})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decode[transport.UserResource](t, rec)
	assert.NotZero(t, user.ID)
	assert.Equal(t, []string{"BUYER"}, user.Roles)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/sign-up", "",
		transport.SignUpRequest{Username: "alice", Password: "Secret123"})
	require.Equal(t, http.StatusConflict, rec.Code)
	apiErr := decode[ApiError](t, rec)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "/api/v1/authentication/sign-up", apiErr.Path)
}

func TestSignUp_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/authentication/sign-up", "",
		transport.SignUpRequest{Username: "al", Password: "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decode[ApiError](t, rec)
	assert.Contains(t, apiErr.Details, "username")
	assert.Contains(t, apiErr.Details, "password")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/authentication/sign-up", bytes.NewBufferString("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	raw := httptest.NewRecorder()
	s.e.ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestSignIn_HTTPFailures(t *testing.T) {
	s := newTestServer(t)
	signUpAndIn(t, s, "alice")

	rec := s.do(t, http.MethodPost, "/api/v1/authentication/sign-in", "",
		transport.SignInRequest{Username: "alice", Password: "WrongPass"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired credentials", decode[ApiError](t, rec).Message)
	assert.NotContains(t, rec.Body.String(), "token\":")

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/sign-in", "",
		transport.SignInRequest{Username: "nobody", Password: "Secret123"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenLifecycle_HTTP(t *testing.T) {
	s := newTestServer(t)
	auth := signUpAndIn(t, s, "alice")
	require.NotEmpty(t, auth.Token)

	rec := s.do(t, http.MethodGet, "/api/v1/users/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[transport.UserResource](t, rec).Username)

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/refresh", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[transport.AuthResource](t, rec)
	require.NotEqual(t, auth.Token, refreshed.Token)

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/verify-token", refreshed.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/logout", auth.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", auth.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"token revoked"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/authentication/refresh", auth.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", refreshed.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "other tokens stay valid after logout")
}

func TestProtectedRoutes_Anonymous(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/roles", "/api/v1/users/1"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"error":"unauthorized","message":"Authentication required"}`, rec.Body.String())
	}

	rec := s.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"Authentication required"}`, rec.Body.String())
}

func TestRefresh_MissingToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/authentication/refresh", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired credentials", decode[ApiError](t, rec).Message)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	buyer := signUpAndIn(t, s, "bob")
	admin := signUpAndIn(t, s, "root", "ADMIN")

	path := fmt.Sprintf("/api/v1/users/%d", buyer.ID)
	rec := s.do(t, http.MethodGet, path, buyer.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, path, admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decode[transport.UserResource](t, rec).Username)

	rec = s.do(t, http.MethodGet, "/api/v1/users/9999", admin.Token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/abc", admin.Token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/roles", buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roles := decode[[]transport.RoleResource](t, rec)
	require.Len(t, roles, 3)

	rec = s.do(t, http.MethodGet, "/api/v1/users?page=1&size=1", buyer.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users?page=1&size=1", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[paging.Page[transport.UserResource]](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob", page.Items[0].Username)

	var n int64
	require.NoError(t, s.store.DB.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, n, page.Total)
}
