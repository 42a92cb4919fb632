package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lenana-drops/lenana/internal/auth"
	"github.com/lenana-drops/lenana/internal/shared"
	"github.com/lenana-drops/lenana/internal/users"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubUsers struct {
	user *users.User
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (users.User, error) {
	if s.user == nil || s.user.Email != email {
		return users.User{}, fmt.Errorf("%w: user", shared.ErrNotFound)
	}
	return *s.user, nil
}

func activeUser(t *testing.T, password string) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &users.User{
		ID:           7,
		Name:         "Wanjiku",
		Email:        "wanjiku@lenana.co.ke",
		PasswordHash: string(hash),
		Role:         shared.RoleChecker,
		IsActive:     true,
	}
}

func newService(t *testing.T, source auth.UserSource) *auth.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return auth.NewService(source, auth.NewTokenStore(client, time.Hour), nil)
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	user := activeUser(t, "password123")
	svc := newService(t, &stubUsers{user: user})

	result, err := svc.Login(context.Background(), user.Email, "password123", "127.0.0.1", "test")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, shared.RoleChecker, result.Role)

	actor, ok, err := svc.Resolve(context.Background(), result.Token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user.ID, actor.ID)
	require.Equal(t, shared.RoleChecker, actor.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	user := activeUser(t, "password123")
	svc := newService(t, &stubUsers{user: user})

	_, err := svc.Login(context.Background(), user.Email, "wrong password", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@lenana.co.ke", "password123", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := activeUser(t, "password123")
	user.IsActive = false
	svc := newService(t, &stubUsers{user: user})

	_, err := svc.Login(context.Background(), user.Email, "password123", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	user := activeUser(t, "password123")
	svc := newService(t, &stubUsers{user: user})

	result, err := svc.Login(context.Background(), user.Email, "password123", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), result.Token))

	_, ok, err := svc.Resolve(context.Background(), result.Token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoginHandlerEndToEnd(t *testing.T) {
	user := activeUser(t, "password123")
	svc := newService(t, &stubUsers{user: user})
	handler := auth.NewHandler(testLogger(), svc)

	body := strings.NewReader(`{"email":"wanjiku@lenana.co.ke","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	res := httptest.NewRecorder()
	handler.Login(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	require.Equal(t, user.ID, result.UserID)
}

func TestLoginHandlerBadPassword(t *testing.T) {
	user := activeUser(t, "password123")
	svc := newService(t, &stubUsers{user: user})
	handler := auth.NewHandler(testLogger(), svc)

	body := strings.NewReader(`{"email":"wanjiku@lenana.co.ke","password":"wrongpassword"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	res := httptest.NewRecorder()
	handler.Login(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMiddlewareInjectsActor(t *testing.T) {
	user := activeUser(t, "password123")
	svc := newService(t, &stubUsers{user: user})

	result, err := svc.Login(context.Background(), user.Email, "password123", "", "")
	require.NoError(t, err)

	authn := auth.NewAuthenticator(testLogger(), svc)
	var captured shared.Actor
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, found = shared.ActorFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	authn.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	require.Equal(t, user.ID, captured.ID)

	found = false
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	authn.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, found)
}
