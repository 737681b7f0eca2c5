package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurehub/procurehub/internal/auth"
	"github.com/procurehub/procurehub/internal/shared"
	_ "github.com/procurehub/procurehub/testing"
)

type stubRepo struct {
	mu      sync.Mutex
	users   map[string]*auth.User
	findErr error
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *stubRepo) Insert(ctx context.Context, in auth.NewUser) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.Username]; ok {
		return nil, auth.ErrDuplicateUsername
	}
	for _, u := range s.users {
		if u.Email == in.Email {
			return nil, auth.ErrDuplicateEmail
		}
	}
	user := &auth.User{
		ID:           int64(len(s.users) + 1),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[in.Username] = user
	clone := *user
	return &clone, nil
}

func (s *stubRepo) deactivate(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username].IsActive = false
}

type countingRecorder struct {
	mu     sync.Mutex
	events map[string]int
}

func (c *countingRecorder) RecordAuthEvent(event, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[event+":"+outcome]++
}

type testServer struct {
	router   http.Handler
	repo     *stubRepo
	recorder *countingRecorder
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stubRepo{users: make(map[string]*auth.User)}
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "handler-secret", Algorithm: "HS256", TTL: 30 * time.Minute})
	require.NoError(t, err)
	svc := auth.NewService(repo, auth.NewPasswordHasher(bcrypt.MinCost, 4), tokens, logger)
	recorder := &countingRecorder{events: make(map[string]int)}
	handler := auth.NewHandler(logger, svc, recorder)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	r.With(handler.RequireUser).Get("/protected", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(auth.UserFromContext(r.Context()).Username))
	})
	return testServer{router: r, repo: repo, recorder: recorder}
}

func (s testServer) register(t *testing.T, username, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "email": email, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s testServer) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s testServer) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s testServer) loginToken(t *testing.T, username, password string) string {
	t.Helper()
	rr := s.login(t, username, password)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var token auth.Token
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &token))
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func TestScenarioARegisterDuplicate(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.register(t, "alice", "a@x.com", "pw123")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "alice", body["username"])
	require.Equal(t, "a@x.com", body["email"])
	require.Equal(t, true, body["is_active"])
	require.NotContains(t, body, "password")
	require.NotContains(t, body, "password_hash")
	require.NotContains(t, body, "PasswordHash")
	require.NotContains(t, rr.Body.String(), "pw123")

	rr = srv.register(t, "alice", "b@y.com", "pw456")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "username already registered")
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.register(t, "alice", "a@x.com", "pw123").Code)

	rr := srv.register(t, "bob", "a@x.com", "pw456")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "email already registered")
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.register(t, "alice", "not-an-email", "pw123")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"email":"email"`)

	rr = srv.register(t, "", "a@x.com", "pw123")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"username":"required"`)

	rr = srv.register(t, "alice", "a@x.com", strings.Repeat("p", 73))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.register(t, "alice", "a@x.com", strings.Repeat("é", 40))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"password":"max_bytes"`)

	rr = srv.register(t, "alice", "a@x.com", strings.Repeat("é", 36))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("{"))
	res := httptest.NewRecorder()
	srv.router.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestScenarioBLogin(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.register(t, "alice", "a@x.com", "pw123").Code)

	rr := srv.login(t, "alice", "wrongpw")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	wrongPassword := rr.Body.String()

	rr = srv.login(t, "mallory", "pw123")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, wrongPassword, rr.Body.String())

	token := srv.loginToken(t, "alice", "pw123")

	me := srv.get(t, "/users/me", token)
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), `"username":"alice"`)

	srv.recorder.mu.Lock()
	defer srv.recorder.mu.Unlock()
	require.Equal(t, 2, srv.recorder.events["login:invalid_credentials"])
	require.Equal(t, 1, srv.recorder.events["login:success"])
}

func TestLoginStoreOutage(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.register(t, "alice", "a@x.com", "pw123").Code)

	srv.repo.mu.Lock()
	srv.repo.findErr = errors.New("connection refused")
	srv.repo.mu.Unlock()

	rr := srv.login(t, "alice", "pw123")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "incorrect username or password")
	require.NotContains(t, rr.Body.String(), "connection refused")

	srv.recorder.mu.Lock()
	defer srv.recorder.mu.Unlock()
	require.Equal(t, 1, srv.recorder.events["login:error"])
	require.Zero(t, srv.recorder.events["login:invalid_credentials"])
}

func TestLoginMissingFields(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.login(t, "", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScenarioCDeactivatedAccount(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.register(t, "alice", "a@x.com", "pw123").Code)
	token := srv.loginToken(t, "alice", "pw123")

	srv.repo.deactivate("alice")

	rr := srv.get(t, "/users/me", token)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "account is inactive")

	rr = srv.get(t, "/protected", token)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = srv.login(t, "alice", "pw123")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestScenarioDTamperedToken(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.register(t, "alice", "a@x.com", "pw123").Code)
	token := srv.loginToken(t, "alice", "pw123")

	idx := strings.LastIndex(token, ".") + 1
	for _, pos := range []int{idx, len(token) - 1} {
		swap := byte('A')
		if token[pos] == 'A' {
			swap = 'B'
		}
		tampered := token[:pos] + string(swap) + token[pos+1:]

		rr := srv.get(t, "/users/me", tampered)
		require.Equal(t, http.StatusUnauthorized, rr.Code, "position %d", pos)
		require.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		require.Contains(t, rr.Body.String(), "could not validate credentials")
	}
}

func TestProtectedRouteRequiresBearer(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.get(t, "/protected", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic YWxpY2U6cHcxMjM=")
	res := httptest.NewRecorder()
	srv.router.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestProtectedRouteSeesUser(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.register(t, "alice", "a@x.com", "pw123").Code)
	token := srv.loginToken(t, "alice", "pw123")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "alice", rr.Body.String())
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := auth.BearerToken(req)
	require.False(t, ok)

	req.Header.Set("Authorization", "Bearer   abc.def.ghi ")
	token, ok := auth.BearerToken(req)
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", token)

	req.Header.Set("Authorization", "Bearer ")
	_, ok = auth.BearerToken(req)
	require.False(t, ok)
}
