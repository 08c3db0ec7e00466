package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/config"
	"github.com/Zkeai/DDPay-web/common/logging"
)

// Helper function to create a signed test JWT expiring at exp
func createTestJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func validJWT(t *testing.T) string   { return createTestJWT(t, time.Now().Add(time.Hour)) }
func expiredJWT(t *testing.T) string { return createTestJWT(t, time.Now().Add(-10*time.Second)) }

func fakeUser() session.User {
	return session.User{
		ID:       int64(gofakeit.Number(1, 1_000_000)),
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Avatar:   gofakeit.URL(),
		Role:     "admin",
	}
}

func newStore(t *testing.T) *session.Store {
	t.Helper()
	return session.New(session.NewMemoryPersister(), session.WithLogger(logging.Discard()))
}

func loggedInStore(t *testing.T, accessToken, refreshToken string) *session.Store {
	t.Helper()
	s := newStore(t)
	require.NoError(t, s.Login(t.Context(), fakeUser(), accessToken, refreshToken, 3600))
	return s
}

func newTestClient(serverURL string, store SessionStore, opts ...Option) *Client {
	cfg := config.APIConfig{BaseURL: serverURL, Prefix: "/api/v1"}
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(cfg, store, opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func envelope(code int, msg string, data any) map[string]any {
	return map[string]any{"code": code, "msg": msg, "data": data}
}

// backend is a fake DDPay API. Handlers are registered per test; every
// request path is counted.
type backend struct {
	*httptest.Server
	mux      *http.ServeMux
	hits     map[string]*atomic.Int32
	refreshN atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{mux: http.NewServeMux(), hits: map[string]*atomic.Int32{}}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := b.hits[r.URL.Path]; ok {
			c.Add(1)
		}
		if r.URL.Path == "/api/v1/user/refresh-token" {
			b.refreshN.Add(1)
		}
		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) handle(path string, h http.HandlerFunc) {
	b.hits[path] = &atomic.Int32{}
	b.mux.HandleFunc(path, h)
}

func (b *backend) count(path string) int {
	if c, ok := b.hits[path]; ok {
		return int(c.Load())
	}
	return 0
}

// refreshTo answers refresh requests with the given pair.
func (b *backend) refreshTo(t *testing.T, wantRefresh, access, refresh string) {
	b.handle("/api/v1/user/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode refresh body: %v", err)
		}
		if wantRefresh != "" && body["refresh_token"] != wantRefresh {
			t.Errorf("refresh_token = %q, want %q", body["refresh_token"], wantRefresh)
		}
		writeJSON(w, http.StatusOK, envelope(200, "ok", map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"expires_in":    3600,
		}))
	})
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
