package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/config"
	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/middleware"
)

func testJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fixture struct {
	store   *session.Store
	router  http.Handler
	backend *httptest.Server
}

func setup(t *testing.T, backend http.HandlerFunc) *fixture {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := session.New(session.NewMemoryPersister(), session.WithLogger(logging.Discard()))
	api := client.New(config.APIConfig{BaseURL: srv.URL, Prefix: "/api/v1"}, store, client.WithLogger(logging.Discard()))

	cors := middleware.DefaultCORSConfig()
	router := NewRouter(RouterConfig{API: api, Session: store, CORS: cors, Logger: logging.Discard()})

	return &fixture{store: store, router: router, backend: srv}
}

func (f *fixture) login(t *testing.T, access string) session.User {
	t.Helper()
	u := session.User{ID: 7, Username: "alice", Email: "alice@example.com", Role: "admin"}
	require.NoError(t, f.store.Login(context.Background(), u, access, "R1", 3600))
	return u
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestProxy_ForwardsWithSessionToken(t *testing.T) {
	var access string
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/subsite/list", r.URL.Path)
		assert.Equal(t, "page=2&page_size=10", r.URL.RawQuery)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		assert.Equal(t, "zh-CN", r.Header.Get("Accept-Language"))
		assert.Empty(t, r.Header.Get("Cookie"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"shop"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Total", "42")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"code":200,"msg":"created"}`))
	})
	access = testJWT(t, time.Now().Add(time.Hour))
	f.login(t, access)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subsite/list?page=2&page_size=10", strings.NewReader(`{"name":"shop"}`))
	req.Header.Set("Authorization", "Bearer browser-token")
	req.Header.Set("Accept-Language", "zh-CN")
	req.Header.Set("Cookie", "session=abc")

	rr := f.serve(req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "42", rr.Header().Get("X-Total"))
	assert.JSONEq(t, `{"code":200,"msg":"created"}`, rr.Body.String())
}

func TestProxy_PublicEndpointWithoutSession(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/user/check-email", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"code":200,"msg":"ok","data":{"exists":false}}`))
	})

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/user/check-email?email=a%40b.c", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"exists":false`)
}

func TestProxy_NotAuthenticated(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	})

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/user/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var env map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, float64(401), env["code"])
	assert.NotEmpty(t, env["msg"])
}

func TestProxy_SessionExpired(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/user/refresh-token" {
			w.Write([]byte(`{"code":401,"msg":"expired"}`))
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	f.login(t, testJWT(t, time.Now().Add(-time.Minute)))

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/user/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, f.store.IsAuthenticated())
}

func TestProxy_BackendUnavailable(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {})
	f.backend.Close()

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/api/v1/user/check-email?email=x", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "backend unavailable")
}

func TestProxy_PassesBackendErrorsThrough(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":403,"msg":"forbidden"}`))
	})
	f.login(t, testJWT(t, time.Now().Add(time.Hour)))

	rr := f.serve(httptest.NewRequest(http.MethodDelete, "/api/v1/subsite/delete?id=1", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"code":403,"msg":"forbidden"}`, rr.Body.String())
}

func TestSession_NeverExposesTokens(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {})

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.JSONEq(t, `{"user":null,"isAuthenticated":false,"expiresAt":null}`, rr.Body.String())

	access := testJWT(t, time.Now().Add(time.Hour))
	f.login(t, access)

	rr = f.serve(httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var info SessionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.True(t, info.IsAuthenticated)
	assert.Equal(t, "alice", info.User.Username)
	require.NotNil(t, info.ExpiresAt)
	assert.NotContains(t, rr.Body.String(), access)
	assert.NotContains(t, rr.Body.String(), "R1")
}

func TestSession_LoginAndLogout(t *testing.T) {
	access := testJWT(t, time.Now().Add(time.Hour))
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/user/login":
			w.Write([]byte(`{"code":200,"msg":"ok","data":{"user":{"id":3,"username":"bob"},"access_token":"` +
				access + `","refresh_token":"R9","expires_in":3600}}`))
		case "/api/v1/user/logout":
			w.Write([]byte(`{"code":200,"msg":"bye"}`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	rr := f.serve(httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(`{"email":"bob@example.com","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), access)
	assert.True(t, f.store.IsAuthenticated())
	assert.Equal(t, "R9", f.store.RefreshToken())

	rr = f.serve(httptest.NewRequest(http.MethodPost, "/session/logout", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, f.store.IsAuthenticated())
}

func TestProxy_LogoutClearsHeldSession(t *testing.T) {
	tests := []struct {
		name    string
		backend http.HandlerFunc
	}{
		{"backend accepts", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":200,"msg":"bye"}`))
		}},
		{"backend down", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int
			var auth string
			f := setup(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/user/logout", r.URL.Path)
				hits++
				auth = r.Header.Get("Authorization")
				tt.backend(w, r)
			})
			access := testJWT(t, time.Now().Add(time.Hour))
			f.login(t, access)

			rr := f.serve(httptest.NewRequest(http.MethodPost, "/api/v1/user/logout", nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"code":200,"msg":"logged out"}`, rr.Body.String())
			assert.Equal(t, 1, hits)
			assert.Equal(t, "Bearer "+access, auth)
			assert.False(t, f.store.IsAuthenticated())
			assert.Empty(t, f.store.AccessToken())
			assert.Empty(t, f.store.RefreshToken())
		})
	}
}

func TestSession_LoginRejected(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":1002,"msg":"invalid credentials"}`))
	})

	rr := f.serve(httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(`{"email":"x","password":"y"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"code":1002,"msg":"invalid credentials"}`, rr.Body.String())

	rr = f.serve(httptest.NewRequest(http.MethodPost, "/session/login", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {})

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))

	rr = f.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the backend")
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/user/profile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	rr := f.serve(req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := NewServer(ServerConfig{Port: 0, ReadTimeout: time.Second}, http.NotFoundHandler(), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
