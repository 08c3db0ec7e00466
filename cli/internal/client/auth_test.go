package client

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload
}

func TestLogin_Success(t *testing.T) {
	b := newBackend(t)
	user := fakeUser()
	access := validJWT(t)
	b.handle("/api/v1/user/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))

		payload := decodeBody(t, r)
		assert.Equal(t, user.Email, payload["email"])
		assert.Equal(t, "s3cret", payload["password"])

		writeJSON(w, http.StatusOK, envelope(200, "login ok", map[string]any{
			"user":          user,
			"access_token":  access,
			"refresh_token": "R1",
			"expires_in":    7200,
		}))
	})

	store := newStore(t)
	res, err := newTestClient(b.URL, store).Login(t.Context(), user.Email, "s3cret")

	require.NoError(t, err)
	assert.Equal(t, user, res.User)
	assert.Equal(t, access, res.AccessToken)
	assert.Equal(t, int64(7200), res.ExpiresIn)

	snap := store.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, &user, snap.User)
	assert.Equal(t, access, snap.AccessToken)
	assert.Equal(t, "R1", snap.RefreshToken)
	assert.Equal(t, int64(7200), snap.ExpiresIn)
}

func TestLogin_Failure(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/v1/user/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 1002, "msg": "invalid credentials"})
	})

	store := newStore(t)
	res, err := newTestClient(b.URL, store).Login(t.Context(), "bad@example.com", "bad")

	assert.Nil(t, res)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1002, apiErr.Code)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.False(t, store.IsAuthenticated())
}

func TestLogin_MissingToken(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/v1/user/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope(200, "ok", map[string]any{"user": fakeUser()}))
	})

	store := newStore(t)
	_, err := newTestClient(b.URL, store).Login(t.Context(), "a@b.c", "pw")

	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.False(t, store.IsAuthenticated())
}

func TestRegister_Success(t *testing.T) {
	b := newBackend(t)
	user := fakeUser()
	b.handle("/api/v1/user/register", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		assert.Equal(t, map[string]string{
			"email":    user.Email,
			"password": "pw",
			"username": user.Username,
			"code":     "123456",
		}, payload)

		writeJSON(w, http.StatusOK, envelope(200, "ok", map[string]any{
			"user": user, "access_token": "A1", "refresh_token": "R1", "expires_in": 60,
		}))
	})

	store := newStore(t)
	_, err := newTestClient(b.URL, store).Register(t.Context(), user.Email, "pw", user.Username, "123456")

	require.NoError(t, err)
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, user.Username, store.User().Username)
}

func TestSendVerificationCode(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/v1/user/send-code", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, map[string]string{"email": "a@b.c", "type": CodeTypeResetPassword}, decodeBody(t, r))
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "msg": "code sent"})
	})

	msg, err := newTestClient(b.URL, newStore(t)).SendVerificationCode(t.Context(), "a@b.c", CodeTypeResetPassword)

	require.NoError(t, err)
	assert.Equal(t, "code sent", msg)
}

func TestResetPassword(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/v1/user/reset-password", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, map[string]string{"email": "a@b.c", "code": "999999", "new_password": "n3w"}, decodeBody(t, r))
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "msg": "password reset"})
	})

	msg, err := newTestClient(b.URL, newStore(t)).ResetPassword(t.Context(), "a@b.c", "999999", "n3w")

	require.NoError(t, err)
	assert.Equal(t, "password reset", msg)
}

func TestCheckEmailExists(t *testing.T) {
	b := newBackend(t)
	b.handle("/api/v1/user/check-email", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "a+b@example.com", r.URL.Query().Get("email"))
		writeJSON(w, http.StatusOK, envelope(200, "email taken", map[string]bool{"exists": true}))
	})

	res, err := newTestClient(b.URL, newStore(t)).CheckEmailExists(t.Context(), "a+b@example.com")

	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.Equal(t, "email taken", res.Message)
}

func TestLogout_ClearsSession(t *testing.T) {
	b := newBackend(t)
	token := validJWT(t)
	b.handle("/api/v1/user/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "msg": "bye"})
	})

	store := loggedInStore(t, token, "R1")
	require.NoError(t, newTestClient(b.URL, store).Logout(t.Context()))

	assert.Equal(t, 1, b.count("/api/v1/user/logout"))
	assert.False(t, store.IsAuthenticated())
}

func TestLogout_ClearsSessionWhenServerFails(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"envelope failure", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"code": 500, "msg": "redis unavailable"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			b.handle("/api/v1/user/logout", tt.handler)

			store := loggedInStore(t, validJWT(t), "R1")
			require.NoError(t, newTestClient(b.URL, store).Logout(t.Context()))
			assert.False(t, store.IsAuthenticated())
			assert.Empty(t, store.AccessToken())
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		store := loggedInStore(t, validJWT(t), "R1")
		require.NoError(t, newTestClient("http://127.0.0.1:1", store).Logout(t.Context()))
		assert.False(t, store.IsAuthenticated())
	})

	t.Run("already expired", func(t *testing.T) {
		store := loggedInStore(t, expiredJWT(t), "")
		require.NoError(t, newTestClient("http://127.0.0.1:1", store).Logout(t.Context()))
		assert.False(t, store.IsAuthenticated())
	})
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrNotAuthenticated))
	assert.True(t, IsAuthError(ErrSessionExpired))
	assert.True(t, IsAuthError(&HTTPError{Status: 401}))
	assert.True(t, IsAuthError(&APIError{Code: CodeUnauthorized}))
	assert.False(t, IsAuthError(&HTTPError{Status: 500}))
	assert.False(t, IsAuthError(ErrMalformedResponse))
	assert.False(t, IsAuthError(nil))
}
