package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackedgrain.shop/storefront/internal/common"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip:1.2.3.4"))
	assert.True(t, rl.Allow("ip:1.2.3.4"))
	assert.False(t, rl.Allow("ip:1.2.3.4"))
	assert.True(t, rl.Allow("ip:5.6.7.8"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("ip:1.2.3.4"), "window slid past old requests")
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// same IP, but authenticated: separate bucket
	authed := req.WithContext(common.WithUserID(req.Context(), uuid.New()))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, authed)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type stubVerifier struct {
	token string
	user  uuid.UUID
}

func (s stubVerifier) Verify(raw string) (uuid.UUID, error) {
	if raw != s.token {
		return uuid.Nil, common.ErrUnauthorized
	}
	return s.user, nil
}

type stubAccounts struct {
	exists bool
	err    error
}

func (s stubAccounts) Exists(context.Context, uuid.UUID) (bool, error) {
	return s.exists, s.err
}

func TestAuthenticator(t *testing.T) {
	user := uuid.New()
	verifier := stubVerifier{token: "good", user: user}

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.UserIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name     string
		header   string
		accounts stubAccounts
		status   int
	}{
		{"no header", "", stubAccounts{exists: true}, http.StatusUnauthorized},
		{"wrong scheme", "Basic good", stubAccounts{exists: true}, http.StatusUnauthorized},
		{"empty token", "Bearer ", stubAccounts{exists: true}, http.StatusUnauthorized},
		{"bad token", "Bearer nope", stubAccounts{exists: true}, http.StatusUnauthorized},
		{"deleted account", "Bearer good", stubAccounts{exists: false}, http.StatusUnauthorized},
		{"db failure", "Bearer good", stubAccounts{err: errors.New("down")}, http.StatusInternalServerError},
		{"ok", "Bearer good", stubAccounts{exists: true}, http.StatusOK},
		{"ok lowercase scheme", "bearer good", stubAccounts{exists: true}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			h := NewAuthenticator(verifier, tc.accounts).Middleware(next)

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, user, seen)
			} else {
				assert.Equal(t, uuid.Nil, seen)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	h := RequestLogger(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boil over")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic()
		panic("job failed")
	})
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, err := rec.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.status)
	assert.Equal(t, 5, rec.bytes)
}
