package server

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

	"crackedgrain.shop/storefront/internal/config"
	"crackedgrain.shop/storefront/internal/server/middleware"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type rejectAll struct{}

func (rejectAll) Verify(string) (uuid.UUID, error) { return uuid.Nil, errors.New("no") }

type noAccounts struct{}

func (noAccounts) Exists(context.Context, uuid.UUID) (bool, error) { return false, nil }

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:          "127.0.0.1:0",
		HTTPMaxInflight:   4,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		status int
	}{
		{"up", nil, http.StatusOK},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := New(testConfig(), stubPinger{err: tc.err}, Handlers{}, middleware.NewAuthenticator(rejectAll{}, noAccounts{}))
			defer s.rateLimiter.Close()

			w := httptest.NewRecorder()
			s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := New(testConfig(), stubPinger{}, Handlers{}, middleware.NewAuthenticator(rejectAll{}, noAccounts{}))
	defer s.rateLimiter.Close()
	router := s.Router()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/loyalty"},
		{http.MethodPost, "/api/loyalty/award"},
		{http.MethodPost, "/api/loyalty/redeem"},
		{http.MethodGet, "/api/subscription"},
		{http.MethodPost, "/api/subscription/upgrade"},
		{http.MethodPost, "/api/batches"},
		{http.MethodGet, "/api/inventory"},
		{http.MethodDelete, "/api/recipes/" + uuid.NewString()},
	}
	for _, rt := range routes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(rt.method, rt.path, nil)
		req.Header.Set("Authorization", "Bearer forged")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	s := New(testConfig(), stubPinger{}, Handlers{}, middleware.NewAuthenticator(rejectAll{}, noAccounts{}))
	defer s.rateLimiter.Close()

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestStartStopsOnCancel(t *testing.T) {
	s := New(testConfig(), stubPinger{}, Handlers{}, middleware.NewAuthenticator(rejectAll{}, noAccounts{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
