// Package server is the HTTP front of the storefront API: it builds the
// router, wires middleware and runs the listener until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
	"crackedgrain.shop/storefront/internal/features/auth"
	"crackedgrain.shop/storefront/internal/features/brewing"
	"crackedgrain.shop/storefront/internal/features/limits"
	"crackedgrain.shop/storefront/internal/features/loyalty"
	"crackedgrain.shop/storefront/internal/features/subscription"
	"crackedgrain.shop/storefront/internal/features/users"
	"crackedgrain.shop/storefront/internal/server/middleware"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
const shutdownGrace = 10 * time.Second

// Pinger is the health check dependency. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the feature handlers the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	Users        *users.Handler
	Loyalty      *loyalty.Handler
	Subscription *subscription.Handler
	Brewing      *brewing.Handler
}

// Server owns the router and the listener.
type Server struct {
	cfg         *config.Config
	db          Pinger
	handlers    Handlers
	authn       *middleware.Authenticator
	rateLimiter *middleware.RateLimiter
}

// New creates the server. Call Start to listen.
func New(cfg *config.Config, db Pinger, handlers Handlers, authn *middleware.Authenticator) *Server {
	return &Server{
		cfg:         cfg,
		db:          db,
		handlers:    handlers,
		authn:       authn,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
	}
}

// Router builds the route table.
//
//	GET    /healthz
//	POST   /api/auth/register, /api/auth/login
//	GET    /api/me            PATCH /api/me
//	GET    /api/loyalty       POST  /api/loyalty/award, /api/loyalty/redeem
//	GET    /api/subscription  POST  /api/subscription/upgrade, /api/subscription/cancel
//	GET    /api/{batches,inventory,recipes}
//	POST   /api/{batches,inventory,recipes}
//	DELETE /api/{batches,inventory,recipes}/{id}
func (s *Server) Router() http.Handler {
	maxInflight := s.cfg.HTTPMaxInflight
	if maxInflight <= 0 {
		maxInflight = 64
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(chimw.Throttle(maxInflight))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// public
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimiter.Middleware)
			r.Post("/auth/register", s.handlers.Auth.HandleRegister)
			r.Post("/auth/login", s.handlers.Auth.HandleLogin)
		})

		// authenticated
		r.Group(func(r chi.Router) {
			r.Use(s.authn.Middleware)
			r.Use(s.rateLimiter.Middleware)

			r.Get("/me", s.handlers.Users.HandleMe)
			r.Patch("/me", s.handlers.Users.HandleUpdateMe)

			r.Get("/loyalty", s.handlers.Loyalty.HandleLedger)
			r.Post("/loyalty/award", s.handlers.Loyalty.HandleAward)
			r.Post("/loyalty/redeem", s.handlers.Loyalty.HandleRedeem)

			r.Get("/subscription", s.handlers.Subscription.HandleStatus)
			r.Post("/subscription/upgrade", s.handlers.Subscription.HandleUpgrade)
			r.Post("/subscription/cancel", s.handlers.Subscription.HandleCancel)

			b := s.handlers.Brewing
			r.Route("/batches", func(r chi.Router) {
				r.Get("/", b.HandleListBatches)
				r.Post("/", b.HandleCreateBatch)
				r.Delete("/{id}", b.HandleDelete(limits.ResourceBatches))
			})
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", b.HandleListInventoryItems)
				r.Post("/", b.HandleCreateInventoryItem)
				r.Delete("/{id}", b.HandleDelete(limits.ResourceInventory))
			})
			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", b.HandleListRecipes)
				r.Post("/", b.HandleCreateRecipe)
				r.Delete("/{id}", b.HandleDelete(limits.ResourceRecipes))
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		log.WithError(err).Warn("health check: database unreachable")
		common.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Start listens until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	defer s.rateLimiter.Close()

	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.HTTPReadTimeout,
		WriteTimeout: s.cfg.HTTPWriteTimeout,
		IdleTimeout:  s.cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		defer middleware.RecoverFromPanic()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.WithFields(log.Fields{
		"addr":         s.cfg.HTTPAddr,
		"max_inflight": s.cfg.HTTPMaxInflight,
	}).Info("HTTP server started")

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("HTTP server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
