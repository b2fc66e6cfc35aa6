// Package app wires every component of the storefront: the pool,
// repositories, services, handlers, the HTTP server and the scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/config"
	"crackedgrain.shop/storefront/internal/db/postgres"
	"crackedgrain.shop/storefront/internal/features/auth"
	"crackedgrain.shop/storefront/internal/features/brewing"
	"crackedgrain.shop/storefront/internal/features/limits"
	"crackedgrain.shop/storefront/internal/features/loyalty"
	"crackedgrain.shop/storefront/internal/features/subscription"
	"crackedgrain.shop/storefront/internal/features/users"
	"crackedgrain.shop/storefront/internal/jobs"
	"crackedgrain.shop/storefront/internal/server"
	"crackedgrain.shop/storefront/internal/server/middleware"
)

// App holds the running components.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New builds the application. Order matters: services depend on each other.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool, postgres.Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Repositories
	userRepo := users.NewRepository(pool)
	authRepo := auth.NewRepository(pool)
	loyaltyRepo := loyalty.NewRepository(pool)
	subscriptionRepo := subscription.NewRepository(pool)
	brewingRepo := brewing.NewRepository(pool)

	// Services
	userService := users.NewService(userRepo)
	tokens := auth.NewTokens(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthTokenTTL)
	authService := auth.NewService(userService, authRepo, tokens, cfg)
	loyaltyService := loyalty.NewService(loyaltyRepo, cfg)
	subscriptionService := subscription.NewService(subscriptionRepo)
	gate := limits.NewGate(subscriptionService, brewingRepo, limits.CeilingsFromConfig(cfg), cfg.LimitsStrict)
	brewingService := brewing.NewService(brewingRepo, gate)

	// Handlers
	handlers := server.Handlers{
		Auth:         auth.NewHandler(authService),
		Users:        users.NewHandler(userService),
		Loyalty:      loyalty.NewHandler(loyaltyService),
		Subscription: subscription.NewHandler(subscriptionService, gate),
		Brewing:      brewing.NewHandler(brewingService),
	}

	authn := middleware.NewAuthenticator(tokens, userService)
	srv := server.New(cfg, pool, handlers, authn)
	scheduler := jobs.NewScheduler(cfg, subscriptionService, loyaltyService, authRepo)

	log.WithFields(log.Fields{
		"env":           cfg.AppEnv,
		"limits_strict": cfg.LimitsStrict,
		"free_limits":   limits.CeilingsFromConfig(cfg),
	}).Info("application assembled")

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

// Close releases the pool.
func (a *App) Close() {
	a.DB.Close()
}
