// Package auth — service.go implements registration and login.
// Brute-force protection: AuthMaxFailedLogins failures within
// AuthLockoutWindow lock the email until the window slides past them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"crackedgrain.shop/storefront/internal/common"
	"crackedgrain.shop/storefront/internal/config"
	"crackedgrain.shop/storefront/internal/features/users"
)

// Accounts is the part of the users service auth depends on.
type Accounts interface {
	ValidateNew(email, name string) (string, string, error)
	Create(ctx context.Context, email, name, passwordHash string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// AttemptStore records login attempts. *Repository implements it.
type AttemptStore interface {
	LogAttempt(ctx context.Context, email string, success bool) error
	RecentFailures(ctx context.Context, email string, since time.Time) (int, error)
}

// Service registers and logs in shop customers.
type Service struct {
	accounts Accounts
	attempts AttemptStore
	tokens   *Tokens
	params   HashParams
	hash     func(password string, p HashParams) (string, error)

	maxFailures   int
	lockoutWindow time.Duration
	registrations *rate.Limiter

	dummyOnce sync.Once
	dummyHash string

	now func() time.Time
}

// NewService creates the auth service.
func NewService(accounts Accounts, attempts AttemptStore, tokens *Tokens, cfg *config.Config) *Service {
	perMinute := cfg.AuthRegisterPerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Service{
		accounts:      accounts,
		attempts:      attempts,
		tokens:        tokens,
		params:        DefaultHashParams,
		hash:          HashPassword,
		maxFailures:   cfg.AuthMaxFailedLogins,
		lockoutWindow: cfg.AuthLockoutWindow,
		registrations: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		now:           time.Now,
	}
}

// Register creates an account and signs the caller in.
//
// Errors:
//   - common.ErrTooManyAttempts: registration rate exceeded
//   - common.ErrValidation: bad email, name or a short password
//   - common.ErrEmailTaken
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if !s.registrations.Allow() {
		return nil, fmt.Errorf("%w: too many registrations, try again shortly", common.ErrTooManyAttempts)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLength)
	}
	// the hash is the expensive part, so reject bad fields before it
	email, name, err := s.accounts.ValidateNew(req.Email, req.Name)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(req.Password, s.params)
	if err != nil {
		return nil, err
	}

	u, err := s.accounts.Create(ctx, email, name, hash)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login checks credentials and returns a fresh token.
//
// Unknown emails and wrong passwords both return common.ErrBadCredentials,
// and both pay for a hash computation.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	failures, err := s.attempts.RecentFailures(ctx, email, s.now().Add(-s.lockoutWindow))
	if err != nil {
		return nil, err
	}
	if failures >= s.maxFailures {
		log.WithField("email", email).Warn("login locked out")
		return nil, common.ErrTooManyAttempts
	}

	u, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrUserNotFound) {
		return nil, err
	}

	var match bool
	if u != nil {
		match = VerifyPassword(req.Password, u.PasswordHash)
	} else {
		VerifyPassword(req.Password, s.placeholderHash())
	}

	if err := s.attempts.LogAttempt(ctx, email, match); err != nil {
		log.WithError(err).Warn("failed to record login attempt")
	}
	if !match {
		return nil, common.ErrBadCredentials
	}

	log.WithField("user_id", u.ID).Info("user logged in")
	return s.session(u)
}

func (s *Service) session(u *users.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, UserID: u.ID, User: u}, nil
}

// placeholderHash is verified against when the email is unknown.
func (s *Service) placeholderHash() string {
	s.dummyOnce.Do(func() {
		h, err := HashPassword("placeholder-password", s.params)
		if err != nil {
			log.WithError(err).Error("failed to build placeholder hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
