// Package users — service.go holds account business rules.
// Registration itself is driven by the auth feature, which hashes the password
// first; this service validates and stores the account.
package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
)

// maxNameLength is the width of users.name.
const maxNameLength = 255

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
}

// Service manages shop accounts.
type Service struct {
	repo Store
}

// NewService creates the users service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create registers a new account with an already hashed password.
//
// Parameters:
//   - email: login, must parse as an address
//   - name: display name, up to 255 characters
//   - passwordHash: encoded Argon2id hash
func (s *Service) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	email, name, err := s.ValidateNew(email, name)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("new account registered")

	return u, nil
}

// ValidateNew checks registration fields and returns them trimmed.
// The email must be a bare address: "Bob <bob@x.io>" parses as mail but is
// rejected.
func (s *Service) ValidateNew(email, name string) (string, string, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "", fmt.Errorf("%w: a valid email is required", common.ErrValidation)
	}
	if err := checkName(name); err != nil {
		return "", "", err
	}
	return email, name, nil
}

func checkName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name is required (max %d characters)", common.ErrValidation, maxNameLength)
	}
	return nil
}

// GetByID returns the account, including the cached loyalty balance.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail is used by login.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Exists reports whether the account is still there. The auth middleware uses
// it to reject tokens of deleted accounts.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Rename changes the display name.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateName(ctx, id, name); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
