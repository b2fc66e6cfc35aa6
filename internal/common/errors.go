// Package common — errors.go defines the errors shared by every feature.
// Handlers tell failure kinds apart with errors.Is and pick the HTTP status
// and message the caller sees.
package common

import "errors"

// Loyalty ledger errors
var (
	// ErrInvalidAmount — points are zero or have the wrong sign for the operation
	ErrInvalidAmount = errors.New("points must be a positive whole number")
	// ErrMissingType — ledger entry has no type tag
	ErrMissingType = errors.New("transaction type is required")
	// ErrReservedType — award tried to use a type reserved for redemptions
	ErrReservedType = errors.New("transaction type is reserved")
	// ErrInsufficientBalance — redemption larger than the cached balance
	ErrInsufficientBalance = errors.New("insufficient points balance")
)

// User and auth errors
var (
	// ErrUserNotFound — no user with that id or email
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken — registration with an email that already exists
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials — wrong email or password
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrTooManyAttempts — too many failed logins, or registrations throttled
	ErrTooManyAttempts = errors.New("too many attempts, try again later")
	// ErrUnauthorized — no verified identity on the request
	ErrUnauthorized = errors.New("authentication required")
)

// Subscription and limit errors
var (
	// ErrLimitReached — the tier ceiling for a resource is reached
	ErrLimitReached = errors.New("plan limit reached")
	// ErrInvalidTier — tier outside free/premium
	ErrInvalidTier = errors.New("unknown subscription tier")
)

// Generic request errors
var (
	// ErrValidation — missing or malformed request fields
	ErrValidation = errors.New("invalid request")
	// ErrNotFound — the resource does not exist or belongs to someone else
	ErrNotFound = errors.New("not found")
)
