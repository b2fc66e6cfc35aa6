package common

import (
	"context"

	"github.com/google/uuid"
)

type userIDKey struct{}

// WithUserID stores the verified user id in the request context.
// Only the auth middleware calls it.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFrom returns the verified user id, or false for anonymous requests.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
