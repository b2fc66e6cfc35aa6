package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
)

// TokenVerifier checks a bearer token. *auth.Tokens implements it.
type TokenVerifier interface {
	Verify(raw string) (uuid.UUID, error)
}

// AccountChecker confirms the account behind a token still exists.
// *users.Service implements it.
type AccountChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Authenticator guards the API routes.
type Authenticator struct {
	tokens   TokenVerifier
	accounts AccountChecker
}

func NewAuthenticator(tokens TokenVerifier, accounts AccountChecker) *Authenticator {
	return &Authenticator{tokens: tokens, accounts: accounts}
}

// Middleware requires "Authorization: Bearer <token>" and stores the user id
// in the request context (read it with common.UserIDFrom).
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithFields(log.Fields{
			"component": "auth",
			"path":      r.URL.Path,
		})

		raw, ok := bearerToken(r)
		if !ok {
			common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
			return
		}

		userID, err := a.tokens.Verify(raw)
		if err != nil {
			logger.WithError(err).Debug("deny: bad token")
			common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
			return
		}

		exists, err := a.accounts.Exists(r.Context(), userID)
		if err != nil {
			logger.WithError(err).Error("account check failed (db)")
			common.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !exists {
			logger.WithField("user_id", userID).Info("deny: account no longer exists")
			common.WriteError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
