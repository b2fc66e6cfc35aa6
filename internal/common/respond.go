package common

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields.
const maxBodyBytes = 1 << 20

// WriteJSON sends v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response body")
	}
}

// WriteError sends {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteInternal logs err server-side and sends a generic 500.
// Storage details never reach the caller.
func WriteInternal(w http.ResponseWriter, r *http.Request, err error, what string) {
	log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error(what)
	WriteError(w, http.StatusInternalServerError, "internal error")
}

// DecodeJSON reads the request body into dst.
// Malformed bodies come back wrapped in ErrValidation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", ErrValidation, err)
	}
	return nil
}

// RequireUser pulls the verified user id out of the request context and
// answers 401 when there is none. Handlers return immediately on false.
func RequireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := UserIDFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
		return id, false
	}
	return id, true
}
