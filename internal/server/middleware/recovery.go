package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"crackedgrain.shop/storefront/internal/common"
)

// RecoverFromPanic logs a recovered panic. Use as `defer RecoverFromPanic()`
// in goroutines and scheduled jobs.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		logPanic(r)
	}
}

// Recoverer turns a handler panic into a logged 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logPanic(rec)
				common.WriteError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logPanic(r any) {
	log.WithFields(log.Fields{
		"component": "panic_recovery",
		"panic":     fmt.Sprintf("%v", r),
		"stack":     string(debug.Stack()),
	}).Error("panic recovered")
}
