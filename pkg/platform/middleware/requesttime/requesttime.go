// Package requesttime pins one "now" per request. Every ledger check in the
// request (expiry, new expiry, notification timestamps) reads the same instant.
package requesttime

import (
	"net/http"
	"time"

	"nameledger/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
