// Package auth resolves the caller identity of a request.
//
// A bearer token is validated and its subject becomes the caller. Requests
// without credentials pass through with the null identity; ledger operations
// that need a caller reject them. Read-only routes therefore stay public.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "nameledger/pkg/domain"
	request "nameledger/pkg/platform/middleware/request"
	"nameledger/pkg/requestcontext"
)

// HeaderDevIdentity names the caller directly. Only honoured when enabled.
const HeaderDevIdentity = "X-Caller-Identity"

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Identity string
	JTI      string
}

type Option func(*authenticator)

// WithDevHeader lets X-Caller-Identity stand in for a token. Never enable it
// outside local development.
func WithDevHeader(enabled bool) Option {
	return func(a *authenticator) {
		a.devHeader = enabled
	}
}

type authenticator struct {
	validator JWTValidator
	logger    *slog.Logger
	devHeader bool
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Authenticate attaches the caller identity to the request context. A
// present but invalid credential is rejected with 401.
func Authenticate(validator JWTValidator, logger *slog.Logger, opts ...Option) func(http.Handler) http.Handler {
	a := &authenticator{validator: validator, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			const bearerPrefix = "Bearer "
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				token, ok := strings.CutPrefix(authHeader, bearerPrefix)
				if !ok || a.validator == nil {
					a.logger.WarnContext(ctx, "unauthenticated - unsupported authorization header",
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid Authorization header")
					return
				}
				claims, err := a.validator.ValidateToken(token)
				if err != nil {
					a.logger.WarnContext(ctx, "unauthenticated - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token")
					return
				}
				caller, err := id.ParseIdentity(claims.Identity)
				if err != nil {
					a.logger.WarnContext(ctx, "unauthenticated - token subject is not a valid identity",
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid token subject")
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
				return
			}

			if raw := r.Header.Get(HeaderDevIdentity); raw != "" && a.devHeader {
				caller, err := id.ParseIdentity(raw)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid caller identity header")
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
