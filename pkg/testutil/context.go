package testutil

import (
	"net/http"

	id "nameledger/pkg/domain"
	"nameledger/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request context, the way
// the auth middleware does for a verified token.
func WithCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), id.Identity(caller)))
}

// WithBearer sets an Authorization bearer header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
