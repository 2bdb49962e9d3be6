package jwttoken

import (
	authmw "nameledger/pkg/platform/middleware/auth"
)

// JWTServiceAdapter lets the auth middleware validate bearer tokens without
// importing jwt types. Only the subject (the caller identity) and the token id
// cross over; the middleware uses the id to correlate log lines.
type JWTServiceAdapter struct {
	tokens *JWTService
}

func NewJWTServiceAdapter(tokens *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{tokens: tokens}
}

var _ authmw.JWTValidator = (*JWTServiceAdapter)(nil)

func (a *JWTServiceAdapter) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := a.tokens.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Identity: claims.Subject, JTI: claims.ID}, nil
}
