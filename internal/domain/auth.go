package domain

import "time"

// TokenClaims is the decoded payload of an issued access token.
type TokenClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is returned to a caller after a successful login.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
