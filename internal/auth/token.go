package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

const (
	defaultTTL = 60 * time.Minute
	// MinTTL is the shortest lifetime Issue accepts. exp is encoded in whole
	// seconds, so anything shorter could be expired on arrival.
	MinTTL = time.Second
)

// TokenManager issues and validates signed JWT access tokens.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithIssuer sets the iss claim and requires it on verification.
func WithIssuer(issuer string) TokenOption {
	return func(tm *TokenManager) { tm.issuer = issuer }
}

// WithTTL overrides the default token lifetime. Values below MinTTL are ignored.
func WithTTL(ttl time.Duration) TokenOption {
	return func(tm *TokenManager) {
		if ttl >= MinTTL {
			tm.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a manager for one of the HMAC algorithms (HS256, HS384, HS512).
func NewTokenManager(secret, algorithm string, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}

	tm := &TokenManager{
		secret: []byte(secret),
		method: method,
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

func hmacMethod(algorithm string) (jwt.SigningMethod, error) {
	switch algorithm {
	case "", jwt.SigningMethodHS256.Alg():
		return jwt.SigningMethodHS256, nil
	case jwt.SigningMethodHS384.Alg():
		return jwt.SigningMethodHS384, nil
	case jwt.SigningMethodHS512.Alg():
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
}

// TTL returns the configured default lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Algorithm returns the signing algorithm identifier.
func (tm *TokenManager) Algorithm() string {
	return tm.method.Alg()
}

// Issue signs a token for subject valid for ttl. A non-positive ttl uses the
// default. The returned expiry is the exp claim as encoded, truncated to the
// second, and is always after the issue time.
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("issue token: %w", domain.ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = tm.ttl
	}
	if ttl < MinTTL {
		return "", time.Time{}, fmt.Errorf("issue token: ttl %s below %s: %w", ttl, MinTTL, domain.ErrInvalidInput)
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tm.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(tm.method, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify validates tokenStr and returns its subject.
func (tm *TokenManager) Verify(tokenStr string) (string, error) {
	claims, err := tm.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse validates tokenStr and returns the decoded claims.
func (tm *TokenManager) Parse(tokenStr string) (*domain.TokenClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(tm.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenMalformed
	}

	out := &domain.TokenClaims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return domain.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return domain.ErrTokenMalformed
	default:
		return domain.ErrTokenMalformed
	}
}
