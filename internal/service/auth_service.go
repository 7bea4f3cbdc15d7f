package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// PasswordHasher produces and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// TokenIssuer mints and validates access tokens.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (string, error)
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     PasswordHasher
	tokens     TokenIssuer
	tokenTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// AuthDependencies encapsulates collaborators for the auth service. Hasher and
// Tokens are built from config when nil.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     PasswordHasher
	Tokens     TokenIssuer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	if deps.UserRepo == nil {
		return nil, errors.New("auth service requires a user repository")
	}

	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewPasswordHasher(cfg.BcryptCost)
	}

	tokens := deps.Tokens
	if tokens == nil {
		opts := []auth.TokenOption{auth.WithTTL(cfg.AccessTokenTTL())}
		if cfg.TokenIssuer != "" {
			opts = append(opts, auth.WithIssuer(cfg.TokenIssuer))
		}
		tm, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, opts...)
		if err != nil {
			return nil, fmt.Errorf("token manager: %w", err)
		}
		tokens = tm
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		users:      deps.UserRepo,
		hasher:     hasher,
		tokens:     tokens,
		tokenTTL:   cfg.AccessTokenTTL(),
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}, nil
}

// Register creates a new account. No user data is echoed back.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	cred := domain.Credential{Username: username, Password: password}
	if err := cred.Validate(); err != nil {
		return err
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		s.logger.Error("registration lookup failed", zap.String("username", username), zap.Error(err))
		return err
	}
	if exists {
		s.publish(ctx, events.EventRegistrationFailed, username, "already_exists")
		return domain.ErrAlreadyExists
	}

	digest, err := s.hasher.Hash(cred.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return domain.ErrInvalidInput
		}
		return err
	}

	user := &domain.User{Username: username, PasswordHash: digest}
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.publish(ctx, events.EventRegistrationFailed, username, "already_exists")
			return domain.ErrAlreadyExists
		}
		s.logger.Error("saving user failed", zap.String("username", username), zap.Error(err))
		return err
	}

	s.logger.Info("user registered", zap.String("username", username), zap.String("user_id", user.ID))
	s.publish(ctx, events.EventUserRegistered, username, "")
	return nil
}

// Login checks credentials and issues an access token for the username.
// Unknown users and wrong passwords both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.IssuedToken, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn a comparison so unknown users cost the same as wrong passwords.
			s.hasher.Verify(password, s.fallbackDigest())
			s.publish(ctx, events.EventLoginFailed, username, "invalid_credentials")
			return nil, domain.ErrUnauthorized
		}
		s.logger.Error("login lookup failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.publish(ctx, events.EventLoginFailed, username, "invalid_credentials")
		return nil, domain.ErrUnauthorized
	}

	token, exp, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		s.logger.Error("issuing token failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.publish(ctx, events.EventLoginSucceeded, username, "")
	return &domain.IssuedToken{Token: token, ExpiresAt: exp}, nil
}

// Authenticate resolves an access token to the username it was issued for.
func (s *AuthService) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) fallbackDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn("fallback digest unavailable", zap.Error(err))
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username, reason string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
