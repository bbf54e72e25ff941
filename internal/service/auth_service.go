package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/config"
	"github.com/petcontrol/pet-control/internal/domain"
	"github.com/petcontrol/pet-control/internal/events"
	"github.com/petcontrol/pet-control/internal/observability"
	"github.com/petcontrol/pet-control/internal/repository"
)

// MsgInvalidCredentials is the only message a rejected login ever carries,
// so callers cannot tell an unknown email from a wrong password.
const MsgInvalidCredentials = "invalid credentials"

// ErrTooManyAttempts is returned while an email is locked out.
var ErrTooManyAttempts = errors.New("too many login attempts")

// AuthService issues, verifies and revokes tokens.
type AuthService struct {
	*TokenVerifier

	users       repository.UserRepository
	revocations repository.TokenRevocationRepository
	attempts    repository.LoginAttemptRepository
	dispatcher  events.Dispatcher
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	lockout     time.Duration
	dummyHash   string
}

// AuthDependencies encapsulates collaborators of the auth service.
// Revocations, Attempts, Dispatcher and Metrics are optional.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	RevocationRepo repository.TokenRevocationRepository
	AttemptRepo    repository.LoginAttemptRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	if deps.UserRepo == nil {
		return nil, errors.New("auth service: user repository required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// compared against when the email is unknown so both paths pay for bcrypt
	dummy, err := auth.HashPassword(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	tokenMgr := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL())

	return &AuthService{
		TokenVerifier: NewTokenVerifier(tokenMgr, deps.RevocationRepo, logger),
		users:         deps.UserRepo,
		revocations:   deps.RevocationRepo,
		attempts:      deps.AttemptRepo,
		dispatcher:    deps.Dispatcher,
		tokenMgr:      tokenMgr,
		logger:        logger,
		metrics:       deps.Metrics,
		maxAttempts:   cfg.MaxLoginAttempts,
		lockout:       cfg.LoginLockout(),
		dummyHash:     dummy,
	}, nil
}

// Authenticate checks credentials against the identity store. Bad
// credentials are a Rejected result, not an error; errors are reserved for
// lockouts and infrastructure failures.
func (s *AuthService) Authenticate(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	email := repository.NormalizeEmail(creds.Email)

	attempt, locked := s.reserveAttempt(ctx, email)
	if locked {
		s.metrics.RecordAuthAttempt("locked")
		s.publish(ctx, events.Event{Type: events.EventLoginLocked, Email: email})
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = auth.ComparePassword(s.dummyHash, creds.Password)
			return s.reject(ctx, email, "unknown email", attempt), nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, creds.Password); err != nil {
		return s.reject(ctx, email, "password mismatch", attempt), nil
	}
	if !user.Active {
		return s.reject(ctx, email, "inactive user", attempt), nil
	}

	issued, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, email); err != nil {
			s.logger.Warn("reset login attempts", zap.String("email", email), zap.Error(err))
		}
	}

	s.metrics.RecordAuthAttempt("success")
	s.publish(ctx, events.Event{Type: events.EventLoginSucceeded, UserID: user.ID, Email: email})

	return domain.Authenticated{
		UserID:    user.ID,
		Token:     issued.Value,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// Logout revokes the token until it would have expired anyway. Invalid or
// already revoked tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.Authorize(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil
		}
		return err
	}
	if s.revocations == nil {
		return nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	} else {
		ttl = s.tokenMgr.TTL()
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventLogout,
		UserID:  claims.UserID,
		Payload: events.LogoutPayload{TokenID: claims.ID},
	})
	return nil
}

// reserveAttempt counts the login before credentials are checked; INCR gives
// every attempt in the window its own number. Success resets the counter.
// Redis errors fail open.
func (s *AuthService) reserveAttempt(ctx context.Context, email string) (int64, bool) {
	if s.attempts == nil || s.maxAttempts <= 0 {
		return 0, false
	}
	n, err := s.attempts.Increment(ctx, email, s.lockout)
	if err != nil {
		s.logger.Warn("record login attempt", zap.String("email", email), zap.Error(err))
	}
	return n, n > int64(s.maxAttempts)
}

func (s *AuthService) reject(ctx context.Context, email, reason string, attempts int64) domain.Rejected {
	s.metrics.RecordAuthAttempt("rejected")
	s.publish(ctx, events.Event{
		Type:    events.EventLoginFailed,
		Email:   email,
		Payload: events.LoginFailedPayload{Reason: reason, Attempts: attempts},
	})
	return domain.Rejected{Message: MsgInvalidCredentials}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
