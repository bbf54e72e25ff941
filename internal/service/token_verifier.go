package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/repository"
)

// ErrTokenRevoked marks a token that was logged out.
var ErrTokenRevoked = errors.New("token revoked")

// TokenVerifier checks signature, expiry and revocation of tokens. It needs
// no identity store, so the dashboard can run it in-process.
type TokenVerifier struct {
	tokenMgr    *auth.TokenManager
	revocations repository.TokenRevocationRepository
	logger      *zap.Logger
}

// NewTokenVerifier builds a verifier. revocations may be nil, in which case
// logged out tokens stay valid until they expire.
func NewTokenVerifier(tokenMgr *auth.TokenManager, revocations repository.TokenRevocationRepository, logger *zap.Logger) *TokenVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenVerifier{tokenMgr: tokenMgr, revocations: revocations, logger: logger}
}

// Authorize returns the claims of a currently valid token. Malformed,
// expired and revoked tokens wrap auth.ErrInvalidToken; a failing revocation
// lookup is returned as is.
func (v *TokenVerifier) Authorize(ctx context.Context, token string) (*auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	claims, err := v.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", auth.ErrInvalidToken)
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, errors.Join(auth.ErrInvalidToken, ErrTokenRevoked)
		}
	}
	return claims, nil
}

// Verify reports whether token is currently valid. It fails closed: any
// error, including an unreachable revocation store, yields false.
func (v *TokenVerifier) Verify(ctx context.Context, token string) bool {
	_, err := v.Authorize(ctx, token)
	if err == nil {
		return true
	}
	if !errors.Is(err, auth.ErrInvalidToken) {
		v.logger.Warn("token verification unavailable", zap.Error(err))
	}
	return false
}
