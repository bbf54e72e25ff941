package dashboard

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Verifier reports whether a token is currently valid. Implementations
// must return false, not an error, for every failure.
type Verifier interface {
	Verify(ctx context.Context, token string) bool
}

// RemoteVerifier asks the API's /auth/verify endpoint.
type RemoteVerifier struct {
	client *APIClient
	logger *zap.Logger
}

// NewRemoteVerifier wraps an API client.
func NewRemoteVerifier(client *APIClient, logger *zap.Logger) *RemoteVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteVerifier{client: client, logger: logger}
}

// Verify fails closed: transport errors, timeouts and unexpected responses
// all count as an invalid token.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	ok, err := v.client.Verify(ctx, token)
	if err != nil {
		v.logger.Warn("token verification unavailable", zap.Error(err))
		return false
	}
	return ok
}
