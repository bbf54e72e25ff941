package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/petcontrol/pet-control/internal/domain"
	"github.com/petcontrol/pet-control/internal/repository"
	apperrors "github.com/petcontrol/pet-control/pkg/util"
)

const principalKey = "auth_principal"

// Authorizer validates a raw token and returns its claims.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*Claims, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
	Token  string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	authorizer Authorizer
	users      repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authorizer Authorizer, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewUnauthorized("missing or malformed authorization header")
	}

	claims, err := m.authorizer.Authorize(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.NewInternalError(err)
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.NewInternalError(err)
	}
	if !user.Active {
		return apperrors.NewUnauthorized("user inactive")
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims, Token: token})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
