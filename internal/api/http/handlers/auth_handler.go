package handlers

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/petcontrol/pet-control/internal/api/dto"
	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/domain"
	"github.com/petcontrol/pet-control/internal/service"
	apperrors "github.com/petcontrol/pet-control/pkg/util"
)

// AuthController is the business logic behind the auth routes.
type AuthController interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	Verify(ctx context.Context, token string) bool
	Logout(ctx context.Context, token string) error
}

// AuthHandler exposes the auth endpoints.
type AuthHandler struct {
	auth AuthController
}

// NewAuthHandler constructs handler.
func NewAuthHandler(controller AuthController) *AuthHandler {
	return &AuthHandler{auth: controller}
}

// Authenticate handles POST /auth.
func (h *AuthHandler) Authenticate(c *fiber.Ctx) error {
	var req dto.AuthenticateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), validationDetails(err))
	}

	result, err := h.auth.Authenticate(c.UserContext(), req.Credentials())
	if err != nil {
		if errors.Is(err, service.ErrTooManyAttempts) {
			return apperrors.NewTooManyRequests(err.Error())
		}
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.NewAuthResponse(result))
}

// Verify handles POST /auth/verify. It never fails: anything that is not a
// valid token is reported as success=false.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token := requestToken(c)
	return c.JSON(dto.VerifyResponse{Success: h.auth.Verify(c.UserContext(), token)})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), requestToken(c)); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.VerifyResponse{Success: true})
}

// Me handles GET /auth/me; it sits behind the bearer middleware.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return c.JSON(dto.MeResponse{
		ID:    principal.User.ID,
		Name:  principal.User.Name,
		Email: principal.User.Email,
	})
}

// validationDetails flattens ozzo field errors into field -> message.
func validationDetails(err error) map[string]any {
	var fields validation.Errors
	if !errors.As(err, &fields) {
		return nil
	}
	details := make(map[string]any, len(fields))
	for field, fieldErr := range fields {
		details[field] = fieldErr.Error()
	}
	return details
}

// requestToken reads the token from the JSON body, falling back to the
// Authorization header.
func requestToken(c *fiber.Ctx) string {
	var req dto.VerifyRequest
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}
	if token := strings.TrimSpace(req.Token); token != "" {
		return token
	}
	token, _ := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	return token
}
