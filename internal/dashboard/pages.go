package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/api/dto"
)

// AuthAPI is the part of the API the dashboard pages call.
type AuthAPI interface {
	Authenticate(ctx context.Context, email, password string) (dto.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (dto.MeResponse, error)
}

// Pages renders the login flow and the protected home view.
type Pages struct {
	api       AuthAPI
	cookie    CookieConfig
	loginPath string
	logger    *zap.Logger
}

// NewPages constructs the page handlers.
func NewPages(api AuthAPI, cookie CookieConfig, loginPath string, logger *zap.Logger) *Pages {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pages{api: api, cookie: cookie, loginPath: loginPath, logger: logger}
}

// LoginForm handles GET /login.
func (p *Pages) LoginForm(c *fiber.Ctx) error {
	return p.renderLogin(c, fiber.StatusOK, "", "")
}

// LoginSubmit handles POST /login.
func (p *Pages) LoginSubmit(c *fiber.Ctx) error {
	var form dto.AuthenticateRequest
	if err := c.BodyParser(&form); err != nil {
		return p.renderLogin(c, fiber.StatusBadRequest, "", "Dados de login inválidos.")
	}
	form.Email = strings.TrimSpace(form.Email)
	if form.Email == "" || form.Password == "" {
		return p.renderLogin(c, fiber.StatusBadRequest, form.Email, "Informe e-mail e senha.")
	}

	resp, err := p.api.Authenticate(c.UserContext(), form.Email, form.Password)
	if err != nil {
		p.logger.Warn("login call failed", zap.Error(err))
		return p.renderLogin(c, fiber.StatusServiceUnavailable, form.Email, "Serviço de autenticação indisponível. Tente novamente.")
	}
	if !resp.Success || resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "invalid credentials"
		}
		return p.renderLogin(c, fiber.StatusUnauthorized, form.Email, msg)
	}

	// zero expiry makes a session cookie
	var expires time.Time
	if resp.ExpiresAt != nil {
		expires = *resp.ExpiresAt
	}
	setTokenCookie(c, p.cookie, resp.Token, expires)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// Logout handles POST /logout. Revoking the token upstream is best effort;
// the cookie is cleared regardless.
func (p *Pages) Logout(c *fiber.Ctx) error {
	if token, ok := TokenFromCookie(c, p.cookie.Name); ok {
		if err := p.api.Logout(c.UserContext(), token); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("logout call failed", zap.Error(err))
		}
	}
	clearTokenCookie(c, p.cookie)
	return c.Redirect(p.loginPath, fiber.StatusFound)
}

// Home handles GET /; it is only reachable through the route guard.
func (p *Pages) Home(c *fiber.Ctx) error {
	data := fiber.Map{"title": "Início"}

	if token, ok := TokenFromLocals(c); ok {
		me, err := p.api.Me(c.UserContext(), token)
		if err != nil {
			p.logger.Warn("load current user", zap.Error(err))
		} else {
			data["user"] = fiber.Map{"id": me.ID, "name": me.Name, "email": me.Email}
		}
	}
	return c.Render("home", data)
}

func (p *Pages) renderLogin(c *fiber.Ctx, status int, email, message string) error {
	return c.Status(status).Render("login", fiber.Map{
		"title":  "Entrar",
		"action": p.loginPath,
		"email":  email,
		"error":  message,
	})
}
