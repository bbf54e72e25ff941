package dashboard

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// TokenFromCookie reads the auth token cookie. A missing or blank cookie is
// reported as absent.
func TokenFromCookie(c *fiber.Ctx, name string) (string, bool) {
	token := strings.TrimSpace(c.Cookies(name))
	return token, token != ""
}

func setTokenCookie(c *fiber.Ctx, cfg CookieConfig, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearTokenCookie(c *fiber.Ctx, cfg CookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-24 * time.Hour),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CookieConfig describes the auth cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}
