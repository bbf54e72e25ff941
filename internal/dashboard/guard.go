package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/observability"
)

// GuardState is where a guarded request ended up.
type GuardState string

const (
	GuardUnauthenticated GuardState = "unauthenticated"
	GuardTokenPresent    GuardState = "token_present"
	GuardVerified        GuardState = "verified"
	GuardDenied          GuardState = "denied"
)

const tokenLocalsKey = "dashboard_token"

// GuardConfig configures the route guard.
type GuardConfig struct {
	CookieName string
	LoginPath  string
}

// RouteGuard keeps unauthenticated visitors away from protected views.
type RouteGuard struct {
	verifier Verifier
	cfg      GuardConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRouteGuard builds a guard. Empty config values default to the "token"
// cookie and /login.
func NewRouteGuard(verifier Verifier, cfg GuardConfig, logger *zap.Logger, metrics *observability.Metrics) *RouteGuard {
	if cfg.CookieName == "" {
		cfg.CookieName = "token"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteGuard{verifier: verifier, cfg: cfg, logger: logger, metrics: metrics}
}

// Handle lets the request through only when the cookie holds a token the
// verifier accepts. A missing token and a rejected one end in the same
// redirect.
func (g *RouteGuard) Handle(c *fiber.Ctx) error {
	token, ok := TokenFromCookie(c, g.cfg.CookieName)
	if !ok {
		return g.deny(c, GuardUnauthenticated)
	}

	if !g.verifier.Verify(c.UserContext(), token) {
		return g.deny(c, GuardTokenPresent)
	}

	g.metrics.RecordGuardDecision(string(GuardVerified))
	c.Locals(tokenLocalsKey, token)
	return c.Next()
}

func (g *RouteGuard) deny(c *fiber.Ctx, from GuardState) error {
	g.metrics.RecordGuardDecision(string(GuardDenied))
	g.logger.Info("guard denied request",
		zap.String("path", c.Path()),
		zap.String("from_state", string(from)),
	)
	return c.Redirect(g.cfg.LoginPath, fiber.StatusFound)
}

// TokenFromLocals returns the token the guard verified for this request.
func TokenFromLocals(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(tokenLocalsKey).(string)
	return token, ok && token != ""
}
