package dashboard

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/django/v3"
	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/observability"
)

//go:embed views/*.html
var viewsFS embed.FS

// ServerConfig bundles the dashboard's collaborators.
type ServerConfig struct {
	API       AuthAPI
	Verifier  Verifier
	Cookie    CookieConfig
	LoginPath string
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewViewEngine returns the django engine over the embedded templates.
func NewViewEngine() (*django.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}
	return django.NewFileSystem(http.FS(sub), ".html"), nil
}

// NewServer builds the dashboard fiber app with its routes.
func NewServer(cfg ServerConfig) (*fiber.App, error) {
	engine, err := NewViewEngine()
	if err != nil {
		return nil, err
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))

	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	pages := NewPages(cfg.API, cfg.Cookie, cfg.LoginPath, cfg.Logger)
	app.Get(cfg.LoginPath, pages.LoginForm)
	app.Post(cfg.LoginPath, pages.LoginSubmit)
	app.Post("/logout", pages.Logout)

	guard := NewRouteGuard(cfg.Verifier, GuardConfig{
		CookieName: cfg.Cookie.Name,
		LoginPath:  cfg.LoginPath,
	}, cfg.Logger, cfg.Metrics)

	app.Get("/", guard.Handle, pages.Home)

	return app, nil
}
