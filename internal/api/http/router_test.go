package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/petcontrol/pet-control/internal/api/http/handlers"
	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/config"
	"github.com/petcontrol/pet-control/internal/domain"
	"github.com/petcontrol/pet-control/internal/observability"
	"github.com/petcontrol/pet-control/internal/repository"
	"github.com/petcontrol/pet-control/internal/service"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.NewString()
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == repository.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestAPI(t *testing.T) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := &memoryUsers{users: map[string]*domain.User{}}
	hash, err := auth.HashPassword("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &domain.User{
		Name: "Ana", Email: "ana@shelter.org", PasswordHash: hash, Active: true,
	}))

	metrics := observability.NewMetrics("test")
	authService, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
		MaxLoginAttempts:      5,
		LoginLockoutMinutes:   15,
	}, service.AuthDependencies{
		UserRepo:       users,
		RevocationRepo: repository.NewTokenRevocationRepository(rdb),
		AttemptRepo:    repository.NewLoginAttemptRepository(rdb),
		Metrics:        metrics,
	})
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("pet-control-api", "test", map[string]handlers.Pinger{
			"redis":    pingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
			"postgres": pingerFunc(func(context.Context) error { return errors.New("down") }),
		}),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(authService, users),
		Metrics:        metrics,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, fiber.MethodPost, "/auth", `{"email":"ana@shelter.org","password":"correct-horse"}`, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, true, body["success"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthenticateThenVerify(t *testing.T) {
	app := newTestAPI(t)
	token := login(t, app)

	for i := 0; i < 2; i++ {
		status, body := call(t, app, fiber.MethodPost, "/auth/verify", `{"token":"`+token+`"}`, nil)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["success"])
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	app := newTestAPI(t)

	status, body := call(t, app, fiber.MethodPost, "/auth", `{"email":"ana@shelter.org","password":"wrong"}`, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
	assert.NotContains(t, body, "token")
}

func TestVerifyMalformedToken(t *testing.T) {
	app := newTestAPI(t)

	status, body := call(t, app, fiber.MethodPost, "/auth/verify", `{"token":"definitely.not.jwt"}`, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["success"])
}

func TestLogoutInvalidatesToken(t *testing.T) {
	app := newTestAPI(t)
	token := login(t, app)
	bearer := map[string]string{fiber.HeaderAuthorization: "Bearer " + token}

	status, body := call(t, app, fiber.MethodGet, "/auth/me", "", bearer)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ana@shelter.org", body["email"])

	status, _ = call(t, app, fiber.MethodPost, "/auth/logout", "", bearer)
	require.Equal(t, fiber.StatusOK, status)

	_, body = call(t, app, fiber.MethodPost, "/auth/verify", "", bearer)
	assert.Equal(t, false, body["success"])

	status, body = call(t, app, fiber.MethodGet, "/auth/me", "", bearer)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestMeRequiresBearer(t *testing.T) {
	app := newTestAPI(t)

	status, body := call(t, app, fiber.MethodGet, "/auth/me", "", nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	app := newTestAPI(t)

	for i := 0; i < 5; i++ {
		status, _ := call(t, app, fiber.MethodPost, "/auth", `{"email":"ana@shelter.org","password":"wrong"}`, nil)
		require.Equal(t, fiber.StatusOK, status)
	}
	status, body := call(t, app, fiber.MethodPost, "/auth", `{"email":"ana@shelter.org","password":"correct-horse"}`, nil)

	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])
}

func TestAuthenticateValidationUsesErrorShape(t *testing.T) {
	app := newTestAPI(t)

	status, body := call(t, app, fiber.MethodPost, "/auth", `{"email":"nope","password":""}`, nil)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.NotEmpty(t, body["message"])
	details, _ := body["details"].(map[string]any)
	assert.Contains(t, details, "email")
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestAPI(t)

	status, body := call(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = call(t, app, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	details, _ := body["details"].(map[string]any)
	assert.Equal(t, "ok", details["redis"])
	assert.Equal(t, "down", details["postgres"])
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	app := newTestAPI(t)

	status, body := call(t, app, fiber.MethodGet, "/nope", "", nil)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestPanicsBecomeInternalErrors(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	app.Get("/panic", func(*fiber.Ctx) error { panic("boom") })

	status, body := call(t, app, fiber.MethodGet, "/panic", "", nil)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["message"])
}
