package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petcontrol/pet-control/internal/domain"
	"github.com/petcontrol/pet-control/internal/service"
	apperrors "github.com/petcontrol/pet-control/pkg/util"
)

type stubController struct {
	result      domain.AuthResult
	err         error
	validTokens map[string]bool
	gotCreds    domain.Credentials
	verified    []string
	loggedOut   []string
	logoutErr   error
}

func (s *stubController) Authenticate(_ context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	s.gotCreds = creds
	return s.result, s.err
}

func (s *stubController) Verify(_ context.Context, token string) bool {
	s.verified = append(s.verified, token)
	return s.validTokens[token]
}

func (s *stubController) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return s.logoutErr
}

func renderDomainError(c *fiber.Ctx, err error) error {
	de := apperrors.ToDomainError(err)
	body := fiber.Map{"success": false, "code": de.Code, "message": de.Message}
	if len(de.Details) > 0 {
		body["details"] = de.Details
	}
	return c.Status(de.HTTPStatus).JSON(body)
}

func newAuthApp(ctrl AuthController) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: renderDomainError})
	h := NewAuthHandler(ctrl)
	app.Post("/auth", h.Authenticate)
	app.Post("/auth/verify", h.Verify)
	app.Post("/auth/logout", h.Logout)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string, headers ...string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestAuthenticateSuccess(t *testing.T) {
	ctrl := &stubController{result: domain.Authenticated{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}}
	app := newAuthApp(ctrl)

	status, body := postJSON(t, app, "/auth", `{"email":"ana@shelter.org","password":"pw"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "tok", body["token"])
	assert.NotContains(t, body, "message")
	assert.Equal(t, domain.Credentials{Email: "ana@shelter.org", Password: "pw"}, ctrl.gotCreds)
}

func TestAuthenticateRejected(t *testing.T) {
	app := newAuthApp(&stubController{result: domain.Rejected{Message: "invalid credentials"}})

	status, body := postJSON(t, app, "/auth", `{"email":"ana@shelter.org","password":"pw"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid credentials", body["message"])
	assert.NotContains(t, body, "token")
}

func TestAuthenticateBadPayload(t *testing.T) {
	ctrl := &stubController{}
	app := newAuthApp(ctrl)

	for _, payload := range []string{`{"email":`, `{"email":"nope","password":"pw"}`, `{"email":"ana@shelter.org"}`} {
		status, body := postJSON(t, app, "/auth", payload)
		assert.Equal(t, fiber.StatusBadRequest, status, payload)
		assert.Equal(t, false, body["success"], payload)
		assert.Equal(t, "VALIDATION_FAILED", body["code"], payload)
		assert.NotEmpty(t, body["message"], payload)
	}
	assert.Empty(t, ctrl.gotCreds.Email)
}

func TestAuthenticateValidationDetailsNameFields(t *testing.T) {
	app := newAuthApp(&stubController{})

	status, body := postJSON(t, app, "/auth", `{"email":"nope","password":""}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "details missing: %v", body)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestAuthenticateLockedOut(t *testing.T) {
	app := newAuthApp(&stubController{err: service.ErrTooManyAttempts})

	status, body := postJSON(t, app, "/auth", `{"email":"ana@shelter.org","password":"pw"}`)

	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])
	assert.Equal(t, service.ErrTooManyAttempts.Error(), body["message"])
}

func TestAuthenticateInfrastructureErrorIsReturned(t *testing.T) {
	h := NewAuthHandler(&stubController{err: errors.New("db down")})
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(599).SendString(err.Error())
		},
	})
	app.Post("/auth", h.Authenticate)

	req := httptest.NewRequest(fiber.MethodPost, "/auth", strings.NewReader(`{"email":"ana@shelter.org","password":"pw"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 599, resp.StatusCode)
}

func TestVerifyReadsBodyThenHeader(t *testing.T) {
	ctrl := &stubController{validTokens: map[string]bool{"good": true}}
	app := newAuthApp(ctrl)

	status, body := postJSON(t, app, "/auth/verify", `{"token":"good"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = postJSON(t, app, "/auth/verify", "", fiber.HeaderAuthorization, "Bearer good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = postJSON(t, app, "/auth/verify", `{"token":"bad"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["success"])

	assert.Equal(t, []string{"good", "good", "bad"}, ctrl.verified)
}

func TestVerifyMalformedInputIsFalse(t *testing.T) {
	app := newAuthApp(&stubController{})

	for _, payload := range []string{`not json`, `{"token":42}`, ``} {
		status, body := postJSON(t, app, "/auth/verify", payload)
		assert.Equal(t, fiber.StatusOK, status, payload)
		assert.Equal(t, false, body["success"], payload)
	}
}

func TestLogout(t *testing.T) {
	ctrl := &stubController{}
	app := newAuthApp(ctrl)

	status, body := postJSON(t, app, "/auth/logout", `{"token":"tok"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"tok"}, ctrl.loggedOut)
}
