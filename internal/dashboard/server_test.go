package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petcontrol/pet-control/internal/api/dto"
)

type fakeAPI struct {
	authResp  dto.AuthResponse
	authErr   error
	me        dto.MeResponse
	meErr     error
	loggedOut []string
}

func (f *fakeAPI) Authenticate(_ context.Context, email, password string) (dto.AuthResponse, error) {
	if f.authErr != nil {
		return dto.AuthResponse{}, f.authErr
	}
	return f.authResp, nil
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeAPI) Me(_ context.Context, _ string) (dto.MeResponse, error) {
	return f.me, f.meErr
}

func newTestServer(t *testing.T, api *fakeAPI, v Verifier) *fiber.App {
	t.Helper()
	app, err := NewServer(ServerConfig{
		API:       api,
		Verifier:  v,
		Cookie:    CookieConfig{Name: "token"},
		LoginPath: "/login",
	})
	require.NoError(t, err)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func loginRequest(email, password string) *http.Request {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginFormRenders(t *testing.T) {
	app := newTestServer(t, &fakeAPI{}, &stubVerifier{})

	resp, body := do(t, app, httptest.NewRequest(fiber.MethodGet, "/login", nil))

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<form method="post" action="/login">`)
	assert.NotContains(t, body, `class="error"`)
}

func TestLoginSubmitSetsCookie(t *testing.T) {
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	app := newTestServer(t, &fakeAPI{authResp: dto.AuthResponse{Success: true, Token: "tok", ExpiresAt: &exp}}, &stubVerifier{})

	resp, _ := do(t, app, loginRequest("ana@shelter.org", "pw"))

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
	cookie := findCookie(resp, "token")
	require.NotNil(t, cookie)
	assert.Equal(t, "tok", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.WithinDuration(t, exp, cookie.Expires, time.Second)
}

func TestLoginSubmitRejected(t *testing.T) {
	app := newTestServer(t, &fakeAPI{authResp: dto.AuthResponse{Success: false, Message: "invalid credentials"}}, &stubVerifier{})

	resp, body := do(t, app, loginRequest("ana@shelter.org", "wrong"))

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "invalid credentials")
	assert.Contains(t, body, `value="ana@shelter.org"`)
	assert.Nil(t, findCookie(resp, "token"))
}

func TestLoginSubmitMissingFields(t *testing.T) {
	app := newTestServer(t, &fakeAPI{}, &stubVerifier{})

	resp, _ := do(t, app, loginRequest("", ""))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, findCookie(resp, "token"))
}

func TestLoginSubmitAPIDown(t *testing.T) {
	app := newTestServer(t, &fakeAPI{authErr: ErrAPIUnavailable}, &stubVerifier{})

	resp, body := do(t, app, loginRequest("ana@shelter.org", "pw"))

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `class="error"`)
	assert.Nil(t, findCookie(resp, "token"))
}

func TestHomeRequiresLogin(t *testing.T) {
	app := newTestServer(t, &fakeAPI{}, &stubVerifier{})

	resp, _ := do(t, app, httptest.NewRequest(fiber.MethodGet, "/", nil))

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestHomeRendersForVerifiedToken(t *testing.T) {
	api := &fakeAPI{me: dto.MeResponse{ID: "u-1", Name: "Ana Souza", Email: "ana@shelter.org"}}
	app := newTestServer(t, api, &stubVerifier{valid: map[string]bool{"tok": true}})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})
	resp, body := do(t, app, req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ana Souza")
}

func TestHomeRendersWithoutUserDetails(t *testing.T) {
	api := &fakeAPI{meErr: errors.New("timeout")}
	app := newTestServer(t, api, &stubVerifier{valid: map[string]bool{"tok": true}})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})
	resp, body := do(t, app, req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, `class="user"`)
}

func TestLogoutClearsCookie(t *testing.T) {
	api := &fakeAPI{}
	app := newTestServer(t, api, &stubVerifier{})

	req := httptest.NewRequest(fiber.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})
	resp, _ := do(t, app, req)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
	assert.Equal(t, []string{"tok"}, api.loggedOut)
	cookie := findCookie(resp, "token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}

func TestLogoutIgnoresGet(t *testing.T) {
	api := &fakeAPI{}
	app := newTestServer(t, api, &stubVerifier{})

	req := httptest.NewRequest(fiber.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})
	resp, _ := do(t, app, req)

	assert.GreaterOrEqual(t, resp.StatusCode, fiber.StatusBadRequest)
	assert.Empty(t, resp.Header.Get(fiber.HeaderLocation))
	assert.Empty(t, api.loggedOut)
	assert.Nil(t, findCookie(resp, "token"))
}

func TestHomeOffersLogoutForm(t *testing.T) {
	app := newTestServer(t, &fakeAPI{}, &stubVerifier{valid: map[string]bool{"tok": true}})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok"})
	_, body := do(t, app, req)

	assert.Contains(t, body, `<form method="post" action="/logout">`)
}
