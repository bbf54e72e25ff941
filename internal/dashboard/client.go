package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/petcontrol/pet-control/internal/api/dto"
)

// ErrAPIUnavailable wraps transport failures and unexpected API answers.
var ErrAPIUnavailable = errors.New("api unavailable")

// APIClient talks to the pet-control API over HTTP.
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewAPIClient builds a client. timeout bounds every call.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &APIClient{baseURL: baseURL, timeout: timeout}
}

// Authenticate calls POST /auth. A rejected login is a successful call whose
// response has Success=false.
func (c *APIClient) Authenticate(ctx context.Context, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	code, err := c.post(ctx, "/auth", dto.AuthenticateRequest{Email: email, Password: password}, &out)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	switch {
	case code == fiber.StatusOK:
		return out, nil
	case code == fiber.StatusBadRequest || code == fiber.StatusTooManyRequests:
		if out.Message == "" {
			out.Message = "invalid credentials"
		}
		out.Success = false
		out.Token = ""
		return out, nil
	default:
		return dto.AuthResponse{}, fmt.Errorf("%w: authenticate returned %d", ErrAPIUnavailable, code)
	}
}

// Verify calls POST /auth/verify.
func (c *APIClient) Verify(ctx context.Context, token string) (bool, error) {
	var out dto.VerifyResponse
	code, err := c.post(ctx, "/auth/verify", dto.VerifyRequest{Token: token}, &out)
	if err != nil {
		return false, err
	}
	if code != fiber.StatusOK {
		return false, fmt.Errorf("%w: verify returned %d", ErrAPIUnavailable, code)
	}
	return out.Success, nil
}

// Logout calls POST /auth/logout.
func (c *APIClient) Logout(ctx context.Context, token string) error {
	var out dto.VerifyResponse
	code, err := c.post(ctx, "/auth/logout", dto.VerifyRequest{Token: token}, &out)
	if err != nil {
		return err
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("%w: logout returned %d", ErrAPIUnavailable, code)
	}
	return nil
}

// Me calls GET /auth/me with the token as bearer credentials.
func (c *APIClient) Me(ctx context.Context, token string) (dto.MeResponse, error) {
	timeout, err := c.budget(ctx)
	if err != nil {
		return dto.MeResponse{}, err
	}

	agent := fiber.Get(c.baseURL + "/auth/me").Timeout(timeout)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)

	var out dto.MeResponse
	code, err := send(agent, &out)
	if err != nil {
		return dto.MeResponse{}, err
	}
	if code != fiber.StatusOK {
		return dto.MeResponse{}, fmt.Errorf("%w: me returned %d", ErrAPIUnavailable, code)
	}
	return out, nil
}

func (c *APIClient) post(ctx context.Context, path string, body any, out any) (int, error) {
	timeout, err := c.budget(ctx)
	if err != nil {
		return 0, err
	}

	return send(fiber.Post(c.baseURL+path).Timeout(timeout).JSON(body), out)
}

// send runs the request and decodes the JSON answer into out. The agent is
// released on every path.
func send(agent *fiber.Agent, out any) (int, error) {
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return 0, fmt.Errorf("%w: %v", ErrAPIUnavailable, err)
	}

	code, raw, errs := agent.Struct(out)
	if len(errs) > 0 {
		return code, fmt.Errorf("%w: %v (body %q)", ErrAPIUnavailable, errors.Join(errs...), truncate(raw))
	}
	return code, nil
}

// budget is the configured timeout, shortened to whatever is left of the
// caller's deadline.
func (c *APIClient) budget(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}
	return timeout, nil
}

func truncate(b []byte) string {
	if len(b) > 128 {
		return string(b[:128]) + "..."
	}
	return string(b)
}
