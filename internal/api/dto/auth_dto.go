package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/petcontrol/pet-control/internal/domain"
)

// AuthenticateRequest payload for POST /auth.
type AuthenticateRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate checks the payload shape; it says nothing about whether the
// credentials are correct.
func (r AuthenticateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 256)),
	)
}

// Credentials converts the payload into the domain value.
func (r AuthenticateRequest) Credentials() domain.Credentials {
	return domain.Credentials{Email: r.Email, Password: r.Password}
}

// AuthResponse is the JSON body of every auth endpoint. Token and ExpiresAt
// are only set on success, Message only on failure.
type AuthResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// NewAuthResponse renders an AuthResult.
func NewAuthResponse(result domain.AuthResult) AuthResponse {
	switch r := result.(type) {
	case domain.Authenticated:
		exp := r.ExpiresAt.UTC()
		return AuthResponse{Success: true, Token: r.Token, ExpiresAt: &exp}
	case domain.Rejected:
		return AuthResponse{Success: false, Message: r.Message}
	default:
		return AuthResponse{Success: false, Message: "authentication failed"}
	}
}

// VerifyRequest payload for POST /auth/verify and POST /auth/logout.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse reports token validity.
type VerifyResponse struct {
	Success bool `json:"success"`
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
