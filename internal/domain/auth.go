package domain

import "time"

// Credentials is the email/password pair presented at login. It is consumed
// by a single authenticate call and never stored.
type Credentials struct {
	Email    string
	Password string
}

// AuthResult is the outcome of an authenticate call. It is either
// Authenticated or Rejected.
type AuthResult interface {
	isAuthResult()
}

// Authenticated carries the freshly issued token.
type Authenticated struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Rejected explains why credentials were not accepted.
type Rejected struct {
	Message string
}

func (Authenticated) isAuthResult() {}
func (Rejected) isAuthResult()      {}
