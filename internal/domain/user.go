package domain

import "time"

// User is a dashboard identity (staff member or adopter with access).
// Persisted in the usuarios table.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
