// Package models defines server-side data models persisted by the
// repositories.
package models

import "time"

// User is a stored account. PasswordHash is a bcrypt digest; the plaintext
// is never stored.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
