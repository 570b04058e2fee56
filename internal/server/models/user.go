// Package models defines the server-side persistence types.
package models

import "time"

// User is an account row. PasswordHash is a bcrypt hash.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
