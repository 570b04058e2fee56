package models

import "time"

// RefreshToken is a single-use token row. Rotation deletes the old row
// and inserts a new one inside the same transaction.
type RefreshToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}
