package models

import "time"

// Note is the server's authoritative copy of a record.
//
// ID is assigned on insert and never changes. UUID is the client's
// stable identity; the (user_id, uuid) pair is unique. SyncVersion
// increments on every accepted write and is the conflict baseline
// clients echo back.
type Note struct {
	ID     int64
	UUID   string
	UserID int64

	Title       string
	Content     string
	Date        time.Time
	Color       string
	PositionX   float64
	PositionY   float64
	IsDisplayed bool
	IsPinned    bool
	IsTaskMode  bool
	Tasks       []byte // JSON array of task items
	Tags        []string

	SyncVersion     int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClientUpdatedAt time.Time
}
