// Package models defines the note record as held in the local store,
// including the versioned decode contract used for forward-compatible
// schema migration.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Position is the note's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NoteTask is one sub-item of a task-mode note.
type NoteTask struct {
	UUID      string `json:"uuid"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Note is the core record.
//
// Identity: UUID is client-generated and never changes. ID is assigned by
// the server exactly once, on the first successful create, and is zero
// until then.
//
// Version discipline: LocalVersion increments on every local mutation and
// on every sync failure; it never decreases. SyncVersion and LastSyncedAt
// are server-owned and only move on a confirmed sync.
type Note struct {
	UUID string `json:"uuid"`
	ID   int64  `json:"id,omitempty"`

	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Date        time.Time  `json:"date"`
	Color       string     `json:"color"`
	Position    Position   `json:"position"`
	IsDisplayed bool       `json:"isDisplayed"`
	IsPinned    bool       `json:"isPinned"`
	IsTaskMode  bool       `json:"isTaskMode"`
	Tasks       []NoteTask `json:"tasks"`
	Tags        []string   `json:"tags"`

	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	SyncVersion     int64     `json:"syncVersion"`
	LocalVersion    int64     `json:"localVersion"`
	LastSyncedAt    time.Time `json:"lastSyncedAt"`
	ClientUpdatedAt time.Time `json:"clientUpdatedAt"`
	IsDeleted       bool      `json:"isDeleted"`

	// Conflicted is a local-only flag set when the server reports a
	// concurrent edit. Content is left untouched; a resolution layer
	// clears the flag once either side is adopted.
	Conflicted bool `json:"conflicted,omitempty"`
}

// NewNote builds a fresh, never-synced record: LocalVersion=1,
// SyncVersion=1, no server ID.
func NewNote(title, content string, now time.Time) *Note {
	return &Note{
		UUID:            uuid.NewString(),
		Title:           title,
		Content:         content,
		Date:            now,
		IsDisplayed:     true,
		Tasks:           []NoteTask{},
		Tags:            []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
		SyncVersion:     1,
		LocalVersion:    1,
		ClientUpdatedAt: now,
	}
}

// Synced reports whether the record has ever been confirmed by the server.
func (n *Note) Synced() bool { return n.ID != 0 }

// NeedsSync reports whether there are local changes the server has not
// confirmed yet.
func (n *Note) NeedsSync() bool { return n.LocalVersion != n.SyncVersion || !n.Synced() }

// TouchLocal records a local mutation: bumps LocalVersion and stamps
// ClientUpdatedAt/UpdatedAt. SyncVersion and LastSyncedAt stay untouched.
func (n *Note) TouchLocal(now time.Time) {
	n.LocalVersion++
	n.ClientUpdatedAt = now
	n.UpdatedAt = now
}

// BumpForRetry bumps LocalVersion after a failed sync so the record can
// never be mistaken for already-synced on the next pass.
func (n *Note) BumpForRetry() {
	n.LocalVersion++
}

// ConfirmSynced adopts the server baseline after a confirmed
// reconciliation: LocalVersion becomes SyncVersion and LastSyncedAt is
// stamped.
func (n *Note) ConfirmSynced(now time.Time) {
	n.LocalVersion = n.SyncVersion
	n.LastSyncedAt = now
}

// Clone returns a deep copy.
func (n *Note) Clone() *Note {
	out := *n
	out.Tasks = make([]NoteTask, len(n.Tasks))
	copy(out.Tasks, n.Tasks)
	out.Tags = make([]string, len(n.Tags))
	copy(out.Tags, n.Tags)
	return &out
}

// Encode serializes the full record state as JSON with dates as ISO
// strings. The counterpart of DecodeNote.
func (n *Note) Encode() ([]byte, error) {
	return json.Marshal(n)
}

// DecodeNote restores a record from its stored form, filling defaults for
// every field introduced after the record was first written. This is the
// record's decode contract:
//
//   - missing tags         -> empty list
//   - missing tasks        -> empty list
//   - missing syncVersion  -> 1
//   - missing localVersion -> 1
//   - missing isPinned and other booleans -> false
func DecodeNote(data []byte) (*Note, error) {
	var n Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.Tasks == nil {
		n.Tasks = []NoteTask{}
	}
	if n.SyncVersion == 0 {
		n.SyncVersion = 1
	}
	if n.LocalVersion == 0 {
		n.LocalVersion = 1
	}
	return &n, nil
}
