// Package wire defines the JSON request/response shapes of the notes API.
// Both the client transport and the server handlers build against these
// types, so the batch contract lives in exactly one place.
package wire

import "time"

// TaskPayload is one sub-item of a task-mode note.
type TaskPayload struct {
	UUID      string `json:"uuid"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// NotePayload is the wire form of a note record.
//
// UUID is the client-generated stable identity. ID is the server-assigned
// integer, absent until the first successful create. Date is the logical
// note date ("2006-01-02"), distinct from the audit timestamps.
type NotePayload struct {
	UUID            string        `json:"uuid"`
	ID              int64         `json:"id,omitempty"`
	Title           string        `json:"title"`
	Content         string        `json:"content"`
	Date            string        `json:"date,omitempty"`
	Color           string        `json:"color,omitempty"`
	PositionX       float64       `json:"positionX"`
	PositionY       float64       `json:"positionY"`
	IsDisplayed     bool          `json:"isDisplayed"`
	IsPinned        bool          `json:"isPinned"`
	IsTaskMode      bool          `json:"isTaskMode"`
	Tasks           []TaskPayload `json:"tasks,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	ClientUpdatedAt time.Time     `json:"clientUpdatedAt"`
	SyncVersion     int64         `json:"syncVersion"`
}

type BatchCreateRequest struct {
	Notes []NotePayload `json:"notes"`
}

type BatchUpdateRequest struct {
	Notes []NotePayload `json:"notes"`
}

// DeleteEntry identifies one note to delete. ID must be the
// server-confirmed identifier; never-synced records are not sent.
type DeleteEntry struct {
	UUID string `json:"uuid"`
	ID   int64  `json:"id"`
}

type BatchDeleteRequest struct {
	Notes []DeleteEntry `json:"notes"`
}

// ItemError reports a per-item failure. Servers key failures either by
// UUID or by position in the request batch, so both fields are optional;
// clients must be able to resolve either form.
type ItemError struct {
	UUID  string `json:"uuid,omitempty"`
	Index *int   `json:"index,omitempty"`
	Error string `json:"error"`
}

// BatchResponse carries per-item outcomes of a batch call. Conflicts are
// distinct from failures: the server detected a concurrent edit and
// returns its current version of the record without applying the write.
type BatchResponse struct {
	Successful []NotePayload `json:"successful"`
	Failed     []ItemError   `json:"failed"`
	Conflicts  []NotePayload `json:"conflicts"`
}

// NotesResponse is the body of GET /api/notes.
type NotesResponse struct {
	Notes []NotePayload `json:"notes"`
}
