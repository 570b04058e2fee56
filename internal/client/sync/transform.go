// Package sync contains the batch reconciliation engine: transformers
// between local records and wire payloads, the batch handler that applies
// per-item outcomes, and the orchestrator that decides when sync runs.
package sync

import (
	"time"

	"github.com/avoronova/notekeeper/internal/client/models"
	"github.com/avoronova/notekeeper/internal/wire"
)

// dateLayout is the wire form of the logical note date.
const dateLayout = "2006-01-02"

// ToCreatePayload converts a never-synced local record into a batch
// create entry. No server ID is sent; SyncVersion carries the client's
// baseline so the server can echo it back.
func ToCreatePayload(n *models.Note) wire.NotePayload {
	p := toPayload(n)
	p.ID = 0
	return p
}

// ToUpdatePayload converts a synced local record into a batch update
// entry. SyncVersion is the version the client last saw; the server uses
// it together with ClientUpdatedAt for conflict detection.
func ToUpdatePayload(n *models.Note) wire.NotePayload {
	return toPayload(n)
}

func toPayload(n *models.Note) wire.NotePayload {
	tasks := make([]wire.TaskPayload, len(n.Tasks))
	for i, t := range n.Tasks {
		tasks[i] = wire.TaskPayload{UUID: t.UUID, Text: t.Text, Completed: t.Completed}
	}

	date := ""
	if !n.Date.IsZero() {
		date = n.Date.Format(dateLayout)
	}

	return wire.NotePayload{
		UUID:            n.UUID,
		ID:              n.ID,
		Title:           n.Title,
		Content:         n.Content,
		Date:            date,
		Color:           n.Color,
		PositionX:       n.Position.X,
		PositionY:       n.Position.Y,
		IsDisplayed:     n.IsDisplayed,
		IsPinned:        n.IsPinned,
		IsTaskMode:      n.IsTaskMode,
		Tasks:           tasks,
		Tags:            append([]string(nil), n.Tags...),
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
		ClientUpdatedAt: n.ClientUpdatedAt,
		SyncVersion:     n.SyncVersion,
	}
}

// FromPayload converts a server payload into a local record. The server
// is authoritative for ID, SyncVersion and the audit timestamps; the
// caller stamps the local baseline via ConfirmSynced.
func FromPayload(p wire.NotePayload) *models.Note {
	tasks := make([]models.NoteTask, len(p.Tasks))
	for i, t := range p.Tasks {
		tasks[i] = models.NoteTask{UUID: t.UUID, Text: t.Text, Completed: t.Completed}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	var date time.Time
	if p.Date != "" {
		if parsed, err := time.Parse(dateLayout, p.Date); err == nil {
			date = parsed
		}
	}

	return &models.Note{
		UUID:            p.UUID,
		ID:              p.ID,
		Title:           p.Title,
		Content:         p.Content,
		Date:            date,
		Color:           p.Color,
		Position:        models.Position{X: p.PositionX, Y: p.PositionY},
		IsDisplayed:     p.IsDisplayed,
		IsPinned:        p.IsPinned,
		IsTaskMode:      p.IsTaskMode,
		Tasks:           tasks,
		Tags:            tags,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		ClientUpdatedAt: p.ClientUpdatedAt,
		SyncVersion:     p.SyncVersion,
	}
}

// resolvePayloadUUID maps a response payload back to the originating
// record: by echoed UUID when the server keys responses that way, or by
// request position when positional is set. An index into an outcome list
// only equals the request position when that list mirrors the whole
// batch, so callers enable positional resolution only in that case.
func resolvePayloadUUID(p wire.NotePayload, i int, sent []string, positional bool) string {
	if p.UUID != "" {
		return p.UUID
	}
	if positional && i < len(sent) {
		return sent[i]
	}
	return ""
}

// resolveErrorUUID does the same for per-item errors, which may carry a
// UUID or a positional index.
func resolveErrorUUID(e wire.ItemError, sent []string) string {
	if e.UUID != "" {
		return e.UUID
	}
	if e.Index != nil && *e.Index >= 0 && *e.Index < len(sent) {
		return sent[*e.Index]
	}
	return ""
}
