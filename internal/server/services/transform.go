package services

import (
	"encoding/json"
	"time"

	"github.com/avoronova/notekeeper/internal/server/models"
	"github.com/avoronova/notekeeper/internal/wire"
)

const dateLayout = "2006-01-02"

// toModel maps a wire payload onto a server row for the given user.
func toModel(userID int64, p wire.NotePayload) (*models.Note, error) {
	tasks, err := json.Marshal(p.Tasks)
	if err != nil {
		return nil, err
	}

	var date time.Time
	if p.Date != "" {
		if parsed, err := time.Parse(dateLayout, p.Date); err == nil {
			date = parsed
		}
	}
	if date.IsZero() {
		date = time.Now()
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return &models.Note{
		ID:              p.ID,
		UUID:            p.UUID,
		UserID:          userID,
		Title:           p.Title,
		Content:         p.Content,
		Date:            date,
		Color:           p.Color,
		PositionX:       p.PositionX,
		PositionY:       p.PositionY,
		IsDisplayed:     p.IsDisplayed,
		IsPinned:        p.IsPinned,
		IsTaskMode:      p.IsTaskMode,
		Tasks:           tasks,
		Tags:            tags,
		SyncVersion:     p.SyncVersion,
		ClientUpdatedAt: p.ClientUpdatedAt,
	}, nil
}

// toPayload maps a server row to its wire form. The stored sync version
// and timestamps are authoritative.
func toPayload(n *models.Note) wire.NotePayload {
	var tasks []wire.TaskPayload
	if len(n.Tasks) > 0 {
		_ = json.Unmarshal(n.Tasks, &tasks)
	}

	return wire.NotePayload{
		UUID:            n.UUID,
		ID:              n.ID,
		Title:           n.Title,
		Content:         n.Content,
		Date:            n.Date.Format(dateLayout),
		Color:           n.Color,
		PositionX:       n.PositionX,
		PositionY:       n.PositionY,
		IsDisplayed:     n.IsDisplayed,
		IsPinned:        n.IsPinned,
		IsTaskMode:      n.IsTaskMode,
		Tasks:           tasks,
		Tags:            n.Tags,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
		ClientUpdatedAt: n.ClientUpdatedAt,
		SyncVersion:     n.SyncVersion,
	}
}
