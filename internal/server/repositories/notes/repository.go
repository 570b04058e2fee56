// Package notes persists the authoritative note rows.
package notes

import (
	"context"

	"github.com/avoronova/notekeeper/internal/server/models"
)

type Repository interface {
	GetAllByUser(ctx context.Context, userID int64) ([]*models.Note, error)
	GetByUUID(ctx context.Context, userID int64, uuid string) (*models.Note, error)
	// Insert assigns the server ID and the initial sync version.
	Insert(ctx context.Context, n *models.Note) (*models.Note, error)
	// Update overwrites the row and bumps sync_version by one.
	Update(ctx context.Context, n *models.Note) (*models.Note, error)
	Delete(ctx context.Context, userID, id int64) error
}
