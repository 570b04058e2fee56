// Package refreshtokens persists refresh token rows.
package refreshtokens

import (
	"context"

	"github.com/avoronova/notekeeper/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, t *models.RefreshToken) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
