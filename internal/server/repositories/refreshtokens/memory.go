package refreshtokens

import (
	"context"
	"sync"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/server/models"
)

// MemoryRepository is the in-memory implementation used by tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byToken map[string]*models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byToken: make(map[string]*models.RefreshToken)}
}

func (r *MemoryRepository) Insert(_ context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.byToken[t.Token] = &cp
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byToken, token)
	return nil
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, t := range r.byToken {
		if t.UserID == userID {
			delete(r.byToken, token)
		}
	}
	return nil
}
