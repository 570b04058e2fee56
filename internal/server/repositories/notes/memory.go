package notes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/server/models"
)

// MemoryRepository is the in-memory implementation used by tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Note
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byID: make(map[int64]*models.Note)}
}

func (r *MemoryRepository) GetAllByUser(_ context.Context, userID int64) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Note
	for _, n := range r.byID {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) GetByUUID(_ context.Context, userID int64, uuid string) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.byID {
		if n.UserID == userID && n.UUID == uuid {
			cp := *n
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) Insert(_ context.Context, n *models.Note) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = r.nextID
	r.nextID++
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.SyncVersion == 0 {
		n.SyncVersion = 1
	}

	cp := *n
	r.byID[n.ID] = &cp
	return n, nil
}

func (r *MemoryRepository) Update(_ context.Context, n *models.Note) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[n.ID]
	if !ok || stored.UserID != n.UserID {
		return nil, common.ErrNotFound
	}

	n.SyncVersion = stored.SyncVersion + 1
	n.CreatedAt = stored.CreatedAt
	n.UpdatedAt = time.Now()

	cp := *n
	r.byID[n.ID] = &cp
	return n, nil
}

// All returns every stored note, for snapshot serialization.
func (r *MemoryRepository) All() []*models.Note {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Note, 0, len(r.byID))
	for _, n := range r.byID {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryRepository) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok || stored.UserID != userID {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
