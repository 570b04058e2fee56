package repositories

import (
	"context"
	"encoding/json"

	"github.com/avoronova/notekeeper/internal/server/repositories/notes"
	"github.com/avoronova/notekeeper/internal/server/repositories/refreshtokens"
	"github.com/avoronova/notekeeper/internal/server/repositories/users"
)

// MemoryManager wires the in-memory repositories together for tests.
type MemoryManager struct {
	users         *users.MemoryRepository
	notes         *notes.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		users:         users.NewMemoryRepository(),
		notes:         notes.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryManager) Users() users.Repository                 { return m.users }
func (m *MemoryManager) Notes() notes.Repository                 { return m.notes }
func (m *MemoryManager) RefreshTokens() refreshtokens.Repository { return m.refreshTokens }

func (m *MemoryManager) RotateRefreshToken(ctx context.Context, oldToken string,
	insert func(ctx context.Context, rt refreshtokens.Repository) error) error {

	if err := m.refreshTokens.Delete(ctx, oldToken); err != nil {
		return err
	}
	return insert(ctx, m.refreshTokens)
}

// SnapshotJSON serializes every stored note, mirroring the PostgreSQL
// snapshot shape closely enough for backup tests.
func (m *MemoryManager) SnapshotJSON(context.Context) ([]byte, error) {
	return json.Marshal(m.notes.All())
}

func (m *MemoryManager) Ping(context.Context) error { return nil }
func (m *MemoryManager) Close() error               { return nil }
