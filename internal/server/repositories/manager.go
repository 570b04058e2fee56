// Package repositories bundles the persistence layer behind a single
// manager so the rest of the server does not care which backend is in
// use.
package repositories

import (
	"context"

	"github.com/avoronova/notekeeper/internal/server/repositories/notes"
	"github.com/avoronova/notekeeper/internal/server/repositories/refreshtokens"
	"github.com/avoronova/notekeeper/internal/server/repositories/users"
)

// Manager hands out the individual repositories and owns rotation of
// refresh tokens, which needs transactional behavior the single repos
// cannot provide on their own.
type Manager interface {
	Users() users.Repository
	Notes() notes.Repository
	RefreshTokens() refreshtokens.Repository

	// RotateRefreshToken atomically replaces oldToken with a fresh row.
	RotateRefreshToken(ctx context.Context, oldToken string, insert func(ctx context.Context, rt refreshtokens.Repository) error) error

	// SnapshotJSON serializes the full note set for backup uploads.
	SnapshotJSON(ctx context.Context) ([]byte, error)

	Ping(ctx context.Context) error
	Close() error
}
