package repositories

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/avoronova/notekeeper/internal/dbx"
	"github.com/avoronova/notekeeper/internal/server/repositories/notes"
	"github.com/avoronova/notekeeper/internal/server/repositories/refreshtokens"
	"github.com/avoronova/notekeeper/internal/server/repositories/users"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresManager backs every repository with one pgx connection pool.
type PostgresManager struct {
	db            *sql.DB
	users         *users.PostgresRepository
	notes         *notes.PostgresRepository
	refreshTokens *refreshtokens.PostgresRepository
}

func NewPostgresManager(dsn string) (*PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresManager{
		db:            db,
		users:         users.NewPostgresRepository(db),
		notes:         notes.NewPostgresRepository(db),
		refreshTokens: refreshtokens.NewPostgresRepository(db),
	}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (m *PostgresManager) Users() users.Repository                 { return m.users }
func (m *PostgresManager) Notes() notes.Repository                 { return m.notes }
func (m *PostgresManager) RefreshTokens() refreshtokens.Repository { return m.refreshTokens }

// RotateRefreshToken deletes the old row and lets insert add the new one
// inside a single transaction, so a crash can never leave both tokens
// valid.
func (m *PostgresManager) RotateRefreshToken(ctx context.Context, oldToken string,
	insert func(ctx context.Context, rt refreshtokens.Repository) error) error {

	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := refreshtokens.NewPostgresRepository(tx)
		if err := repo.Delete(ctx, oldToken); err != nil {
			return err
		}
		return insert(ctx, repo)
	})
}

// SnapshotJSON dumps every note row as one JSON document. Row volume is
// bounded by the product's scale (personal notes), so a single document
// per snapshot is fine.
func (m *PostgresManager) SnapshotJSON(ctx context.Context) ([]byte, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT user_id, uuid, id, title, content, sync_version, updated_at FROM notes ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot rows: %w", err)
	}
	defer rows.Close()

	type entry struct {
		UserID      int64     `json:"userId"`
		UUID        string    `json:"uuid"`
		ID          int64     `json:"id"`
		Title       string    `json:"title"`
		Content     string    `json:"content"`
		SyncVersion int64     `json:"syncVersion"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.UserID, &e.UUID, &e.ID, &e.Title, &e.Content, &e.SyncVersion, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

func (m *PostgresManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *PostgresManager) Close() error {
	return m.db.Close()
}
