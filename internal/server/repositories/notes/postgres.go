package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/dbx"
	"github.com/avoronova/notekeeper/internal/server/models"
)

// PostgresRepository stores notes in PostgreSQL. Tasks and tags live in
// JSONB columns; the rest of the record maps to plain columns.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const noteColumns = `id, uuid, user_id, title, content, date, color,
	position_x, position_y, is_displayed, is_pinned, is_task_mode,
	tasks, tags, sync_version, created_at, updated_at, client_updated_at`

func (r *PostgresRepository) GetAllByUser(ctx context.Context, userID int64) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("selecting notes: %w", err)
	}
	defer rows.Close()

	var out []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByUUID(ctx context.Context, userID int64, uuid string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 AND uuid = $2`

	row := r.db.QueryRowContext(ctx, query, userID, uuid)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, n *models.Note) (*models.Note, error) {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO notes (uuid, user_id, title, content, date, color,
	            position_x, position_y, is_displayed, is_pinned, is_task_mode,
	            tasks, tags, sync_version, client_updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING id, sync_version, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		n.UUID, n.UserID, n.Title, n.Content, n.Date, n.Color,
		n.PositionX, n.PositionY, n.IsDisplayed, n.IsPinned, n.IsTaskMode,
		n.Tasks, tags, n.SyncVersion, n.ClientUpdatedAt,
	).Scan(&n.ID, &n.SyncVersion, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting note: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Update(ctx context.Context, n *models.Note) (*models.Note, error) {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return nil, err
	}

	query := `UPDATE notes SET title = $1, content = $2, date = $3, color = $4,
	            position_x = $5, position_y = $6, is_displayed = $7,
	            is_pinned = $8, is_task_mode = $9, tasks = $10, tags = $11,
	            sync_version = sync_version + 1, updated_at = now(),
	            client_updated_at = $12
	          WHERE user_id = $13 AND id = $14
	          RETURNING sync_version, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		n.Title, n.Content, n.Date, n.Color,
		n.PositionX, n.PositionY, n.IsDisplayed,
		n.IsPinned, n.IsTaskMode, n.Tasks, tags,
		n.ClientUpdatedAt, n.UserID, n.ID,
	).Scan(&n.SyncVersion, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("updating note: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*models.Note, error) {
	n := &models.Note{}
	var tags []byte
	err := row.Scan(
		&n.ID, &n.UUID, &n.UserID, &n.Title, &n.Content, &n.Date, &n.Color,
		&n.PositionX, &n.PositionY, &n.IsDisplayed, &n.IsPinned, &n.IsTaskMode,
		&n.Tasks, &tags, &n.SyncVersion, &n.CreatedAt, &n.UpdatedAt, &n.ClientUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &n.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}
	return n, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	return data, nil
}
