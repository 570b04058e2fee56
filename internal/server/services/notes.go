package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/server/repositories/notes"
	"github.com/avoronova/notekeeper/internal/wire"
)

// NoteService reconciles client batches against the stored rows. Each
// item settles independently: one bad record never fails its batch.
//
// Conflict rule: an update whose sync version baseline is older than the
// stored row lost a race with another device. The write is not applied;
// the server's current row comes back in the conflicts list.
type NoteService struct {
	repo notes.Repository
	log  logging.Logger
}

func NewNoteService(repo notes.Repository, log logging.Logger) *NoteService {
	return &NoteService{repo: repo, log: log}
}

// GetAll returns the user's full note set in wire form.
func (s *NoteService) GetAll(ctx context.Context, userID int64) ([]wire.NotePayload, error) {
	rows, err := s.repo.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]wire.NotePayload, 0, len(rows))
	for _, n := range rows {
		out = append(out, toPayload(n))
	}
	return out, nil
}

// BatchCreate inserts new rows. A retry of an already-applied create is
// answered with the stored row, keeping the server ID stable: an ID is
// assigned exactly once per UUID.
func (s *NoteService) BatchCreate(ctx context.Context, userID int64, payloads []wire.NotePayload) wire.BatchResponse {
	var resp wire.BatchResponse

	for _, p := range payloads {
		if p.UUID == "" {
			resp.Failed = append(resp.Failed, wire.ItemError{Error: "missing uuid"})
			continue
		}

		existing, err := s.repo.GetByUUID(ctx, userID, p.UUID)
		if err == nil {
			resp.Successful = append(resp.Successful, toPayload(existing))
			continue
		}
		if !errors.Is(err, common.ErrNotFound) {
			resp.Failed = append(resp.Failed, itemError(p.UUID, err))
			continue
		}

		n, err := toModel(userID, p)
		if err != nil {
			resp.Failed = append(resp.Failed, itemError(p.UUID, err))
			continue
		}
		// A create stores the client's baseline version (1 for a fresh
		// record); only subsequent updates increment it.
		n.ID = 0
		n.SyncVersion = p.SyncVersion
		if n.SyncVersion == 0 {
			n.SyncVersion = 1
		}

		inserted, err := s.repo.Insert(ctx, n)
		if err != nil {
			resp.Failed = append(resp.Failed, itemError(p.UUID, err))
			continue
		}
		resp.Successful = append(resp.Successful, toPayload(inserted))
	}
	return resp
}

// BatchUpdate applies changes to existing rows, detecting concurrent
// edits by sync version baseline.
func (s *NoteService) BatchUpdate(ctx context.Context, userID int64, payloads []wire.NotePayload) wire.BatchResponse {
	var resp wire.BatchResponse

	for _, p := range payloads {
		if p.UUID == "" {
			resp.Failed = append(resp.Failed, wire.ItemError{Error: "missing uuid"})
			continue
		}

		stored, err := s.repo.GetByUUID(ctx, userID, p.UUID)
		if err != nil {
			resp.Failed = append(resp.Failed, itemError(p.UUID, err))
			continue
		}

		if p.SyncVersion < stored.SyncVersion {
			s.log.Debug(ctx, "stale update rejected",
				"uuid", p.UUID, "client_version", p.SyncVersion, "stored_version", stored.SyncVersion)
			resp.Conflicts = append(resp.Conflicts, toPayload(stored))
			continue
		}

		n, err := toModel(userID, p)
		if err != nil {
			resp.Failed = append(resp.Failed, itemError(p.UUID, err))
			continue
		}
		n.ID = stored.ID

		updated, err := s.repo.Update(ctx, n)
		if err != nil {
			resp.Failed = append(resp.Failed, itemError(p.UUID, err))
			continue
		}
		resp.Successful = append(resp.Successful, toPayload(updated))
	}
	return resp
}

// BatchDelete removes rows. Deleting a row that is already gone counts
// as success so delete retries settle instead of looping.
func (s *NoteService) BatchDelete(ctx context.Context, userID int64, entries []wire.DeleteEntry) wire.BatchResponse {
	var resp wire.BatchResponse

	for _, e := range entries {
		stored, err := s.repo.GetByUUID(ctx, userID, e.UUID)
		if errors.Is(err, common.ErrNotFound) {
			resp.Successful = append(resp.Successful, wire.NotePayload{UUID: e.UUID, ID: e.ID})
			continue
		}
		if err != nil {
			resp.Failed = append(resp.Failed, itemError(e.UUID, err))
			continue
		}

		if err := s.repo.Delete(ctx, userID, stored.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			resp.Failed = append(resp.Failed, itemError(e.UUID, err))
			continue
		}
		resp.Successful = append(resp.Successful, wire.NotePayload{UUID: e.UUID, ID: stored.ID})
	}
	return resp
}

func itemError(uuid string, err error) wire.ItemError {
	return wire.ItemError{UUID: uuid, Error: fmt.Sprintf("%v", err)}
}
