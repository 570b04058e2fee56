package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/avoronova/notekeeper/internal/client/models"
	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
)

const (
	notePrefix   = "notekeeper.note."
	noteIndexKey = "notekeeper.noteIndex"
)

// NoteStore persists note records in the KV layer, one record per key,
// with a JSON index of all known UUIDs for enumeration. Every write
// serializes full record state; there are no partial updates.
type NoteStore struct {
	kv  KV
	log logging.Logger
}

func NewNoteStore(kv KV, log logging.Logger) *NoteStore {
	return &NoteStore{kv: kv, log: log}
}

// Save writes the full record and registers its UUID in the index if new.
func (s *NoteStore) Save(ctx context.Context, n *models.Note) error {
	data, err := n.Encode()
	if err != nil {
		return fmt.Errorf("encoding note %s: %w", n.UUID, err)
	}
	if err := s.kv.SetItem(ctx, notePrefix+n.UUID, string(data)); err != nil {
		return fmt.Errorf("saving note %s: %w", n.UUID, err)
	}

	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	for _, u := range index {
		if u == n.UUID {
			return nil
		}
	}
	return s.saveIndex(ctx, append(index, n.UUID))
}

// Get returns the record for uuid, or common.ErrNotFound.
func (s *NoteStore) Get(ctx context.Context, uuid string) (*models.Note, error) {
	raw, ok, err := s.kv.GetItem(ctx, notePrefix+uuid)
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %w", uuid, err)
	}
	if !ok {
		return nil, fmt.Errorf("note %s: %w", uuid, common.ErrNotFound)
	}
	n, err := models.DecodeNote([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding note %s: %w", uuid, err)
	}
	return n, nil
}

// GetAll returns all records sorted by creation time descending. Index
// entries without a backing record are pruned and logged, not treated as
// fatal.
func (s *NoteStore) GetAll(ctx context.Context) ([]*models.Note, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	notes := make([]*models.Note, 0, len(index))
	kept := make([]string, 0, len(index))
	pruned := false

	for _, uuid := range index {
		raw, ok, err := s.kv.GetItem(ctx, notePrefix+uuid)
		if err != nil {
			return nil, fmt.Errorf("reading note %s: %w", uuid, err)
		}
		if !ok {
			s.log.Warn(ctx, "pruning orphaned index entry", "uuid", uuid)
			pruned = true
			continue
		}
		n, err := models.DecodeNote([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding note %s: %w", uuid, err)
		}
		notes = append(notes, n)
		kept = append(kept, uuid)
	}

	if pruned {
		if err := s.saveIndex(ctx, kept); err != nil {
			s.log.Warn(ctx, "failed to prune note index", "error", err)
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

// Delete removes the record and its index entry. Deleting a missing
// record is not an error.
func (s *NoteStore) Delete(ctx context.Context, uuid string) error {
	if err := s.kv.RemoveItem(ctx, notePrefix+uuid); err != nil {
		return fmt.Errorf("deleting note %s: %w", uuid, err)
	}

	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, u := range index {
		if u != uuid {
			kept = append(kept, u)
		}
	}
	return s.saveIndex(ctx, kept)
}

// BumpForRetry increments the record's LocalVersion after a failed sync
// attempt, leaving all content untouched.
func (s *NoteStore) BumpForRetry(ctx context.Context, uuid string) error {
	n, err := s.Get(ctx, uuid)
	if err != nil {
		return err
	}
	n.BumpForRetry()
	return s.Save(ctx, n)
}

func (s *NoteStore) loadIndex(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.GetItem(ctx, noteIndexKey)
	if err != nil {
		return nil, fmt.Errorf("reading note index: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var index []string
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		return nil, fmt.Errorf("decoding note index: %w", err)
	}
	return index, nil
}

func (s *NoteStore) saveIndex(ctx context.Context, index []string) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(ctx, noteIndexKey, string(data)); err != nil {
		return fmt.Errorf("saving note index: %w", err)
	}
	return nil
}
