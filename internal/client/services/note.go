// Package services holds the client-side application logic between the
// CLI and the storage/sync machinery: note operations apply optimistic
// local writes and enqueue the matching sync operation.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/client/models"
	"github.com/avoronova/notekeeper/internal/client/queue"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
)

// NoteService applies note mutations locally first and queues them for
// sync. Every mutation persists before it is queued, so a crash between
// the two only costs a sync attempt, never data.
type NoteService struct {
	store  *storage.NoteStore
	queues *queue.Manager
	bus    *events.Bus
	log    logging.Logger
	now    func() time.Time

	mu       sync.RWMutex
	dragging map[string]models.Position
}

func NewNoteService(store *storage.NoteStore, queues *queue.Manager, bus *events.Bus, log logging.Logger) *NoteService {
	return &NoteService{
		store:    store,
		queues:   queues,
		bus:      bus,
		log:      log,
		now:      time.Now,
		dragging: make(map[string]models.Position),
	}
}

// CreateNote makes a new record and queues its create.
func (s *NoteService) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	n := models.NewNote(title, content, s.now())
	if err := s.store.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("saving new note: %w", err)
	}
	if err := s.enqueueChange(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote loads the current record, applies mutate, bumps the local
// version and queues the change. Mutating a tombstoned record is refused.
func (s *NoteService) UpdateNote(ctx context.Context, uuid string, mutate func(*models.Note)) (*models.Note, error) {
	n, err := s.store.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if n.IsDeleted {
		return nil, common.ErrNotFound
	}

	mutate(n)
	n.TouchLocal(s.now())
	if err := s.store.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("saving note %s: %w", uuid, err)
	}
	if err := s.enqueueChange(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNote removes a note. A record the server has never seen is
// deleted locally and its pending queue entry dropped, without any
// network involvement. A synced record becomes a tombstone and a delete
// is queued.
func (s *NoteService) DeleteNote(ctx context.Context, uuid string) error {
	n, err := s.store.Get(ctx, uuid)
	if err != nil {
		return err
	}

	if !n.Synced() {
		if err := s.store.Delete(ctx, uuid); err != nil {
			return err
		}
		if err := s.queues.Remove(ctx, uuid); err != nil {
			return err
		}
		s.dropOverlay(uuid)
		return nil
	}

	n.IsDeleted = true
	n.TouchLocal(s.now())
	if err := s.store.Save(ctx, n); err != nil {
		return fmt.Errorf("tombstoning note %s: %w", uuid, err)
	}
	s.dropOverlay(uuid)

	if err := s.queues.Enqueue(ctx, s.item(n, queue.OpDelete)); err != nil {
		return err
	}
	s.bus.Publish(events.Event{Name: events.NotesChanged})
	return nil
}

// MoveNoteToDate reassigns the note's logical date.
func (s *NoteService) MoveNoteToDate(ctx context.Context, uuid string, date time.Time) (*models.Note, error) {
	return s.UpdateNote(ctx, uuid, func(n *models.Note) {
		n.Date = date
	})
}

// TogglePin flips the pinned flag.
func (s *NoteService) TogglePin(ctx context.Context, uuid string) (*models.Note, error) {
	return s.UpdateNote(ctx, uuid, func(n *models.Note) {
		n.IsPinned = !n.IsPinned
	})
}

// AddTask appends a task item and switches the note into task mode.
func (s *NoteService) AddTask(ctx context.Context, uuid, text string) (*models.Note, error) {
	return s.UpdateNote(ctx, uuid, func(n *models.Note) {
		n.IsTaskMode = true
		n.Tasks = append(n.Tasks, models.NoteTask{UUID: newTaskUUID(), Text: text})
	})
}

// ToggleTask flips one task's completed state.
func (s *NoteService) ToggleTask(ctx context.Context, noteUUID, taskUUID string) (*models.Note, error) {
	var found bool
	n, err := s.UpdateNote(ctx, noteUUID, func(n *models.Note) {
		for i := range n.Tasks {
			if n.Tasks[i].UUID == taskUUID {
				n.Tasks[i].Completed = !n.Tasks[i].Completed
				found = true
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("task %s: %w", taskUUID, common.ErrNotFound)
	}
	return n, nil
}

// DragNote records a transient position while a drag is in progress.
// Nothing is persisted and no version moves until FinalizeDrag.
func (s *NoteService) DragNote(uuid string, pos models.Position) {
	s.mu.Lock()
	s.dragging[uuid] = pos
	s.mu.Unlock()
}

// FinalizeDrag commits the in-progress position as a single mutation.
// Without a preceding DragNote it is a no-op.
func (s *NoteService) FinalizeDrag(ctx context.Context, uuid string) (*models.Note, error) {
	s.mu.Lock()
	pos, ok := s.dragging[uuid]
	delete(s.dragging, uuid)
	s.mu.Unlock()

	if !ok {
		return s.store.Get(ctx, uuid)
	}
	return s.UpdateNote(ctx, uuid, func(n *models.Note) {
		n.Position = pos
	})
}

// NotePosition returns the drag overlay position when one is active,
// the persisted position otherwise.
func (s *NoteService) NotePosition(ctx context.Context, uuid string) (models.Position, error) {
	s.mu.RLock()
	pos, ok := s.dragging[uuid]
	s.mu.RUnlock()
	if ok {
		return pos, nil
	}

	n, err := s.store.Get(ctx, uuid)
	if err != nil {
		return models.Position{}, err
	}
	return n.Position, nil
}

// RefreshNoteFromStorage drops any transient overlay and returns the
// persisted record.
func (s *NoteService) RefreshNoteFromStorage(ctx context.Context, uuid string) (*models.Note, error) {
	s.dropOverlay(uuid)
	return s.store.Get(ctx, uuid)
}

// GetNote returns one live record.
func (s *NoteService) GetNote(ctx context.Context, uuid string) (*models.Note, error) {
	n, err := s.store.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if n.IsDeleted {
		return nil, common.ErrNotFound
	}
	return n, nil
}

// ListNotes returns all live records, newest first. Tombstones awaiting
// sync are filtered out.
func (s *NoteService) ListNotes(ctx context.Context) ([]*models.Note, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	live := all[:0]
	for _, n := range all {
		if !n.IsDeleted {
			live = append(live, n)
		}
	}
	return live, nil
}

// enqueueChange queues the sync operation matching the record's state:
// create until the server has assigned an ID, update after.
func (s *NoteService) enqueueChange(ctx context.Context, n *models.Note) error {
	op := queue.OpUpdate
	if !n.Synced() {
		op = queue.OpCreate
	}
	if err := s.queues.Enqueue(ctx, s.item(n, op)); err != nil {
		return fmt.Errorf("queueing %s for %s: %w", op, n.UUID, err)
	}
	s.bus.Publish(events.Event{Name: events.NotesChanged})
	return nil
}

func (s *NoteService) item(n *models.Note, op queue.Op) queue.Item {
	return queue.Item{
		NoteUUID:     n.UUID,
		Op:           op,
		LocalVersion: n.LocalVersion,
		SyncVersion:  n.SyncVersion,
		EnqueuedAt:   s.now(),
	}
}

func (s *NoteService) dropOverlay(uuid string) {
	s.mu.Lock()
	delete(s.dragging, uuid)
	s.mu.Unlock()
}

func newTaskUUID() string {
	id, err := common.MakeRandHexString(8)
	if err != nil {
		id = fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	return id
}
