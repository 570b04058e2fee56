// Package queue implements the two sync queues: primary (pending
// operations) and retry (operations that failed at least once). Both are
// FIFO, hold at most one item per note, and persist in the local KV store
// so pending work survives a restart.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/logging"
)

// Op is the kind of pending operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Item is one pending or retrying operation. The version fields are
// snapshots taken at enqueue time, used for staleness diagnostics; they
// are not preconditions.
type Item struct {
	NoteUUID     string    `json:"noteUuid"`
	Op           Op        `json:"op"`
	LocalVersion int64     `json:"localVersion"`
	SyncVersion  int64     `json:"syncVersion"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}

const (
	primaryKey = "notekeeper.queue.primary"
	retryKey   = "notekeeper.queue.retry"
)

// Manager owns both queues. All mutations persist before returning.
type Manager struct {
	kv  storage.KV
	log logging.Logger

	mu      sync.Mutex
	primary []Item
	retry   []Item
}

// NewManager loads any persisted queue state. Corrupted state is dropped
// with a warning rather than failing startup.
func NewManager(ctx context.Context, kv storage.KV, log logging.Logger) (*Manager, error) {
	m := &Manager{kv: kv, log: log}

	var err error
	if m.primary, err = m.load(ctx, primaryKey); err != nil {
		return nil, err
	}
	if m.retry, err = m.load(ctx, retryKey); err != nil {
		return nil, err
	}
	return m, nil
}

// Enqueue adds an operation to the primary queue. Any existing entry for
// the same note, in either queue, is superseded: the newest intended
// action is the only one that survives. A superseded primary entry keeps
// its queue position.
func (m *Manager) Enqueue(ctx context.Context, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retry = removeUUID(m.retry, item.NoteUUID)

	replaced := false
	for i := range m.primary {
		if m.primary[i].NoteUUID == item.NoteUUID {
			if m.primary[i].Op != item.Op {
				m.log.Debug(ctx, "superseding queued operation",
					"uuid", item.NoteUUID, "old", m.primary[i].Op, "new", item.Op)
			}
			m.primary[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		m.primary = append(m.primary, item)
	}
	return m.persist(ctx)
}

// Primary returns a copy of the primary queue in FIFO order.
func (m *Manager) Primary() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.primary...)
}

// Retry returns a copy of the retry queue in FIFO order.
func (m *Manager) Retry() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.retry...)
}

// MoveToRetry moves the given items from the primary queue to the retry
// queue. Items already in retry stay there once.
func (m *Manager) MoveToRetry(ctx context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range items {
		m.primary = removeUUID(m.primary, it.NoteUUID)
		m.retry = removeUUID(m.retry, it.NoteUUID)
		m.retry = append(m.retry, it)
	}
	return m.persist(ctx)
}

// Remove drops any entries for the given notes from both queues. Called
// on confirmed success and on local-only deletes.
func (m *Manager) Remove(ctx context.Context, uuids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range uuids {
		m.primary = removeUUID(m.primary, u)
		m.retry = removeUUID(m.retry, u)
	}
	return m.persist(ctx)
}

// ClearAll empties both queues.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary = nil
	m.retry = nil
	return m.persist(ctx)
}

// Counts returns the current queue lengths.
func (m *Manager) Counts() (primary, retry int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.primary), len(m.retry)
}

func removeUUID(items []Item, uuid string) []Item {
	kept := items[:0]
	for _, it := range items {
		if it.NoteUUID != uuid {
			kept = append(kept, it)
		}
	}
	return kept
}

func (m *Manager) load(ctx context.Context, key string) ([]Item, error) {
	raw, ok, err := m.kv.GetItem(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("loading queue %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		m.log.Warn(ctx, "dropping corrupted queue state", "key", key, "error", err)
		return nil, nil
	}
	return items, nil
}

// persist must be called with m.mu held.
func (m *Manager) persist(ctx context.Context) error {
	for key, items := range map[string][]Item{primaryKey: m.primary, retryKey: m.retry} {
		data, err := json.Marshal(items)
		if err != nil {
			return err
		}
		if err := m.kv.SetItem(ctx, key, string(data)); err != nil {
			return fmt.Errorf("persisting queue %s: %w", key, err)
		}
	}
	return nil
}
