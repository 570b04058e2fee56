package queue

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/logging"
)

func newTestManager(t *testing.T, kv storage.KV) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), kv, logging.NewJSONLogger(io.Discard))
	require.NoError(t, err)
	return m
}

func item(uuid string, op Op) Item {
	return Item{NoteUUID: uuid, Op: op, LocalVersion: 1, SyncVersion: 1, EnqueuedAt: time.Now()}
}

func TestEnqueue_AtMostOnePerRecord(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, m.Enqueue(ctx, item("a", OpCreate)))
	require.NoError(t, m.Enqueue(ctx, item("a", OpUpdate)))
	require.NoError(t, m.Enqueue(ctx, item("a", OpDelete)))

	p := m.Primary()
	require.Len(t, p, 1)
	assert.Equal(t, OpDelete, p[0].Op)
}

func TestEnqueue_FIFOOrder(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, m.Enqueue(ctx, item("a", OpCreate)))
	require.NoError(t, m.Enqueue(ctx, item("b", OpCreate)))
	require.NoError(t, m.Enqueue(ctx, item("c", OpCreate)))
	// superseding does not reorder
	require.NoError(t, m.Enqueue(ctx, item("a", OpUpdate)))

	p := m.Primary()
	require.Len(t, p, 3)
	assert.Equal(t, "a", p[0].NoteUUID)
	assert.Equal(t, "b", p[1].NoteUUID)
	assert.Equal(t, "c", p[2].NoteUUID)
}

func TestEnqueue_SupersedesRetryEntry(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, m.Enqueue(ctx, item("a", OpUpdate)))
	require.NoError(t, m.MoveToRetry(ctx, m.Primary()))

	require.NoError(t, m.Enqueue(ctx, item("a", OpDelete)))

	assert.Empty(t, m.Retry())
	p := m.Primary()
	require.Len(t, p, 1)
	assert.Equal(t, OpDelete, p[0].Op)
}

func TestMoveToRetry(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, m.Enqueue(ctx, item("a", OpCreate)))
	require.NoError(t, m.Enqueue(ctx, item("b", OpUpdate)))

	require.NoError(t, m.MoveToRetry(ctx, []Item{item("a", OpCreate)}))

	primary, retry := m.Counts()
	assert.Equal(t, 1, primary)
	assert.Equal(t, 1, retry)
	assert.Equal(t, "b", m.Primary()[0].NoteUUID)
	assert.Equal(t, "a", m.Retry()[0].NoteUUID)
}

func TestRemove_DropsFromBothQueues(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, m.Enqueue(ctx, item("a", OpCreate)))
	require.NoError(t, m.MoveToRetry(ctx, m.Primary()))
	require.NoError(t, m.Enqueue(ctx, item("b", OpCreate)))

	require.NoError(t, m.Remove(ctx, "a", "b"))

	primary, retry := m.Counts()
	assert.Zero(t, primary)
	assert.Zero(t, retry)
}

func TestQueueState_SurvivesRestart(t *testing.T) {
	kv := storage.NewMemoryKV()
	ctx := context.Background()

	m1 := newTestManager(t, kv)
	require.NoError(t, m1.Enqueue(ctx, item("a", OpCreate)))
	require.NoError(t, m1.Enqueue(ctx, item("b", OpUpdate)))
	require.NoError(t, m1.MoveToRetry(ctx, []Item{item("b", OpUpdate)}))

	m2 := newTestManager(t, kv)
	require.Len(t, m2.Primary(), 1)
	require.Len(t, m2.Retry(), 1)
	assert.Equal(t, "a", m2.Primary()[0].NoteUUID)
	assert.Equal(t, "b", m2.Retry()[0].NoteUUID)
}

func TestClearAll(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, m.Enqueue(ctx, item("a", OpCreate)))
	require.NoError(t, m.ClearAll(ctx))

	primary, retry := m.Counts()
	assert.Zero(t, primary)
	assert.Zero(t, retry)
}
