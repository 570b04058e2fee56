package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/client/queue"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

type fakeTransport struct {
	fakeAPI
	pingErr error
	authed  bool
}

func (f *fakeTransport) Ping(context.Context) error { return f.pingErr }
func (f *fakeTransport) IsAuthenticated() bool      { return f.authed }

var _ Transport = (*fakeTransport)(nil)

func newTestOrchestrator(t *testing.T, api *fakeTransport) (*Orchestrator, *storage.NoteStore, *queue.Manager) {
	t.Helper()
	ctx := context.Background()
	log := logging.NewJSONLogger(io.Discard)
	kv := storage.NewMemoryKV()
	store := storage.NewNoteStore(kv, log)
	queues, err := queue.NewManager(ctx, kv, log)
	require.NoError(t, err)
	batcher := NewBatcher(store, api, log)
	o := NewOrchestrator(store, queues, batcher, api, events.NewBus(), log, time.Minute)
	return o, store, queues
}

func TestTriggerSync_NoOpWhenOffline(t *testing.T) {
	api := &fakeTransport{pingErr: errors.New("no route to host"), authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	n := seedNote(t, store, "offline edit")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpCreate)))

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx))

	assert.Zero(t, api.createCalls)
	primary, _ := queues.Counts()
	assert.Equal(t, 1, primary)
	assert.False(t, o.Status().IsOnline)
}

func TestTriggerSync_NoOpWhenUnauthenticated(t *testing.T) {
	api := &fakeTransport{authed: false}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	n := seedNote(t, store, "not logged in")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpCreate)))

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx))

	assert.Zero(t, api.createCalls)
	assert.False(t, o.Status().IsAuthenticated)
}

func TestTriggerSync_DrainsQueueOnSuccess(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	n := seedNote(t, store, "reconnect")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpCreate)))

	echo := ToCreatePayload(n)
	echo.ID = 21
	echo.SyncVersion = 2
	api.createResp = &wire.BatchResponse{Successful: []wire.NotePayload{echo}}

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx))

	primary, retry := queues.Counts()
	assert.Zero(t, primary)
	assert.Zero(t, retry)

	got, err := store.Get(ctx, n.UUID)
	require.NoError(t, err)
	assert.True(t, got.Synced())

	st := o.Status()
	assert.False(t, st.LastSyncAt.IsZero())
	assert.False(t, st.IsSyncing)
}

func TestTriggerSync_FailedItemsMoveToRetry(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	n := seedNote(t, store, "flaky")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpCreate)))
	api.createResp = &wire.BatchResponse{
		Failed: []wire.ItemError{{UUID: n.UUID, Error: "validation failed"}},
	}

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx))

	primary, retry := queues.Counts()
	assert.Zero(t, primary)
	assert.Equal(t, 1, retry)
	assert.Contains(t, o.Status().RecentErrors[0], "validation failed")
}

func TestTriggerSync_RetryItemsDroppedAfterMaxAttempts(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	o.maxAttempts = 2
	ctx := context.Background()

	n := seedNote(t, store, "hopeless")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpCreate)))
	api.createResp = &wire.BatchResponse{
		Failed: []wire.ItemError{{UUID: n.UUID, Error: "rejected"}},
	}

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx)) // attempt 1: primary -> retry
	require.NoError(t, o.TriggerSync(ctx)) // attempt 2: dropped

	primary, retry := queues.Counts()
	assert.Zero(t, primary)
	assert.Zero(t, retry)

	var gaveUp bool
	for _, msg := range o.Status().RecentErrors {
		if msg == "gave up on "+n.UUID+" after 2 attempts" {
			gaveUp = true
		}
	}
	assert.True(t, gaveUp)
}

func TestTriggerSync_ConflictSettlesQueueEntry(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	n := seedNote(t, store, "disputed")
	n.ID = 5
	require.NoError(t, store.Save(ctx, n))
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpUpdate)))

	api.updateResp = &wire.BatchResponse{Conflicts: []wire.NotePayload{ToUpdatePayload(n)}}

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx))

	primary, retry := queues.Counts()
	assert.Zero(t, primary)
	assert.Zero(t, retry)

	got, err := store.Get(ctx, n.UUID)
	require.NoError(t, err)
	assert.True(t, got.Conflicted)
}

func TestTriggerSync_QueuedCreateForSyncedRecordSentAsUpdate(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	// The create was queued before the server assigned an ID; by the
	// time this pass runs the record is synced, so a create would be a
	// duplicate.
	n := seedNote(t, store, "late identity")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n, queue.OpCreate)))
	n.ID = 14
	n.SyncVersion = 1
	require.NoError(t, store.Save(ctx, n))

	echo := ToUpdatePayload(n)
	echo.SyncVersion = 2
	api.updateResp = &wire.BatchResponse{Successful: []wire.NotePayload{echo}}

	o.probe(ctx)
	require.NoError(t, o.TriggerSync(ctx))

	assert.Zero(t, api.createCalls)
	assert.Equal(t, 1, api.updateCalls)
	primary, retry := queues.Counts()
	assert.Zero(t, primary)
	assert.Zero(t, retry)
}

func TestReconcile_AdoptsServerRecordsWithoutPendingEdits(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, _ := newTestOrchestrator(t, api)
	ctx := context.Background()

	// record with pending local edits must not be clobbered
	pending := seedNote(t, store, "mine")
	pending.ID = 1
	pending.TouchLocal(time.Now())
	require.NoError(t, store.Save(ctx, pending))

	serverOnly := wire.NotePayload{UUID: "server-uuid", ID: 2, Title: "from server", SyncVersion: 3}
	serverPending := ToUpdatePayload(pending)
	serverPending.Title = "server overwrote"
	api.notes = []wire.NotePayload{serverOnly, serverPending}

	o.probe(ctx)
	require.NoError(t, o.Reconcile(ctx))

	adopted, err := store.Get(ctx, "server-uuid")
	require.NoError(t, err)
	assert.Equal(t, "from server", adopted.Title)
	assert.Equal(t, int64(2), adopted.ID)
	assert.False(t, adopted.NeedsSync())

	kept, err := store.Get(ctx, pending.UUID)
	require.NoError(t, err)
	assert.Equal(t, "mine", kept.Title)
}

func TestReconcile_PullErrorRecordedNotFatal(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, _, _ := newTestOrchestrator(t, api)
	ctx := context.Background()

	o.probe(ctx)
	api.err = errors.New("boom")
	require.NoError(t, o.Reconcile(ctx))

	require.NotEmpty(t, o.Status().RecentErrors)
	assert.Contains(t, o.Status().RecentErrors[0], "pulling server state")
}

func TestStatus_ReportsQueueCounts(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, store, queues := newTestOrchestrator(t, api)
	ctx := context.Background()

	n1 := seedNote(t, store, "one")
	n2 := seedNote(t, store, "two")
	require.NoError(t, queues.Enqueue(ctx, itemFor(n1, queue.OpCreate)))
	require.NoError(t, queues.Enqueue(ctx, itemFor(n2, queue.OpCreate)))
	require.NoError(t, queues.MoveToRetry(ctx, []queue.Item{itemFor(n2, queue.OpCreate)}))

	st := o.Status()
	assert.Equal(t, 1, st.PrimaryQueueCount)
	assert.Equal(t, 1, st.RetryQueueCount)
	assert.True(t, st.IsAuthenticated)
}

func TestRecentErrors_Bounded(t *testing.T) {
	api := &fakeTransport{authed: true}
	o, _, _ := newTestOrchestrator(t, api)

	for i := 0; i < maxRecentErrors+5; i++ {
		o.recordError("err")
	}
	assert.Len(t, o.Status().RecentErrors, maxRecentErrors)
}
