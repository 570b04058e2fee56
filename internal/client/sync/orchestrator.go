package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/client/queue"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/logging"
)

// Transport is everything the orchestrator needs from the remote side:
// the batch contract plus an availability probe and the session state.
type Transport interface {
	NotesAPI
	Ping(ctx context.Context) error
	IsAuthenticated() bool
}

// Status is the snapshot exposed to the UI layer.
type Status struct {
	IsOnline          bool
	IsAuthenticated   bool
	IsAPIAvailable    bool
	IsSyncing         bool
	PrimaryQueueCount int
	RetryQueueCount   int
	LastSyncAt        time.Time
	RecentErrors      []string
}

const (
	maxRecentErrors    = 10
	defaultMaxAttempts = 5
	probeTimeout       = 3 * time.Second
)

// Orchestrator decides when sync happens: on a timer, on connectivity and
// auth transitions, on push events and on manual triggers. At most one
// sync pass runs at a time; a trigger arriving mid-pass is a no-op and
// the next tick picks up whatever is left. Sync failures never propagate
// out of this type; they are recorded into a bounded error list.
type Orchestrator struct {
	queues  *queue.Manager
	store   *storage.NoteStore
	batcher *Batcher
	api     Transport
	bus     *events.Bus
	log     logging.Logger

	interval    time.Duration
	maxAttempts int

	mu           sync.Mutex
	runCtx       context.Context
	online       bool
	apiAvailable bool
	syncing      bool
	lastSyncAt   time.Time
	recentErrors []string
	attempts     map[string]int
}

func NewOrchestrator(store *storage.NoteStore, queues *queue.Manager, batcher *Batcher,
	api Transport, bus *events.Bus, log logging.Logger, interval time.Duration) *Orchestrator {

	o := &Orchestrator{
		queues:      queues,
		store:       store,
		batcher:     batcher,
		api:         api,
		bus:         bus,
		log:         log,
		interval:    interval,
		maxAttempts: defaultMaxAttempts,
		attempts:    make(map[string]int),
	}

	bus.Subscribe(events.NotesChanged, func(events.Event) { o.asyncReconcile("push event") })
	bus.Subscribe(events.Authenticated, func(events.Event) { o.asyncReconcile("authenticated") })
	bus.Subscribe(events.WentOnline, func(events.Event) { o.setOnline(true) })
	bus.Subscribe(events.WentOffline, func(events.Event) { o.setOnline(false) })

	return o
}

// Run drives the periodic cadence until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	o.runCtx = ctx
	o.mu.Unlock()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.probe(ctx)
			if err := o.TriggerSync(ctx); err != nil {
				o.log.Warn(ctx, "periodic sync", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// probe checks API reachability and records online/offline transitions.
func (o *Orchestrator) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := o.api.Ping(pingCtx)
	cancel()

	o.mu.Lock()
	was := o.online
	o.online = err == nil
	o.apiAvailable = err == nil
	o.mu.Unlock()

	if was != (err == nil) {
		if err == nil {
			o.log.Info(ctx, "connection restored")
		} else {
			o.log.Info(ctx, "went offline", "error", err)
		}
	}
}

// setOnline applies an externally signalled connectivity change. Going
// online re-probes before the next pass; going offline suspends sync and
// lets queued operations accumulate.
func (o *Orchestrator) setOnline(online bool) {
	o.mu.Lock()
	o.online = online
	o.apiAvailable = online
	ctx := o.runCtx
	o.mu.Unlock()

	if online && ctx != nil {
		go func() {
			o.probe(ctx)
			_ = o.TriggerSync(ctx)
		}()
	}
}

// TriggerSync runs one guarded sync pass. It is a no-op when offline,
// unauthenticated, or when a pass is already in flight.
func (o *Orchestrator) TriggerSync(ctx context.Context) error {
	release, ok := o.begin()
	if !ok {
		return nil
	}
	defer release()

	o.syncOnce(ctx)
	return nil
}

// Reconcile runs a full pass: push all queued local changes, then pull
// the latest server state and adopt it for every record without pending
// local edits.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	release, ok := o.begin()
	if !ok {
		return nil
	}
	defer release()

	o.syncOnce(ctx)
	o.pull(ctx)
	return nil
}

// begin checks the eligibility guard and claims the in-flight slot.
func (o *Orchestrator) begin() (release func(), ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.syncing || !o.online || !o.apiAvailable || !o.api.IsAuthenticated() {
		return nil, false
	}
	o.syncing = true
	return func() {
		o.mu.Lock()
		o.syncing = false
		o.lastSyncAt = time.Now()
		o.mu.Unlock()
	}, true
}

// syncOnce drains both queues through the batch handler and applies the
// queue bookkeeping for each outcome.
func (o *Orchestrator) syncOnce(ctx context.Context) {
	items := append(o.queues.Retry(), o.queues.Primary()...)
	if len(items) == 0 {
		return
	}

	var creates, updates, deletes []queue.Item
	for _, it := range items {
		if it.Op == queue.OpDelete {
			deletes = append(deletes, it)
			continue
		}
		// The queued op may predate the server assigning an ID (for
		// example when an edit raced a create confirmation). Classify by
		// the record's current state so such items go out as updates.
		if n, err := o.store.Get(ctx, it.NoteUUID); err == nil && n.Synced() {
			updates = append(updates, it)
		} else {
			creates = append(creates, it)
		}
	}

	o.apply(ctx, o.batcher.BatchCreate(ctx, creates), creates)
	o.apply(ctx, o.batcher.BatchUpdate(ctx, updates), updates)
	o.apply(ctx, o.batcher.BatchDelete(ctx, deletes), deletes)
}

// apply updates queues and attempt counters from one batch result.
func (o *Orchestrator) apply(ctx context.Context, res Result, items []queue.Item) {
	fromPrimary := make(map[string]queue.Item, len(items))
	for _, it := range o.queues.Primary() {
		fromPrimary[it.NoteUUID] = it
	}

	done := append(append([]string(nil), res.Successful...), res.Conflicts...)
	if len(done) > 0 {
		if err := o.queues.Remove(ctx, done...); err != nil {
			o.log.Warn(ctx, "removing settled queue entries", "error", err)
		}
		o.mu.Lock()
		for _, uuid := range done {
			delete(o.attempts, uuid)
		}
		o.mu.Unlock()
	}
	for _, uuid := range res.Conflicts {
		o.recordError(fmt.Sprintf("conflict on %s: concurrent edit, local copy flagged", uuid))
	}

	var toRetry []queue.Item
	var exhausted []string
	for _, f := range res.Failed {
		o.recordError(fmt.Sprintf("sync %s: %s", f.NoteUUID, f.Reason))

		o.mu.Lock()
		o.attempts[f.NoteUUID]++
		n := o.attempts[f.NoteUUID]
		o.mu.Unlock()

		if n >= o.maxAttempts {
			exhausted = append(exhausted, f.NoteUUID)
			continue
		}
		if it, ok := fromPrimary[f.NoteUUID]; ok {
			toRetry = append(toRetry, it)
		}
	}

	if len(toRetry) > 0 {
		if err := o.queues.MoveToRetry(ctx, toRetry); err != nil {
			o.log.Warn(ctx, "moving failed items to retry", "error", err)
		}
	}
	if len(exhausted) > 0 {
		o.log.Warn(ctx, "dropping items after repeated failures", "count", len(exhausted))
		if err := o.queues.Remove(ctx, exhausted...); err != nil {
			o.log.Warn(ctx, "dropping exhausted queue entries", "error", err)
		}
		o.mu.Lock()
		for _, uuid := range exhausted {
			delete(o.attempts, uuid)
			o.recentErrors = appendBounded(o.recentErrors,
				fmt.Sprintf("gave up on %s after %d attempts", uuid, o.maxAttempts))
		}
		o.mu.Unlock()
	}
}

// pull adopts current server state for every record that has no pending
// local edits. Locally modified or conflicted records are left alone;
// their changes go out on the next push.
func (o *Orchestrator) pull(ctx context.Context) {
	payloads, err := o.api.GetAllNotes(ctx)
	if err != nil {
		o.recordError(fmt.Sprintf("pulling server state: %v", err))
		return
	}

	now := time.Now()
	for _, p := range payloads {
		local, err := o.store.Get(ctx, p.UUID)
		if err == nil && (local.NeedsSync() || local.Conflicted) {
			continue
		}
		n := FromPayload(p)
		n.ConfirmSynced(now)
		if err := o.store.Save(ctx, n); err != nil {
			o.recordError(fmt.Sprintf("adopting server record %s: %v", p.UUID, err))
		}
	}
}

// asyncReconcile runs a reconciliation off the event-bus goroutine.
func (o *Orchestrator) asyncReconcile(reason string) {
	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		o.log.Debug(ctx, "reconciliation triggered", "reason", reason)
		o.probe(ctx)
		if err := o.Reconcile(ctx); err != nil {
			o.log.Warn(ctx, "triggered reconciliation", "error", err)
		}
	}()
}

// Status returns the current snapshot for status indicators.
func (o *Orchestrator) Status() Status {
	primary, retry := o.queues.Counts()

	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		IsOnline:          o.online,
		IsAuthenticated:   o.api.IsAuthenticated(),
		IsAPIAvailable:    o.apiAvailable,
		IsSyncing:         o.syncing,
		PrimaryQueueCount: primary,
		RetryQueueCount:   retry,
		LastSyncAt:        o.lastSyncAt,
		RecentErrors:      append([]string(nil), o.recentErrors...),
	}
}

func (o *Orchestrator) recordError(msg string) {
	o.mu.Lock()
	o.recentErrors = appendBounded(o.recentErrors, msg)
	o.mu.Unlock()
}

func appendBounded(errs []string, msg string) []string {
	errs = append(errs, msg)
	if len(errs) > maxRecentErrors {
		errs = errs[len(errs)-maxRecentErrors:]
	}
	return errs
}
