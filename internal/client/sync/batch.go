package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoronova/notekeeper/internal/client/models"
	"github.com/avoronova/notekeeper/internal/client/queue"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

// NotesAPI is the remote batch contract consumed by the engine. The HTTP
// implementation lives in internal/client/api.
type NotesAPI interface {
	BatchCreateNotes(ctx context.Context, req wire.BatchCreateRequest) (*wire.BatchResponse, error)
	BatchUpdateNotes(ctx context.Context, req wire.BatchUpdateRequest) (*wire.BatchResponse, error)
	BatchDeleteNotes(ctx context.Context, req wire.BatchDeleteRequest) (*wire.BatchResponse, error)
	GetAllNotes(ctx context.Context) ([]wire.NotePayload, error)
}

// ItemFailure is a per-item sync failure.
type ItemFailure struct {
	NoteUUID string
	Reason   string
}

// Result reports the outcome of one batch call. Conflicts are listed
// separately from failures: conflicted records keep their local content,
// get flagged, and are left for a resolution layer rather than retried.
type Result struct {
	Successful []string
	Failed     []ItemFailure
	Conflicts  []string
}

// Batcher drains queue items against the remote API and reconciles the
// per-item outcomes into the local store. Transport-level errors never
// escape as Go errors: they become uniform item failures so the caller's
// retry machinery sees one consistent shape.
type Batcher struct {
	store *storage.NoteStore
	api   NotesAPI
	log   logging.Logger
	now   func() time.Time
}

func NewBatcher(store *storage.NoteStore, api NotesAPI, log logging.Logger) *Batcher {
	return &Batcher{store: store, api: api, log: log, now: time.Now}
}

// BatchCreate pushes queued creates in one wire call.
func (b *Batcher) BatchCreate(ctx context.Context, items []queue.Item) Result {
	notes, sent, sentVersions, result := b.resolveRecords(ctx, items)
	if len(notes) == 0 {
		return result
	}

	payloads := make([]wire.NotePayload, len(notes))
	for i, n := range notes {
		payloads[i] = ToCreatePayload(n)
	}

	resp, err := b.api.BatchCreateNotes(ctx, wire.BatchCreateRequest{Notes: payloads})
	if err != nil {
		return b.failAll(ctx, sent, err, result)
	}
	return b.applyResponse(ctx, resp, sent, sentVersions, result)
}

// BatchUpdate pushes queued updates in one wire call.
func (b *Batcher) BatchUpdate(ctx context.Context, items []queue.Item) Result {
	notes, sent, sentVersions, result := b.resolveRecords(ctx, items)
	if len(notes) == 0 {
		return result
	}

	payloads := make([]wire.NotePayload, len(notes))
	for i, n := range notes {
		payloads[i] = ToUpdatePayload(n)
	}

	resp, err := b.api.BatchUpdateNotes(ctx, wire.BatchUpdateRequest{Notes: payloads})
	if err != nil {
		return b.failAll(ctx, sent, err, result)
	}
	return b.applyResponse(ctx, resp, sent, sentVersions, result)
}

// BatchDelete pushes queued deletes. Only records holding a
// server-confirmed ID reach the wire; anything never synced is removed
// locally without a network call.
func (b *Batcher) BatchDelete(ctx context.Context, items []queue.Item) Result {
	var result Result

	entries := make([]wire.DeleteEntry, 0, len(items))
	sent := make([]string, 0, len(items))

	for _, it := range items {
		n, err := b.store.Get(ctx, it.NoteUUID)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{
				NoteUUID: it.NoteUUID,
				Reason:   fmt.Sprintf("resolving local record: %v", err),
			})
			continue
		}
		if !n.Synced() {
			// nothing exists server-side; finish the delete locally
			if err := b.store.Delete(ctx, n.UUID); err != nil {
				result.Failed = append(result.Failed, ItemFailure{NoteUUID: n.UUID, Reason: err.Error()})
				continue
			}
			result.Successful = append(result.Successful, n.UUID)
			continue
		}
		entries = append(entries, wire.DeleteEntry{UUID: n.UUID, ID: n.ID})
		sent = append(sent, n.UUID)
	}

	if len(entries) == 0 {
		return result
	}

	resp, err := b.api.BatchDeleteNotes(ctx, wire.BatchDeleteRequest{Notes: entries})
	if err != nil {
		return b.failAll(ctx, sent, err, result)
	}

	ordered := len(resp.Successful) == len(sent) && len(resp.Failed) == 0

	confirmed := make(map[string]bool, len(resp.Successful))
	for i, p := range resp.Successful {
		uuid := resolvePayloadUUID(p, i, sent, ordered)
		if uuid == "" {
			continue
		}
		confirmed[uuid] = true
		if err := b.store.Delete(ctx, uuid); err != nil {
			b.log.Warn(ctx, "removing confirmed-deleted record", "uuid", uuid, "error", err)
		}
		result.Successful = append(result.Successful, uuid)
	}

	for _, e := range resp.Failed {
		uuid := resolveErrorUUID(e, sent)
		if uuid == "" || confirmed[uuid] {
			continue
		}
		// tombstone stays in place for the next attempt
		b.bumpForRetry(ctx, uuid)
		result.Failed = append(result.Failed, ItemFailure{NoteUUID: uuid, Reason: e.Error})
	}
	return result
}

// resolveRecords loads the current local record behind each queue item.
// Missing records fail individually; the batch carries on. The returned
// version map snapshots each record's LocalVersion at send time, so the
// response handler can tell whether an edit landed mid-flight.
func (b *Batcher) resolveRecords(ctx context.Context, items []queue.Item) ([]*models.Note, []string, map[string]int64, Result) {
	var result Result
	notes := make([]*models.Note, 0, len(items))
	sent := make([]string, 0, len(items))
	sentVersions := make(map[string]int64, len(items))

	for _, it := range items {
		n, err := b.store.Get(ctx, it.NoteUUID)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				b.log.Warn(ctx, "resolving queued record", "uuid", it.NoteUUID, "error", err)
			}
			result.Failed = append(result.Failed, ItemFailure{
				NoteUUID: it.NoteUUID,
				Reason:   fmt.Sprintf("resolving local record: %v", err),
			})
			continue
		}
		if it.LocalVersion != n.LocalVersion {
			b.log.Debug(ctx, "queued snapshot is stale, syncing current state",
				"uuid", n.UUID, "queued", it.LocalVersion, "current", n.LocalVersion)
		}
		notes = append(notes, n)
		sent = append(sent, n.UUID)
		sentVersions[n.UUID] = n.LocalVersion
	}
	return notes, sent, sentVersions, result
}

// applyResponse reconciles a batch response: successes overwrite local
// records with server truth, failures bump the local version and keep
// content, conflicts flag the record without touching content. A record
// edited while the call was in flight is never overwritten; it keeps the
// newer edit and stays queued for the next pass.
func (b *Batcher) applyResponse(ctx context.Context, resp *wire.BatchResponse, sent []string, sentVersions map[string]int64, result Result) Result {
	handled := make(map[string]bool, len(sent))

	successOrdered := len(resp.Successful) == len(sent) && len(resp.Failed) == 0 && len(resp.Conflicts) == 0
	conflictOrdered := len(resp.Conflicts) == len(sent) && len(resp.Successful) == 0 && len(resp.Failed) == 0

	for i, p := range resp.Successful {
		uuid := resolvePayloadUUID(p, i, sent, successOrdered)
		if uuid == "" {
			b.log.Warn(ctx, "unresolvable response item dropped", "index", i)
			continue
		}
		handled[uuid] = true

		if b.deferToMidflightEdit(ctx, uuid, p, sentVersions[uuid]) {
			continue
		}

		n := FromPayload(p)
		n.UUID = uuid
		n.ConfirmSynced(b.now())
		if err := b.store.Save(ctx, n); err != nil {
			result.Failed = append(result.Failed, ItemFailure{NoteUUID: uuid, Reason: err.Error()})
			continue
		}
		result.Successful = append(result.Successful, uuid)
	}

	for i, p := range resp.Conflicts {
		uuid := resolvePayloadUUID(p, i, sent, conflictOrdered)
		if uuid == "" || handled[uuid] {
			continue
		}
		handled[uuid] = true
		b.flagConflict(ctx, uuid)
		result.Conflicts = append(result.Conflicts, uuid)
	}

	for _, e := range resp.Failed {
		uuid := resolveErrorUUID(e, sent)
		if uuid == "" || handled[uuid] {
			continue
		}
		handled[uuid] = true
		b.bumpForRetry(ctx, uuid)
		result.Failed = append(result.Failed, ItemFailure{NoteUUID: uuid, Reason: e.Error})
	}

	// anything the server did not mention at all is treated as failed
	for _, uuid := range sent {
		if !handled[uuid] {
			b.bumpForRetry(ctx, uuid)
			result.Failed = append(result.Failed, ItemFailure{NoteUUID: uuid, Reason: "missing from batch response"})
		}
	}
	return result
}

// deferToMidflightEdit detects a write that raced with the batch call:
// the local record changed after its payload went out, so adopting the
// server's row would discard the newer edit. The server identity and
// version baseline are still recorded (without touching content), the
// record is kept visibly dirty, and the caller leaves it queued so the
// next pass pushes the edit as an update.
func (b *Batcher) deferToMidflightEdit(ctx context.Context, uuid string, p wire.NotePayload, sentVersion int64) bool {
	local, err := b.store.Get(ctx, uuid)
	if err != nil || local.LocalVersion <= sentVersion {
		return false
	}

	b.log.Debug(ctx, "record edited during batch call, keeping it queued",
		"uuid", uuid, "sent_version", sentVersion, "current_version", local.LocalVersion)

	changed := false
	if p.ID != 0 && local.ID == 0 {
		local.ID = p.ID
		changed = true
	}
	if p.SyncVersion > local.SyncVersion {
		local.SyncVersion = p.SyncVersion
		changed = true
	}
	if local.LocalVersion <= local.SyncVersion {
		local.LocalVersion = local.SyncVersion + 1
		changed = true
	}
	if changed {
		if err := b.store.Save(ctx, local); err != nil {
			b.log.Warn(ctx, "recording server identity on raced record", "uuid", uuid, "error", err)
		}
	}
	return true
}

// failAll handles a transport-level error: every sent item fails
// uniformly, no partial crediting.
func (b *Batcher) failAll(ctx context.Context, sent []string, err error, result Result) Result {
	b.log.Warn(ctx, "batch call failed", "items", len(sent), "error", err)
	for _, uuid := range sent {
		b.bumpForRetry(ctx, uuid)
		result.Failed = append(result.Failed, ItemFailure{NoteUUID: uuid, Reason: err.Error()})
	}
	return result
}

func (b *Batcher) bumpForRetry(ctx context.Context, uuid string) {
	if err := b.store.BumpForRetry(ctx, uuid); err != nil && !errors.Is(err, common.ErrNotFound) {
		b.log.Warn(ctx, "bumping local version for retry", "uuid", uuid, "error", err)
	}
}

func (b *Batcher) flagConflict(ctx context.Context, uuid string) {
	n, err := b.store.Get(ctx, uuid)
	if err != nil {
		b.log.Warn(ctx, "flagging conflicted record", "uuid", uuid, "error", err)
		return
	}
	n.Conflicted = true
	if err := b.store.Save(ctx, n); err != nil {
		b.log.Warn(ctx, "saving conflicted record", "uuid", uuid, "error", err)
	}
}
