package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/client/models"
	"github.com/avoronova/notekeeper/internal/client/queue"
	"github.com/avoronova/notekeeper/internal/client/storage"
	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
)

type tagFixture struct {
	tags   *TagService
	notes  *NoteService
	store  *storage.NoteStore
	queues *queue.Manager
}

func newTestTagService(t *testing.T) (*TagService, *NoteService) {
	t.Helper()
	f := newTagFixture(t)
	return f.tags, f.notes
}

func newTagFixture(t *testing.T) tagFixture {
	t.Helper()
	ctx := context.Background()
	log := logging.NewJSONLogger(io.Discard)
	kv := storage.NewMemoryKV()
	store := storage.NewNoteStore(kv, log)
	queues, err := queue.NewManager(ctx, kv, log)
	require.NoError(t, err)
	notes := NewNoteService(store, queues, events.NewBus(), log)
	return tagFixture{
		tags:   NewTagService(kv, store, notes, log),
		notes:  notes,
		store:  store,
		queues: queues,
	}
}

func TestListTags_PredefinedAlwaysPresent(t *testing.T) {
	s, _ := newTestTagService(t)

	tags, err := s.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, len(models.PredefinedTags))
	for _, tag := range tags {
		assert.True(t, tag.Predefined)
		assert.Zero(t, tag.UsageCount)
	}
}

func TestAddTag_CustomTagListed(t *testing.T) {
	s, _ := newTestTagService(t)
	ctx := context.Background()

	require.NoError(t, s.AddTag(ctx, "Errands"))

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, len(models.PredefinedTags)+1)

	last := tags[len(tags)-1]
	assert.Equal(t, "errands", last.Name)
	assert.False(t, last.Predefined)
}

func TestAddTag_Duplicates(t *testing.T) {
	s, _ := newTestTagService(t)
	ctx := context.Background()

	require.NoError(t, s.AddTag(ctx, "errands"))
	assert.ErrorIs(t, s.AddTag(ctx, "errands"), common.ErrTagAlreadyExists)
	assert.ErrorIs(t, s.AddTag(ctx, "work"), common.ErrTagAlreadyExists)
}

func TestRemoveTag_PredefinedRefused(t *testing.T) {
	s, _ := newTestTagService(t)

	assert.ErrorIs(t, s.RemoveTag(context.Background(), "work"), common.ErrPredefinedTag)
}

func TestRemoveTag_StripsFromNotes(t *testing.T) {
	f := newTagFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tags.AddTag(ctx, "errands"))
	n, err := f.notes.CreateNote(ctx, "shopping", "")
	require.NoError(t, err)
	_, err = f.notes.UpdateNote(ctx, n.UUID, func(n *models.Note) {
		n.Tags = append(n.Tags, "errands", "work")
	})
	require.NoError(t, err)

	// Settle the record as if a sync pass had confirmed it, so the strip
	// below is the only pending change.
	stored, err := f.store.Get(ctx, n.UUID)
	require.NoError(t, err)
	stored.ID = 7
	stored.ConfirmSynced(time.Now())
	require.NoError(t, f.store.Save(ctx, stored))
	require.NoError(t, f.queues.Remove(ctx, n.UUID))

	require.NoError(t, f.tags.RemoveTag(ctx, "errands"))

	got, err := f.notes.GetNote(ctx, n.UUID)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, got.Tags)

	// The strip is a real edit: it must be marked dirty and queued so the
	// server copy loses the tag too.
	assert.True(t, got.NeedsSync())
	items := f.queues.Primary()
	require.Len(t, items, 1)
	assert.Equal(t, n.UUID, items[0].NoteUUID)
	assert.Equal(t, queue.OpUpdate, items[0].Op)

	tags, err := f.tags.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, len(models.PredefinedTags))
}

func TestRemoveTag_UnknownCustomTag(t *testing.T) {
	s, _ := newTestTagService(t)

	assert.ErrorIs(t, s.RemoveTag(context.Background(), "nope"), common.ErrNotFound)
}

func TestListTags_UsageCounts(t *testing.T) {
	s, notes := newTestTagService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := notes.CreateNote(ctx, "tagged", "")
		require.NoError(t, err)
		_, err = notes.UpdateNote(ctx, n.UUID, func(n *models.Note) {
			n.Tags = append(n.Tags, "work")
		})
		require.NoError(t, err)
	}

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	for _, tag := range tags {
		if tag.Name == "work" {
			assert.Equal(t, 3, tag.UsageCount)
		}
	}
}
