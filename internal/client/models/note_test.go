package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNote_StartsUnsynced(t *testing.T) {
	now := time.Now()
	n := NewNote("title", "content", now)

	assert.NotEmpty(t, n.UUID)
	assert.Zero(t, n.ID)
	assert.False(t, n.Synced())
	assert.True(t, n.NeedsSync())
	assert.EqualValues(t, 1, n.LocalVersion)
	assert.EqualValues(t, 1, n.SyncVersion)
	assert.True(t, n.LastSyncedAt.IsZero())
}

func TestTouchLocal_VersionMonotonicity(t *testing.T) {
	n := NewNote("t", "c", time.Now())

	prev := n.LocalVersion
	for i := 0; i < 5; i++ {
		n.TouchLocal(time.Now())
		assert.Greater(t, n.LocalVersion, prev)
		prev = n.LocalVersion
	}
	// failures keep increasing the counter too
	n.BumpForRetry()
	assert.Greater(t, n.LocalVersion, prev)
	// server-owned fields never move on local mutation
	assert.EqualValues(t, 1, n.SyncVersion)
	assert.True(t, n.LastSyncedAt.IsZero())
}

func TestConfirmSynced_AdoptsServerBaseline(t *testing.T) {
	n := NewNote("t", "c", time.Now())
	n.TouchLocal(time.Now())
	n.ID = 42
	n.SyncVersion = 3

	now := time.Now()
	n.ConfirmSynced(now)

	assert.EqualValues(t, 3, n.LocalVersion)
	assert.Equal(t, now, n.LastSyncedAt)
	assert.False(t, n.NeedsSync())
}

func TestDecodeNote_FillsDefaults(t *testing.T) {
	// a record written by an old client: no tags, tasks or version fields
	old := []byte(`{"uuid":"u1","title":"old","content":"x","createdAt":"2024-01-02T03:04:05Z"}`)

	n, err := DecodeNote(old)
	require.NoError(t, err)

	assert.Equal(t, []string{}, n.Tags)
	assert.Equal(t, []NoteTask{}, n.Tasks)
	assert.EqualValues(t, 1, n.SyncVersion)
	assert.EqualValues(t, 1, n.LocalVersion)
	assert.False(t, n.IsPinned)
}

func TestDecodeNote_RoundTrip(t *testing.T) {
	n := NewNote("t", "c", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	n.Tags = []string{"work"}
	n.Tasks = []NoteTask{{UUID: "tk1", Text: "do it", Completed: true}}
	n.Position = Position{X: 10.5, Y: -3}

	data, err := n.Encode()
	require.NoError(t, err)

	got, err := DecodeNote(data)
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestClone_IsDeep(t *testing.T) {
	n := NewNote("t", "c", time.Now())
	n.Tasks = []NoteTask{{UUID: "tk1", Text: "a"}}
	n.Tags = []string{"work"}

	c := n.Clone()
	c.Tasks[0].Text = "b"
	c.Tags[0] = "personal"

	assert.Equal(t, "a", n.Tasks[0].Text)
	assert.Equal(t, "work", n.Tags[0])
}
