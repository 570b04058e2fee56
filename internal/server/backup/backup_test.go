package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/server/models"
	"github.com/avoronova/notekeeper/internal/server/repositories"
)

type fakeUploader struct {
	err   error
	calls int
	keys  []string
	body  []byte
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	f.keys = append(f.keys, *in.Key)
	if in.Body != nil {
		data, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, err
		}
		f.body = data
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func newTestRunner(t *testing.T) (*Runner, *fakeUploader, *repositories.MemoryManager) {
	t.Helper()

	mgr := repositories.NewMemoryManager()
	up := &fakeUploader{}
	r := &Runner{
		mgr:      mgr,
		uploader: up,
		log:      logging.NewJSONLogger(io.Discard),
		bucket:   "notekeeper-backups",
		interval: time.Hour,
		now:      func() time.Time { return time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC) },
	}
	return r, up, mgr
}

func TestUploadOnce_StoresSnapshot(t *testing.T) {
	r, up, mgr := newTestRunner(t)

	_, err := mgr.Notes().Insert(context.Background(), &models.Note{
		UUID: "u1", UserID: 1, Title: "groceries", Tags: []string{}, Tasks: []byte("[]"),
	})
	require.NoError(t, err)

	require.NoError(t, r.UploadOnce(context.Background()))

	require.Equal(t, 1, up.calls)
	assert.Equal(t, "snapshots/2024/05/notes-20240517-093000.json", up.keys[0])

	var rows []models.Note
	require.NoError(t, json.Unmarshal(up.body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "groceries", rows[0].Title)
}

func TestUploadOnce_WrapsUploadError(t *testing.T) {
	r, up, _ := newTestRunner(t)
	up.err = errors.New("access denied")

	err := r.UploadOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestRunner_DisabledWithoutBucket(t *testing.T) {
	r := &Runner{log: logging.NewJSONLogger(io.Discard)}
	assert.False(t, r.Enabled())

	// returns immediately even with a live context
	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled runner")
	}
}
