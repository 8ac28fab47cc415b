package queue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/dynaform/database"
	"github.com/mbolis/dynaform/model"
)

func openQueue(t *testing.T) *Queue {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "local.sqlite"), database.Local)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func payload(form int, name string) model.Submission {
	return model.Submission{
		Form:      form,
		FormTitle: "Intake",
		Sender:    "Nurse Joy",
		ResponseData: model.ResponseData{
			"Patient Information": {"Name": name},
		},
	}
}

type fakeServer struct {
	calls []model.Submission
	fail  map[string]bool
}

func (s *fakeServer) Submit(ctx context.Context, sub model.Submission) (model.FormResponse, error) {
	s.calls = append(s.calls, sub)
	name := sub.ResponseData["Patient Information"]["Name"].(string)
	if s.fail[name] {
		return model.FormResponse{}, fmt.Errorf("HTTP 500 for %s", name)
	}
	return model.FormResponse{ID: len(s.calls), Form: sub.Form}, nil
}

func TestEnqueueAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t)

	var ids []int64
	for i, name := range []string{"first", "second", "third"} {
		id, err := q.Enqueue(ctx, payload(i+1, name))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.True(t, ids[0] < ids[1] && ids[1] < ids[2])

	entries, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})

	e := entries[2]
	assert.Equal(t, 1, e.Payload.Form)
	assert.Equal(t, "Nurse Joy", e.Payload.Sender)
	assert.Equal(t, "first", e.Payload.ResponseData["Patient Information"]["Name"])
	assert.NotEmpty(t, e.Payload.IdempotencyKey)
}

func TestEnqueueKeepsExistingKey(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t)

	sub := payload(1, "x")
	sub.IdempotencyKey = "fixed"
	_, err := q.Enqueue(ctx, sub)
	require.NoError(t, err)

	entries, err := q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fixed", entries[0].Payload.IdempotencyKey)
}

func TestFlushKeepsFailedEntry(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t)

	for _, name := range []string{"first", "second", "third"} {
		_, err := q.Enqueue(ctx, payload(1, name))
		require.NoError(t, err)
	}
	before, err := q.List(ctx)
	require.NoError(t, err)

	srv := &fakeServer{fail: map[string]bool{"second": true}}
	report, err := q.Flush(ctx, srv)
	require.NoError(t, err)

	// sent in listing order, the failure did not stop the flush
	require.Len(t, srv.calls, 3)
	assert.Equal(t, "third", srv.calls[0].ResponseData["Patient Information"]["Name"])
	assert.Equal(t, "second", srv.calls[1].ResponseData["Patient Information"]["Name"])
	assert.Equal(t, "first", srv.calls[2].ResponseData["Patient Information"]["Name"])

	assert.Equal(t, []int64{before[0].ID, before[2].ID}, report.Sent)
	assert.Equal(t, []int64{before[1].ID}, report.Failed)
	require.Error(t, report.Errors)
	assert.Contains(t, report.Errors.Error(), "HTTP 500")

	after, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[1].ID, after[0].ID)

	// the next manual flush retries it with the same key
	srv.fail = nil
	report, err = q.Flush(ctx, srv)
	require.NoError(t, err)
	assert.Equal(t, []int64{before[1].ID}, report.Sent)
	assert.NoError(t, report.Errors)
	assert.Equal(t, srv.calls[1].IdempotencyKey, srv.calls[3].IdempotencyKey)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t)

	_, err := q.Enqueue(ctx, payload(1, "only"))
	require.NoError(t, err)
	before, err := q.List(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Delete(ctx, 9999))

	after, err := q.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, q.Delete(ctx, before[0].ID))
	require.NoError(t, q.Delete(ctx, before[0].ID))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "local.sqlite"), database.Local)
	require.NoError(t, err)
	q := New(db)
	require.NoError(t, db.Close())

	_, err = q.Enqueue(ctx, payload(1, "lost"))
	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "enqueue.insert", serr.Op)

	_, err = q.List(ctx)
	assert.True(t, errors.As(err, &serr))

	_, err = q.Flush(ctx, &fakeServer{})
	assert.True(t, errors.As(err, &serr))
}

func TestFlushStopsOnCancelledContext(t *testing.T) {
	q := openQueue(t)
	_, err := q.Enqueue(context.Background(), payload(1, "x"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &fakeServer{}
	_, err = q.Flush(ctx, srv)
	assert.Error(t, err)
	assert.Empty(t, srv.calls)
}
