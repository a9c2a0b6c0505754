package store

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sif-notify/internal/model"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestStore(max int) (*NotificationStore, *MemoryBlobStore) {
	blobs := NewMemoryBlobStore()
	return NewNotificationStore(blobs, max, quietLogger()), blobs
}

func TestSaveCapsStoredCount(t *testing.T) {
	s, _ := newTestStore(DefaultMaxStored)
	ctx := context.Background()

	list := make([]model.Notification, 0, 600)
	for i := 0; i < 600; i++ {
		n := model.New(model.TypeSystem, model.PriorityNormal, fmt.Sprintf("n%d", i), "b")
		list = append(list, n)
	}

	s.Save(ctx, list)
	loaded := s.Load(ctx)

	require.Len(t, loaded, DefaultMaxStored)
	// Callers pass newest-first, so the cap drops the tail (oldest).
	assert.Equal(t, list[0].ID, loaded[0].ID)
	assert.Equal(t, list[DefaultMaxStored-1].ID, loaded[DefaultMaxStored-1].ID)
}

func TestLoadAbsentIsEmpty(t *testing.T) {
	s, _ := newTestStore(10)
	assert.Empty(t, s.Load(context.Background()))
}

func TestLoadCorruptBlobIsEmpty(t *testing.T) {
	s, blobs := newTestStore(10)
	ctx := context.Background()

	require.NoError(t, blobs.Set(ctx, notificationsKey, []byte("{not json")))
	assert.Empty(t, s.Load(ctx))
}

func TestSaveSwallowsBackendFailure(t *testing.T) {
	s := NewNotificationStore(failingBlobStore{}, 10, quietLogger())

	// Must not panic or surface the error; Save is best-effort.
	s.Save(context.Background(), []model.Notification{
		model.New(model.TypeSystem, model.PriorityNormal, "t", "b"),
	})
}

func TestRemoveExpiredKeepsUnread(t *testing.T) {
	s, _ := newTestStore(10)
	ctx := context.Background()

	oldRead := model.New(model.TypeSystem, model.PriorityNormal, "old read", "b")
	oldRead.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	oldRead.Read = true

	oldUnread := model.New(model.TypeSystem, model.PriorityNormal, "old unread", "b")
	oldUnread.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)

	freshRead := model.New(model.TypeSystem, model.PriorityNormal, "fresh read", "b")
	freshRead.Read = true

	s.Save(ctx, []model.Notification{oldRead, oldUnread, freshRead})

	kept := s.RemoveExpired(ctx, 30*24*time.Hour)

	ids := make([]string, 0, len(kept))
	for _, n := range kept {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{oldUnread.ID, freshRead.ID}, ids,
		"unread items never expire; fresh read items survive")

	// The filtered list is written back.
	assert.Len(t, s.Load(ctx), 2)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _ := newTestStore(10)
	ctx := context.Background()

	a := model.New(model.TypeSIFReceived, model.PriorityHigh, "a", "b")
	a.Payload = map[string]string{model.PayloadUserID: "u1"}
	s.Save(ctx, []model.Notification{a})

	blob, err := s.ExportAll(ctx)
	require.NoError(t, err)

	other, _ := newTestStore(10)
	require.NoError(t, other.ImportAll(ctx, blob))

	loaded := other.Load(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, a.ID, loaded[0].ID)
	assert.Equal(t, "u1", loaded[0].Payload[model.PayloadUserID])
}

func TestImportRejectsGarbage(t *testing.T) {
	s, _ := newTestStore(10)
	err := s.ImportAll(context.Background(), []byte("not a list"))
	assert.Error(t, err)
}

// failingBlobStore errors on every operation.
type failingBlobStore struct{}

func (failingBlobStore) Get(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("backend down")
}

func (failingBlobStore) Set(context.Context, string, []byte) error {
	return fmt.Errorf("backend down")
}

func (failingBlobStore) Remove(context.Context, string) error {
	return fmt.Errorf("backend down")
}
