package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTriggersRejectInvalidFireDates(t *testing.T) {
	r := NewMemoryTriggers()

	err := r.Register("past", time.Now().Add(-time.Minute), nil)
	assert.ErrorIs(t, err, ErrTriggerRejected)

	err = r.Register("too-far", time.Now().Add(31*24*time.Hour), nil)
	assert.ErrorIs(t, err, ErrTriggerRejected)

	assert.Empty(t, r.Pending())
}

func TestMemoryTriggersRegisterReplacesByID(t *testing.T) {
	r := NewMemoryTriggers()

	first := time.Now().Add(time.Hour)
	second := time.Now().Add(2 * time.Hour)
	require.NoError(t, r.Register("id", first, nil))
	require.NoError(t, r.Register("id", second, nil))

	pending := r.Pending()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].FireAt.Equal(second))
}

func TestMemoryTriggersPendingIsOrderedByFireTime(t *testing.T) {
	r := NewMemoryTriggers()

	late := time.Now().Add(3 * time.Hour)
	early := time.Now().Add(time.Hour)
	mid := time.Now().Add(2 * time.Hour)
	require.NoError(t, r.Register("late", late, nil))
	require.NoError(t, r.Register("early", early, nil))
	require.NoError(t, r.Register("mid", mid, nil))

	pending := r.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, "early", pending[0].ID)
	assert.Equal(t, "mid", pending[1].ID)
	assert.Equal(t, "late", pending[2].ID)
}

func TestStaticPermissions(t *testing.T) {
	ctx := context.Background()

	granted, err := StaticPermissions{Status: PermissionAuthorized}.Request(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = StaticPermissions{Status: PermissionDenied}.Request(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	status, err := StaticPermissions{Status: PermissionProvisional}.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionProvisional, status)
}
