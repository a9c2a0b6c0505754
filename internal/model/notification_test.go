package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationDefaults(t *testing.T) {
	n := New(TypeSIFReceived, PriorityHigh, "title", "body")

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, StatePending, n.State)
	assert.False(t, n.Read)
	assert.False(t, n.Archived)
	assert.Nil(t, n.ScheduledAt)
	assert.WithinDuration(t, time.Now().UTC(), n.CreatedAt, time.Second)

	other := New(TypeSIFReceived, PriorityHigh, "title", "body")
	assert.NotEqual(t, n.ID, other.ID)
}

func TestTypeCategory(t *testing.T) {
	cases := map[NotificationType]Category{
		TypeMessageResponse: CategorySocial,
		TypeSIFReceived:     CategorySocial,
		TypeSIFDelivered:    CategorySocial,
		TypeFriendRequest:   CategorySocial,
		TypeMilestone:       CategoryActivity,
		TypeReminder:        CategoryReminders,
		TypeSystem:          CategorySystem,
	}
	for typ, want := range cases {
		assert.Equal(t, want, typ.Category(), "type %s", typ)
	}

	assert.Equal(t, CategorySystem, NotificationType("unknown").Category())
}

func TestTypeInteractive(t *testing.T) {
	assert.False(t, TypeReminder.Interactive())
	assert.False(t, TypeSystem.Interactive())

	for _, typ := range []NotificationType{
		TypeMessageResponse, TypeSIFReceived, TypeSIFDelivered,
		TypeFriendRequest, TypeMilestone,
	} {
		assert.True(t, typ.Interactive(), "type %s", typ)
	}
}

func TestDeepLink(t *testing.T) {
	n := New(TypeSIFReceived, PriorityNormal, "t", "b")
	assert.Empty(t, n.DeepLink())

	n.Payload = map[string]string{PayloadDeepLink: "sif://profile/9"}
	assert.Equal(t, "sif://profile/9", n.DeepLink())
}

func TestCloneIsIndependent(t *testing.T) {
	at := time.Now().Add(time.Hour)
	n := New(TypeSIFReceived, PriorityNormal, "t", "b")
	n.Payload = map[string]string{PayloadUserID: "u1"}
	n.ScheduledAt = &at

	clone := n.Clone()
	require.Equal(t, n.ID, clone.ID)

	clone.Payload[PayloadUserID] = "u2"
	*clone.ScheduledAt = at.Add(time.Hour)

	assert.Equal(t, "u1", n.Payload[PayloadUserID], "payload must be deep-copied")
	assert.True(t, n.ScheduledAt.Equal(at), "scheduled time must be deep-copied")
}
