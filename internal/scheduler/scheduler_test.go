package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/internal/platform"
	"github.com/nhle/sif-notify/tests/testutil"
)

func newTestScheduler() (*Scheduler, *platform.MemoryTriggers) {
	triggers := platform.NewMemoryTriggers()
	return New(triggers, 0, testutil.QuietLogger()), triggers
}

func TestScheduleRejectsPastDates(t *testing.T) {
	s, triggers := newTestScheduler()

	err := s.ScheduleLocalNotification(
		"id-1", "title", "body",
		time.Now().Add(-time.Minute),
		model.TypeReminder, nil, nil,
	)

	require.ErrorIs(t, err, ErrInvalidSchedule)
	assert.Empty(t, triggers.Pending(), "a rejected date must register nothing")
}

func TestScheduleRejectsDatesBeyondHorizon(t *testing.T) {
	s, triggers := newTestScheduler()

	err := s.ScheduleLocalNotification(
		"id-1", "title", "body",
		time.Now().Add(31*24*time.Hour),
		model.TypeReminder, nil, nil,
	)

	require.ErrorIs(t, err, ErrInvalidSchedule)
	assert.Empty(t, triggers.Pending())
}

func TestScheduleAcceptsDateJustInsideHorizon(t *testing.T) {
	s, triggers := newTestScheduler()

	at := time.Now().Add(30*24*time.Hour - time.Second)
	err := s.ScheduleLocalNotification(
		"id-1", "title", "body", at,
		model.TypeMilestone, nil, nil,
	)

	require.NoError(t, err)
	pending := triggers.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "id-1", pending[0].ID)
	assert.True(t, pending[0].FireAt.Equal(at))
}

func TestScheduleCarriesPayload(t *testing.T) {
	s, triggers := newTestScheduler()

	err := s.ScheduleLocalNotification(
		"id-1", "Hello", "World",
		time.Now().Add(time.Hour),
		model.TypeMilestone, nil,
		map[string]string{model.PayloadUserID: "u7"},
	)
	require.NoError(t, err)

	pending := triggers.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Hello", pending[0].Payload["title"])
	assert.Equal(t, "World", pending[0].Payload["body"])
	assert.Equal(t, string(model.TypeMilestone), pending[0].Payload["type"])
	assert.Equal(t, "u7", pending[0].Payload[model.PayloadUserID])
}

func TestScheduleReminderReferencesOrigin(t *testing.T) {
	s, triggers := newTestScheduler()

	n := model.New(model.TypeSIFReceived, model.PriorityNormal, "A SIF for you", "body")
	require.NoError(t, s.ScheduleReminder(n, time.Now().Add(time.Hour), ""))

	pending := triggers.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "reminder-"+n.ID, pending[0].ID)
	assert.Equal(t, n.ID, pending[0].Payload[model.PayloadOriginID])
	assert.Equal(t, "Reminder: A SIF for you", pending[0].Payload["body"],
		"empty custom message falls back to a generic line")
}

func TestScheduleReminderCustomMessage(t *testing.T) {
	s, triggers := newTestScheduler()

	n := model.New(model.TypeSIFReceived, model.PriorityNormal, "title", "body")
	require.NoError(t, s.ScheduleReminder(n, time.Now().Add(time.Hour), "Don't forget!"))

	pending := triggers.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Don't forget!", pending[0].Payload["body"])
	assert.Equal(t, "Don't forget!", pending[0].Payload[model.PayloadCustomMessage])
}

func TestCancelIsIdempotent(t *testing.T) {
	s, triggers := newTestScheduler()

	require.NoError(t, s.ScheduleLocalNotification(
		"id-1", "t", "b", time.Now().Add(time.Hour),
		model.TypeReminder, nil, nil,
	))

	s.Cancel("id-1")
	s.Cancel("id-1")
	s.Cancel("never-existed")

	assert.Empty(t, triggers.Pending())
}

func TestCancelAll(t *testing.T) {
	s, triggers := newTestScheduler()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.ScheduleLocalNotification(
			id, "t", "b", time.Now().Add(time.Hour),
			model.TypeReminder, nil, nil,
		))
	}

	s.CancelAll()
	assert.Empty(t, triggers.Pending())
}

func TestNextScheduledDate(t *testing.T) {
	s, _ := newTestScheduler()

	_, ok := s.NextScheduledDate()
	assert.False(t, ok, "nothing scheduled yet")

	later := time.Now().Add(2 * time.Hour)
	sooner := time.Now().Add(time.Hour)
	require.NoError(t, s.ScheduleLocalNotification("later", "t", "b", later, model.TypeReminder, nil, nil))
	require.NoError(t, s.ScheduleLocalNotification("sooner", "t", "b", sooner, model.TypeReminder, nil, nil))

	next, ok := s.NextScheduledDate()
	require.True(t, ok)
	assert.True(t, next.Equal(sooner))
}

func TestCategoryRegistrationIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler()

	actions := []Action{{ID: "reply", Title: "Reply"}}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.ScheduleLocalNotification(
			"id", "t", "b", time.Now().Add(time.Hour),
			model.TypeFriendRequest, actions, nil,
		))
	}

	cats := s.RegisteredCategories()
	require.Len(t, cats, 1)
	assert.Equal(t, model.CategorySocial, cats[0])
}
