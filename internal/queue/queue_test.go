package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/tests/testutil"
)

// testConfig keeps retry delays short so tests settle quickly.
func testConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: 20 * time.Millisecond}
}

// waitEvent blocks until the queue reports a terminal outcome.
func waitEvent(t *testing.T, q *Queue, timeout time.Duration) Event {
	t.Helper()
	select {
	case e := <-q.Events():
		return e
	case <-time.After(timeout):
		t.Fatalf("no queue event within %s", timeout)
		return Event{}
	}
}

func TestRetryBound(t *testing.T) {
	var attempts atomic.Int32
	deliver := func(_ context.Context, _ model.Notification) error {
		attempts.Add(1)
		return errors.New("gateway down")
	}

	q := New(deliver, testConfig(), testutil.QuietLogger())
	defer q.Stop()

	n := model.New(model.TypeSIFReceived, model.PriorityNormal, "hi", "body")
	q.Enqueue(n, time.Time{})

	e := waitEvent(t, q, 2*time.Second)
	assert.Equal(t, EventFailed, e.Kind)
	assert.Equal(t, n.ID, e.NotificationID)
	assert.Equal(t, 3, e.Attempts)
	assert.Equal(t, int32(3), attempts.Load())

	// Exhaustion is terminal: no further events or attempts.
	select {
	case e := <-q.Events():
		t.Fatalf("unexpected extra event %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestEventualSuccess(t *testing.T) {
	var attempts atomic.Int32
	deliver := func(_ context.Context, _ model.Notification) error {
		if attempts.Add(1) <= 2 {
			return errors.New("transient")
		}
		return nil
	}

	q := New(deliver, testConfig(), testutil.QuietLogger())
	defer q.Stop()

	n := model.New(model.TypeFriendRequest, model.PriorityHigh, "request", "body")
	q.Enqueue(n, time.Time{})

	e := waitEvent(t, q, 2*time.Second)
	assert.Equal(t, EventDelivered, e.Kind)
	assert.Equal(t, n.ID, e.NotificationID)
	assert.Equal(t, 3, e.Attempts)
}

func TestFailingItemDoesNotBlockOthers(t *testing.T) {
	a := model.New(model.TypeSIFReceived, model.PriorityNormal, "a", "always fails")
	b := model.New(model.TypeSIFReceived, model.PriorityNormal, "b", "succeeds")

	deliver := func(_ context.Context, n model.Notification) error {
		if n.ID == a.ID {
			return errors.New("unreachable")
		}
		return nil
	}

	q := New(deliver, testConfig(), testutil.QuietLogger())
	defer q.Stop()

	q.Enqueue(a, time.Time{})
	q.Enqueue(b, time.Time{})

	first := waitEvent(t, q, 2*time.Second)
	second := waitEvent(t, q, 2*time.Second)

	// B succeeds on its first attempt, well before A exhausts retries.
	assert.Equal(t, EventDelivered, first.Kind)
	assert.Equal(t, b.ID, first.NotificationID)

	assert.Equal(t, EventFailed, second.Kind)
	assert.Equal(t, a.ID, second.NotificationID)
	assert.Equal(t, 3, second.Attempts)
}

func TestEligibilityWaitsForScheduledAt(t *testing.T) {
	var attempts atomic.Int32
	deliver := func(_ context.Context, _ model.Notification) error {
		attempts.Add(1)
		return nil
	}

	q := New(deliver, testConfig(), testutil.QuietLogger())
	defer q.Stop()

	n := model.New(model.TypeMilestone, model.PriorityLow, "later", "body")
	q.Enqueue(n, time.Now().Add(80*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), attempts.Load(), "attempted before the eligibility window opened")

	e := waitEvent(t, q, 2*time.Second)
	assert.Equal(t, EventDelivered, e.Kind)
}

func TestStatusSnapshot(t *testing.T) {
	deliver := func(_ context.Context, _ model.Notification) error { return nil }

	q := New(deliver, testConfig(), testutil.QuietLogger())
	defer q.Stop()

	s := q.Status()
	assert.Equal(t, 0, s.Pending)
	assert.False(t, s.Processing)

	n := model.New(model.TypeSIFReceived, model.PriorityNormal, "later", "body")
	q.Enqueue(n, time.Now().Add(time.Hour))

	require.Eventually(t, func() bool {
		return q.Status().Pending == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClearIsSoftCancel(t *testing.T) {
	var attempts atomic.Int32
	deliver := func(_ context.Context, _ model.Notification) error {
		attempts.Add(1)
		return nil
	}

	q := New(deliver, testConfig(), testutil.QuietLogger())
	defer q.Stop()

	n := model.New(model.TypeSIFReceived, model.PriorityNormal, "soon", "body")
	q.Enqueue(n, time.Now().Add(300*time.Millisecond))

	require.Eventually(t, func() bool {
		return q.Status().Pending == 1
	}, time.Second, 5*time.Millisecond)

	q.Clear()

	require.Eventually(t, func() bool {
		return q.Status().Pending == 0
	}, time.Second, 5*time.Millisecond)

	// Discarded work produces no attempts and no events, even after the
	// original eligibility window has passed.
	select {
	case e := <-q.Events():
		t.Fatalf("unexpected event after clear: %+v", e)
	case <-time.After(400 * time.Millisecond):
	}
	assert.Equal(t, int32(0), attempts.Load())
}

func TestRetryFailedResetsResidentItems(t *testing.T) {
	var attempts atomic.Int32
	deliver := func(_ context.Context, _ model.Notification) error {
		attempts.Add(1)
		return errors.New("down")
	}

	// A long retry delay parks the item after its first failure.
	cfg := Config{MaxRetries: 3, RetryDelay: time.Hour}
	q := New(deliver, cfg, testutil.QuietLogger())
	defer q.Stop()

	n := model.New(model.TypeSIFReceived, model.PriorityNormal, "stuck", "body")
	q.Enqueue(n, time.Time{})

	require.Eventually(t, func() bool {
		return attempts.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Without a reset the next attempt is an hour away.
	q.RetryFailed()

	require.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, q.Status().Pending, "reset item should remain in the working set")
}
