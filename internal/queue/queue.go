// Package queue implements the interactive delivery pipeline: a single
// worker goroutine owns the retry working set and every operation
// reaches it as a message, so retry bookkeeping needs no locks and at
// most one delivery attempt is ever in flight.
package queue

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/sif-notify/internal/model"
)

// DeliverFunc attempts to deliver one notification to the remote
// backend. In production this is a push-gateway call; tests inject
// deterministic behavior.
type DeliverFunc func(ctx context.Context, n model.Notification) error

// EventKind names the terminal outcomes the queue reports.
type EventKind string

const (
	// EventDelivered means the notification was delivered.
	EventDelivered EventKind = "delivered"

	// EventFailed means retries are exhausted.
	EventFailed EventKind = "failed"
)

// Event is a terminal delivery outcome.
type Event struct {
	Kind           EventKind
	NotificationID string

	// Attempts is how many delivery attempts were made.
	Attempts int
}

// Status is a point-in-time snapshot for diagnostics.
type Status struct {
	Pending    int
	Processing bool
}

// Config holds the retry policy.
type Config struct {
	// MaxRetries bounds attempts per notification.
	MaxRetries int

	// RetryDelay is the fixed wait after a failed attempt before the
	// item becomes eligible again.
	RetryDelay time.Duration
}

// DefaultConfig returns the production retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
	}
}

// attemptTimeout is the maximum time allowed for a single delivery call.
const attemptTimeout = 30 * time.Second

// queuedItem is the transient wrapper the worker owns while a
// notification is in flight. It is discarded on terminal outcome.
type queuedItem struct {
	notification model.Notification
	retryCount   int
	scheduledAt  time.Time
	lastAttempt  time.Time
}

// eligibleAt returns the earliest instant this item may be attempted.
func (it *queuedItem) eligibleAt(retryDelay time.Duration) time.Time {
	if it.lastAttempt.IsZero() {
		return it.scheduledAt
	}
	retryAt := it.lastAttempt.Add(retryDelay)
	if retryAt.After(it.scheduledAt) {
		return retryAt
	}
	return it.scheduledAt
}

// command is a message to the worker goroutine.
type command struct {
	enqueue *queuedItem
	status  chan Status
	clear   bool
	retry   bool
}

// Queue is the serialized delivery worker.
type Queue struct {
	deliver DeliverFunc
	cfg     Config
	log     *logrus.Logger

	cmds   chan command
	events chan Event
	done   chan struct{}

	processing atomic.Bool
	stopOnce   sync.Once
}

// New creates a queue and starts its worker goroutine.
func New(deliver DeliverFunc, cfg Config, log *logrus.Logger) *Queue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	q := &Queue{
		deliver: deliver,
		cfg:     cfg,
		log:     log,
		cmds:    make(chan command, 256),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Events returns the channel on which terminal outcomes are reported.
// The service consumes this to advance notification state.
func (q *Queue) Events() <-chan Event {
	return q.events
}

// Enqueue hands a notification to the worker for delivery no earlier
// than scheduledAt. A zero scheduledAt means now. Never blocks.
func (q *Queue) Enqueue(n model.Notification, scheduledAt time.Time) {
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}
	q.send(command{enqueue: &queuedItem{
		notification: n.Clone(),
		scheduledAt:  scheduledAt,
	}})
}

// Status returns a snapshot of the working set size and whether a
// delivery pass is active. Diagnostics only.
func (q *Queue) Status() Status {
	reply := make(chan Status, 1)
	q.send(command{status: reply})

	select {
	case s := <-reply:
		return s
	case <-q.done:
		return Status{}
	}
}

// Clear discards all pending work unconditionally. Discarded items keep
// their pending state and no events are emitted; sign-out uses this as
// a soft cancel.
func (q *Queue) Clear() {
	q.send(command{clear: true})
}

// RetryFailed resets retry bookkeeping for every item still in the
// working set and makes them immediately eligible. Items already
// removed after exhausting retries are not revived.
func (q *Queue) RetryFailed() {
	q.send(command{retry: true})
}

// Stop terminates the worker. Pending work is dropped.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
}

// send delivers a command to the worker without blocking the caller.
func (q *Queue) send(cmd command) {
	select {
	case q.cmds <- cmd:
	case <-q.done:
	default:
		// Command buffer full; hand off without blocking the caller.
		go func() {
			select {
			case q.cmds <- cmd:
			case <-q.done:
			}
		}()
	}
}

// run is the worker loop. It owns the working set exclusively: all
// mutations happen here, and the loop sleeps until the next
// eligibility window rather than busy-spinning. With an empty set it
// parks on the command channel.
func (q *Queue) run() {
	var items []*queuedItem
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var wake <-chan time.Time
		if len(items) > 0 {
			wait := q.nextWait(items)
			if wait <= 0 {
				items = q.processPass(items)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			wake = timer.C
		}

		select {
		case cmd := <-q.cmds:
			items = q.handle(cmd, items)
		case <-wake:
			// Re-evaluate eligibility on the next iteration.
		case <-q.done:
			return
		}
	}
}

// handle applies one command to the working set.
func (q *Queue) handle(cmd command, items []*queuedItem) []*queuedItem {
	switch {
	case cmd.enqueue != nil:
		return append(items, cmd.enqueue)

	case cmd.status != nil:
		cmd.status <- Status{
			Pending:    len(items),
			Processing: q.processing.Load(),
		}
		return items

	case cmd.clear:
		if len(items) > 0 {
			q.log.WithField("discarded", len(items)).Info("delivery queue cleared")
		}
		return nil

	case cmd.retry:
		for _, it := range items {
			it.retryCount = 0
			it.lastAttempt = time.Time{}
		}
		return items
	}
	return items
}

// nextWait returns how long until the earliest item becomes eligible.
// Zero or negative means at least one item is eligible now.
func (q *Queue) nextWait(items []*queuedItem) time.Duration {
	now := time.Now()
	min := time.Duration(-1)
	for _, it := range items {
		wait := it.eligibleAt(q.cfg.RetryDelay).Sub(now)
		if min < 0 || wait < min {
			min = wait
		}
	}
	return min
}

// processPass attempts every currently eligible item in ascending
// original scheduledAt order and returns the surviving working set.
func (q *Queue) processPass(items []*queuedItem) []*queuedItem {
	q.processing.Store(true)
	defer q.processing.Store(false)

	now := time.Now()
	var eligible []*queuedItem
	for _, it := range items {
		if !it.eligibleAt(q.cfg.RetryDelay).After(now) {
			eligible = append(eligible, it)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].scheduledAt.Before(eligible[j].scheduledAt)
	})

	remove := make(map[*queuedItem]bool)
	for _, it := range eligible {
		if q.attempt(it) {
			remove[it] = true
		}
	}

	kept := items[:0]
	for _, it := range items {
		if !remove[it] {
			kept = append(kept, it)
		}
	}
	return kept
}

// attempt makes one delivery attempt and reports whether the item
// reached a terminal outcome and should leave the working set.
func (q *Queue) attempt(it *queuedItem) bool {
	it.retryCount++
	it.lastAttempt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
	err := q.deliver(ctx, it.notification)
	cancel()

	if err == nil {
		q.emit(Event{
			Kind:           EventDelivered,
			NotificationID: it.notification.ID,
			Attempts:       it.retryCount,
		})
		return true
	}

	if it.retryCount >= q.cfg.MaxRetries {
		q.log.WithFields(logrus.Fields{
			"notification": it.notification.ID,
			"attempts":     it.retryCount,
		}).WithError(err).Warn("delivery retries exhausted")
		q.emit(Event{
			Kind:           EventFailed,
			NotificationID: it.notification.ID,
			Attempts:       it.retryCount,
		})
		return true
	}

	// Transient failure: routine, retried silently on a later pass.
	q.log.WithFields(logrus.Fields{
		"notification": it.notification.ID,
		"attempt":      it.retryCount,
	}).WithError(err).Debug("delivery attempt failed")
	return false
}

// emit reports a terminal outcome, yielding only on shutdown.
func (q *Queue) emit(e Event) {
	select {
	case q.events <- e:
	case <-q.done:
	}
}
