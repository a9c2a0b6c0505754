// Package service is the orchestrator and single source of truth for
// the notification list. All external interaction with the engine goes
// through it: it mediates storage, the delivery queue, the scheduler,
// the permission and badge boundaries, and the event bus.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/sif-notify/internal/bus"
	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/internal/platform"
	"github.com/nhle/sif-notify/internal/queue"
	"github.com/nhle/sif-notify/internal/scheduler"
	"github.com/nhle/sif-notify/internal/store"
)

// Filter selects a slice of the in-memory list.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterUnread    Filter = "unread"
	FilterRead      Filter = "read"
	FilterArchived  Filter = "archived"
	FilterFailed    Filter = "failed"
	FilterScheduled Filter = "scheduled"
)

// SortOrder names the available sort modes.
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortPriority SortOrder = "priority"
	SortType     SortOrder = "type"
)

// Snapshot is the immutable view handed to listeners after each
// settled mutation.
type Snapshot struct {
	Notifications []model.Notification
	Badge         int
	UserID        string
}

// Listener receives snapshots. Called outside the service lock.
type Listener func(Snapshot)

// Config holds service-level settings.
type Config struct {
	// Retention is how long read notifications are kept.
	Retention time.Duration
}

// Service owns the canonical notification list. The list is only ever
// mutated under the service lock; the queue holds transient copies and
// reports outcomes back through the event channel.
type Service struct {
	store *store.NotificationStore
	queue *queue.Queue
	sched *scheduler.Scheduler
	badge platform.Badge
	perms platform.Permissions
	bus   *bus.Bus
	cfg   Config
	log   *logrus.Logger

	mu            sync.Mutex
	notifications []model.Notification
	userID        string
	permStatus    platform.PermissionStatus
	listeners     []Listener

	done     chan struct{}
	stopOnce sync.Once
}

// New wires the service to its collaborators and starts consuming
// queue outcomes. The caller owns the lifecycle and must call Close.
func New(
	st *store.NotificationStore,
	q *queue.Queue,
	sched *scheduler.Scheduler,
	badge platform.Badge,
	perms platform.Permissions,
	b *bus.Bus,
	cfg Config,
	log *logrus.Logger,
) *Service {
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}

	s := &Service{
		store:      st,
		queue:      q,
		sched:      sched,
		badge:      badge,
		perms:      perms,
		bus:        b,
		cfg:        cfg,
		log:        log,
		permStatus: platform.PermissionNotDetermined,
		done:       make(chan struct{}),
	}
	go s.consumeQueueEvents()
	return s
}

// Close stops the service and its delivery queue.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.done) })
	s.queue.Stop()
}

// Subscribe registers a listener for post-mutation snapshots.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Add inserts a notification at the front of the list, persists, and
// forwards interactive types to the delivery queue. Inserting an id
// already present is a no-op.
func (s *Service) Add(n model.Notification) {
	s.mu.Lock()
	for _, existing := range s.notifications {
		if existing.ID == n.ID {
			s.mu.Unlock()
			return
		}
	}

	// Newest-first is an invariant of the in-memory list.
	s.notifications = append([]model.Notification{n.Clone()}, s.notifications...)
	s.persistLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)

	if n.Type.Interactive() {
		at := time.Now()
		if n.ScheduledAt != nil {
			at = *n.ScheduledAt
		}
		s.queue.Enqueue(n, at)
	}
}

// MarkAsRead flips the read flag for one notification. Monotonic:
// re-marking an already-read item changes nothing.
func (s *Service) MarkAsRead(id string) {
	s.mutate(func() bool {
		for i := range s.notifications {
			if s.notifications[i].ID == id && !s.notifications[i].Read {
				s.notifications[i].Read = true
				return true
			}
		}
		return false
	})
}

// MarkAllAsRead flips the read flag on every unread notification.
func (s *Service) MarkAllAsRead() {
	s.mutate(func() bool {
		changed := false
		for i := range s.notifications {
			if !s.notifications[i].Read {
				s.notifications[i].Read = true
				changed = true
			}
		}
		return changed
	})
}

// HandleTap marks the notification read and publishes a tapped event
// carrying its deep link for the UI layer to route.
func (s *Service) HandleTap(id string) {
	s.mu.Lock()
	var deepLink string
	found := false
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			deepLink = s.notifications[i].DeepLink()
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.persistLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	s.bus.Publish(bus.Event{
		Kind:           bus.EventTapped,
		NotificationID: id,
		DeepLink:       deepLink,
	})
}

// Delete removes the notification from the list and cancels any pending
// platform trigger with the same id, including a reminder derived from
// it. Harmless if none exists.
func (s *Service) Delete(id string) {
	s.mutate(func() bool {
		for i := range s.notifications {
			if s.notifications[i].ID == id {
				s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
				return true
			}
		}
		return false
	})
	s.sched.Cancel(id)
	s.sched.Cancel("reminder-" + id)
}

// Archive hides the notification from default views without deleting
// it. Archived items stay in storage until expiry.
func (s *Service) Archive(id string) {
	s.mutate(func() bool {
		for i := range s.notifications {
			if s.notifications[i].ID == id && !s.notifications[i].Archived {
				s.notifications[i].Archived = true
				return true
			}
		}
		return false
	})
}

// Filtered returns the notifications matching the filter, optionally
// restricted to one category. Pure: the list is not mutated. FilterAll
// excludes archived items.
func (s *Service) Filtered(f Filter, category *model.Category) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Notification
	for _, n := range s.notifications {
		if !matches(n, f) {
			continue
		}
		if category != nil && n.Type.Category() != *category {
			continue
		}
		out = append(out, n.Clone())
	}
	return out
}

// matches reports whether a notification passes the filter.
func matches(n model.Notification, f Filter) bool {
	switch f {
	case FilterUnread:
		return !n.Read && !n.Archived
	case FilterRead:
		return n.Read && !n.Archived
	case FilterArchived:
		return n.Archived
	case FilterFailed:
		return n.State == model.StateFailed && !n.Archived
	case FilterScheduled:
		return n.ScheduledAt != nil && !n.Archived
	default:
		return !n.Archived
	}
}

// Sorted returns a sorted copy of the given list. Priority sorts higher
// priority first with newest-first ties; type groups by category tag in
// alphabetic order with newest-first ties.
func Sorted(list []model.Notification, by SortOrder) []model.Notification {
	out := make([]model.Notification, len(list))
	copy(out, list)

	switch by {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Priority != out[j].Priority {
				return out[i].Priority > out[j].Priority
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortType:
		sort.SliceStable(out, func(i, j int) bool {
			ci, cj := out[i].Type.Category(), out[j].Type.Category()
			if ci != cj {
				return ci < cj
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// UnreadCount returns the current badge value: unread and not archived.
func (s *Service) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCountLocked()
}

// PermissionStatus returns the last observed alert permission state.
func (s *Service) PermissionStatus() platform.PermissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permStatus
}

// QueueStatus exposes the delivery queue snapshot for diagnostics.
func (s *Service) QueueStatus() queue.Status {
	return s.queue.Status()
}

// ScheduleReminder schedules a deferred reminder for a notification.
func (s *Service) ScheduleReminder(n model.Notification, at time.Time, customMessage string) error {
	return s.sched.ScheduleReminder(n, at, customMessage)
}

// SignIn requests alert permission, reloads the user's persisted
// history, and drops expired read notifications.
func (s *Service) SignIn(ctx context.Context, userID string) {
	granted, err := s.perms.Request(ctx)
	status := platform.PermissionDenied
	if err != nil {
		s.log.WithError(err).Warn("permission request failed")
		status = platform.PermissionNotDetermined
	} else if granted {
		status = platform.PermissionAuthorized
	}

	loaded := s.store.RemoveExpired(ctx, s.cfg.Retention)

	s.mu.Lock()
	s.userID = userID
	s.permStatus = status
	s.notifications = Sorted(loaded, SortNewest)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.badge.SetBadgeCount(snapshot.Badge)
	s.notify(snapshot)

	s.log.WithFields(logrus.Fields{
		"user":       userID,
		"loaded":     len(loaded),
		"permission": status,
	}).Info("signed in")
}

// SignOut clears the in-memory list, the badge, and the delivery queue.
// Storage is kept: the next sign-in of the same user reloads history.
func (s *Service) SignOut() {
	s.queue.Clear()

	s.mu.Lock()
	s.userID = ""
	s.notifications = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.badge.SetBadgeCount(0)
	s.notify(snapshot)
}

// RetryFailedDeliveries resets retry bookkeeping for items still held
// by the queue. Terminally failed notifications are not revived;
// re-submission means creating a new notification.
func (s *Service) RetryFailedDeliveries() {
	s.queue.RetryFailed()
}

// mutate runs fn under the lock and, if it reports a change, persists,
// recomputes the badge, and notifies listeners.
func (s *Service) mutate(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.persistLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// consumeQueueEvents marshals terminal delivery outcomes back into the
// canonical list and republishes them on the bus.
func (s *Service) consumeQueueEvents() {
	for {
		select {
		case e := <-s.queue.Events():
			s.applyQueueEvent(e)
		case <-s.done:
			return
		}
	}
}

// applyQueueEvent advances one notification's delivery state. State
// only moves forward: a notification that already left pending is
// never touched again.
func (s *Service) applyQueueEvent(e queue.Event) {
	target := model.StateDelivered
	kind := bus.EventDelivered
	if e.Kind == queue.EventFailed {
		target = model.StateFailed
		kind = bus.EventDeliveryFailed
	}

	s.mu.Lock()
	changed := false
	for i := range s.notifications {
		if s.notifications[i].ID == e.NotificationID &&
			s.notifications[i].State == model.StatePending {
			s.notifications[i].State = target
			changed = true
			break
		}
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	s.persistLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	s.bus.Publish(bus.Event{Kind: kind, NotificationID: e.NotificationID})
}

// persistLocked writes the current list through the storage layer and
// pushes the recomputed badge. Callers hold the lock.
func (s *Service) persistLocked() {
	list := make([]model.Notification, len(s.notifications))
	copy(list, s.notifications)
	s.store.Save(context.Background(), list)
	s.badge.SetBadgeCount(s.unreadCountLocked())
}

// unreadCountLocked recounts unread, active notifications. The badge is
// only ever set from a full recount, never adjusted incrementally.
func (s *Service) unreadCountLocked() int {
	count := 0
	for _, n := range s.notifications {
		if !n.Read && !n.Archived {
			count++
		}
	}
	return count
}

// snapshotLocked builds an immutable snapshot. Callers hold the lock.
func (s *Service) snapshotLocked() Snapshot {
	list := make([]model.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		list = append(list, n.Clone())
	}
	return Snapshot{
		Notifications: list,
		Badge:         s.unreadCountLocked(),
		UserID:        s.userID,
	}
}

// notify fans a snapshot out to listeners outside the lock.
func (s *Service) notify(snapshot Snapshot) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
