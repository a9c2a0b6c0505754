// Package scheduler registers deferred, time-triggered local alerts
// with the platform clock. It is independent of the delivery queue: the
// queue handles interactive delivery now, the scheduler handles alerts
// the platform fires later.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/sif-notify/internal/model"
	"github.com/nhle/sif-notify/internal/platform"
)

// ErrInvalidSchedule rejects fire dates that are not strictly in the
// future or are further ahead than the configured horizon.
var ErrInvalidSchedule = errors.New("invalid schedule date")

// DefaultMaxAhead is how far in the future an alert may be scheduled.
const DefaultMaxAhead = 30 * 24 * time.Hour

// Action is a categorized action the platform attaches to an alert.
type Action struct {
	ID    string
	Title string
}

// Scheduler is a thin adapter over the platform trigger registry.
type Scheduler struct {
	triggers platform.TriggerRegistry
	maxAhead time.Duration
	log      *logrus.Logger

	mu         sync.Mutex
	categories map[model.Category][]Action
}

// New creates a scheduler over the given trigger registry.
// maxAhead <= 0 falls back to DefaultMaxAhead.
func New(triggers platform.TriggerRegistry, maxAhead time.Duration, log *logrus.Logger) *Scheduler {
	if maxAhead <= 0 {
		maxAhead = DefaultMaxAhead
	}
	return &Scheduler{
		triggers:   triggers,
		maxAhead:   maxAhead,
		log:        log,
		categories: make(map[model.Category][]Action),
	}
}

// ScheduleLocalNotification registers a trigger keyed by id that fires
// at the given date. The date must be strictly in the future and at
// most maxAhead away; violations return ErrInvalidSchedule and register
// nothing. Non-empty actions register the type's category, idempotently.
func (s *Scheduler) ScheduleLocalNotification(
	id, title, body string,
	date time.Time,
	typ model.NotificationType,
	actions []Action,
	userInfo map[string]string,
) error {
	now := time.Now()
	if !date.After(now) {
		return fmt.Errorf("%w: %s is not in the future", ErrInvalidSchedule, date.Format(time.RFC3339))
	}
	if date.Sub(now) > s.maxAhead {
		return fmt.Errorf("%w: %s is more than %s ahead", ErrInvalidSchedule, date.Format(time.RFC3339), s.maxAhead)
	}

	payload := map[string]string{
		"title": title,
		"body":  body,
		"type":  string(typ),
	}
	for k, v := range userInfo {
		payload[k] = v
	}

	if err := s.triggers.Register(id, date, payload); err != nil {
		return fmt.Errorf("registering trigger %s: %w", id, err)
	}

	if len(actions) > 0 {
		s.registerCategory(typ.Category(), actions)
	}

	s.log.WithFields(logrus.Fields{
		"id":      id,
		"fire_at": date.Format(time.RFC3339),
		"type":    typ,
	}).Debug("scheduled local notification")
	return nil
}

// ScheduleReminder schedules a reminder-typed alert referencing the
// original notification. An empty customMessage falls back to a
// generic reminder line.
func (s *Scheduler) ScheduleReminder(n model.Notification, date time.Time, customMessage string) error {
	body := customMessage
	if body == "" {
		body = fmt.Sprintf("Reminder: %s", n.Title)
	}

	userInfo := map[string]string{
		model.PayloadOriginID: n.ID,
	}
	if customMessage != "" {
		userInfo[model.PayloadCustomMessage] = customMessage
	}

	return s.ScheduleLocalNotification(
		"reminder-"+n.ID,
		n.Title,
		body,
		date,
		model.TypeReminder,
		nil,
		userInfo,
	)
}

// Cancel removes the pending trigger with the given id. Canceling an
// unknown id is a no-op.
func (s *Scheduler) Cancel(id string) {
	s.triggers.Unregister(id)
}

// CancelMany removes the pending triggers with the given ids.
func (s *Scheduler) CancelMany(ids []string) {
	for _, id := range ids {
		s.triggers.Unregister(id)
	}
}

// CancelAll removes every pending trigger.
func (s *Scheduler) CancelAll() {
	for _, t := range s.triggers.Pending() {
		s.triggers.Unregister(t.ID)
	}
}

// NextScheduledDate returns the earliest upcoming fire time across all
// scheduled alerts. ok is false when nothing is scheduled.
func (s *Scheduler) NextScheduledDate() (next time.Time, ok bool) {
	for _, t := range s.triggers.Pending() {
		if !ok || t.FireAt.Before(next) {
			next = t.FireAt
			ok = true
		}
	}
	return next, ok
}

// registerCategory records the action set for a category. Re-registering
// the same category replaces its actions; the operation is idempotent.
func (s *Scheduler) registerCategory(cat model.Category, actions []Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[cat] = append([]Action(nil), actions...)
}

// RegisteredCategories returns the categories with registered actions.
func (s *Scheduler) RegisteredCategories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats := make([]model.Category, 0, len(s.categories))
	for c := range s.categories {
		cats = append(cats, c)
	}
	return cats
}
