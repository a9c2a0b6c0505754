// Package platform defines the boundaries the engine crosses into the
// host OS: alert permissions, the app badge, and calendar triggers.
// In-memory implementations back tests and the demo binary; a real
// client substitutes adapters over the platform SDK.
package platform

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// PermissionStatus is the current alert permission state. Denial is a
// first-class state, not an error.
type PermissionStatus string

const (
	PermissionNotDetermined PermissionStatus = "not_determined"
	PermissionDenied        PermissionStatus = "denied"
	PermissionAuthorized    PermissionStatus = "authorized"
	PermissionProvisional   PermissionStatus = "provisional"
)

// Permissions is the boundary to the OS alert permission system.
type Permissions interface {
	// Request asks the user for permission to display alerts.
	Request(ctx context.Context) (bool, error)

	// Check returns the current status without side effects.
	Check(ctx context.Context) (PermissionStatus, error)
}

// Badge is the boundary to the app icon badge. Writes are fire-and-forget.
type Badge interface {
	SetBadgeCount(n int)
}

// Trigger is a pending time-based alert registered with the platform.
type Trigger struct {
	ID      string
	FireAt  time.Time
	Payload map[string]string
}

// ErrTriggerRejected is returned by a registry when a fire date is not
// strictly in the future or is beyond the registry's horizon. The
// validation lives at this boundary as well as in the scheduler.
var ErrTriggerRejected = errors.New("trigger fire date rejected")

// TriggerRegistry is the boundary to the platform's calendar triggers.
type TriggerRegistry interface {
	Register(id string, fireAt time.Time, payload map[string]string) error
	Unregister(id string)
	Pending() []Trigger
}

// StaticPermissions is a Permissions implementation with a fixed answer.
type StaticPermissions struct {
	Status PermissionStatus
}

// Request grants permission whenever the static status is authorized or
// provisional.
func (p StaticPermissions) Request(_ context.Context) (bool, error) {
	return p.Status == PermissionAuthorized || p.Status == PermissionProvisional, nil
}

// Check returns the fixed status.
func (p StaticPermissions) Check(_ context.Context) (PermissionStatus, error) {
	return p.Status, nil
}

// MemoryBadge records the last badge count set.
type MemoryBadge struct {
	mu    sync.Mutex
	count int
}

// SetBadgeCount stores the count.
func (b *MemoryBadge) SetBadgeCount(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count = n
}

// Count returns the last count set.
func (b *MemoryBadge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// MemoryTriggers is an in-memory TriggerRegistry.
type MemoryTriggers struct {
	mu       sync.Mutex
	triggers map[string]Trigger

	// MaxAhead bounds how far in the future a trigger may fire.
	// Zero means 30 days.
	MaxAhead time.Duration
}

// NewMemoryTriggers creates an empty in-memory registry.
func NewMemoryTriggers() *MemoryTriggers {
	return &MemoryTriggers{triggers: make(map[string]Trigger)}
}

// Register stores a trigger keyed by id, replacing any existing one.
// Fire dates in the past or beyond the horizon are rejected.
func (r *MemoryTriggers) Register(id string, fireAt time.Time, payload map[string]string) error {
	maxAhead := r.MaxAhead
	if maxAhead == 0 {
		maxAhead = 30 * 24 * time.Hour
	}

	now := time.Now()
	if !fireAt.After(now) {
		return ErrTriggerRejected
	}
	if fireAt.Sub(now) > maxAhead {
		return ErrTriggerRejected
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[id] = Trigger{ID: id, FireAt: fireAt, Payload: payload}
	return nil
}

// Unregister removes a trigger. Removing an unknown id is a no-op.
func (r *MemoryTriggers) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.triggers, id)
}

// Pending returns all registered triggers ordered by fire time.
func (r *MemoryTriggers) Pending() []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]Trigger, 0, len(r.triggers))
	for _, t := range r.triggers {
		pending = append(pending, t)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].FireAt.Before(pending[j].FireAt)
	})
	return pending
}
