package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies what event a notification describes.
type NotificationType string

const (
	TypeMessageResponse NotificationType = "message_response"
	TypeSIFReceived     NotificationType = "sif_received"
	TypeSIFDelivered    NotificationType = "sif_delivered"
	TypeFriendRequest   NotificationType = "friend_request"
	TypeMilestone       NotificationType = "milestone"
	TypeReminder        NotificationType = "reminder"
	TypeSystem          NotificationType = "system"
)

// Priority orders notifications for display. Higher values sort first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// DeliveryState tracks the outcome of interactive delivery.
// It only ever advances pending -> delivered or pending -> failed.
type DeliveryState string

const (
	StatePending   DeliveryState = "pending"
	StateDelivered DeliveryState = "delivered"
	StateFailed    DeliveryState = "failed"
)

// Category is a coarse grouping of notification types used for filtering
// and for registering platform action categories.
type Category string

const (
	CategorySocial    Category = "social"
	CategoryActivity  Category = "activity"
	CategoryReminders Category = "reminders"
	CategorySystem    Category = "system"
)

// Well-known payload keys carried in Notification.Payload.
const (
	PayloadMessageID     = "message_id"
	PayloadUserID        = "user_id"
	PayloadDeepLink      = "deep_link"
	PayloadOriginID      = "origin_notification_id"
	PayloadCustomMessage = "custom_message"
)

// Notification represents an event the user may be alerted to: a SIF
// arriving, a friend request, a scheduled reminder, and so on.
type Notification struct {
	// ID is the unique identifier, assigned at creation and immutable.
	ID string `json:"id"`

	// Type classifies the notification.
	Type NotificationType `json:"type"`

	// Priority is used as a tie-break when sorting.
	Priority Priority `json:"priority"`

	// Title is the short headline shown to the user.
	Title string `json:"title"`

	// Body is the notification text.
	Body string `json:"body"`

	// Subtitle is an optional secondary line.
	Subtitle string `json:"subtitle,omitempty"`

	// Payload carries cross-references such as a related message id,
	// related user id, or a deep-link target.
	Payload map[string]string `json:"payload,omitempty"`

	// CreatedAt is set once at creation and never changes.
	CreatedAt time.Time `json:"created_at"`

	// ScheduledAt is set for deferred delivery; nil for immediate.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// Read indicates whether the user has seen this notification.
	// It only transitions false -> true.
	Read bool `json:"read"`

	// State is the delivery lifecycle state.
	State DeliveryState `json:"state"`

	// Archived excludes the notification from default views without
	// deleting it. Reversible only by re-creating the notification.
	Archived bool `json:"archived"`
}

// New creates a pending, unread, active notification with a fresh id.
func New(typ NotificationType, priority Priority, title, body string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Type:      typ,
		Priority:  priority,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		State:     StatePending,
	}
}

// Category returns the coarse grouping for this notification type.
// Unknown types fall into the system category.
func (t NotificationType) Category() Category {
	switch t {
	case TypeMessageResponse, TypeSIFReceived, TypeSIFDelivered, TypeFriendRequest:
		return CategorySocial
	case TypeMilestone:
		return CategoryActivity
	case TypeReminder:
		return CategoryReminders
	default:
		return CategorySystem
	}
}

// Interactive reports whether notifications of this type are handed to
// the delivery queue on insert. Reminders are fired by the scheduler and
// system notices are informational only.
func (t NotificationType) Interactive() bool {
	switch t {
	case TypeReminder, TypeSystem:
		return false
	default:
		return true
	}
}

// DeepLink returns the deep-link target from the payload, if any.
func (n Notification) DeepLink() string {
	return n.Payload[PayloadDeepLink]
}

// Clone returns an independent copy so snapshots handed to listeners or
// the queue are unaffected by later mutations.
func (n Notification) Clone() Notification {
	clone := n
	if n.Payload != nil {
		clone.Payload = make(map[string]string, len(n.Payload))
		for k, v := range n.Payload {
			clone.Payload[k] = v
		}
	}
	if n.ScheduledAt != nil {
		at := *n.ScheduledAt
		clone.ScheduledAt = &at
	}
	return clone
}

// Types lists all known notification types in display order.
func Types() []NotificationType {
	return []NotificationType{
		TypeMessageResponse,
		TypeSIFReceived,
		TypeSIFDelivered,
		TypeFriendRequest,
		TypeMilestone,
		TypeReminder,
		TypeSystem,
	}
}
