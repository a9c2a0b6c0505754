package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/sif-notify/internal/model"
)

// notificationsKey is the single well-known key under which the full
// notification list is persisted.
const notificationsKey = "notifications"

// DefaultMaxStored caps how many notifications survive a Save.
const DefaultMaxStored = 500

// NotificationStore persists the full notification list as one
// size-bounded blob. It is a snapshot store, not an indexed one:
// Save overwrites wholesale and Load returns whatever was last written.
type NotificationStore struct {
	blobs     BlobStore
	maxStored int
	log       *logrus.Logger
}

// NewNotificationStore creates a store over the given blob backend.
// maxStored <= 0 falls back to DefaultMaxStored.
func NewNotificationStore(blobs BlobStore, maxStored int, log *logrus.Logger) *NotificationStore {
	if maxStored <= 0 {
		maxStored = DefaultMaxStored
	}
	return &NotificationStore{
		blobs:     blobs,
		maxStored: maxStored,
		log:       log,
	}
}

// Save persists at most maxStored of the given notifications, in the
// order given (callers pre-sort newest-first). Writes are best-effort:
// failures are logged and swallowed, never surfaced to the caller.
func (s *NotificationStore) Save(ctx context.Context, notifications []model.Notification) {
	if len(notifications) > s.maxStored {
		notifications = notifications[:s.maxStored]
	}

	data, err := json.Marshal(notifications)
	if err != nil {
		s.log.WithError(err).Warn("serializing notifications; write skipped")
		return
	}

	if err := s.blobs.Set(ctx, notificationsKey, data); err != nil {
		s.log.WithError(err).Warn("persisting notifications; write skipped")
	}
}

// Load returns the persisted notification list. An absent or corrupt
// blob yields an empty list; corruption is logged but otherwise
// indistinguishable from absence.
func (s *NotificationStore) Load(ctx context.Context) []model.Notification {
	data, err := s.blobs.Get(ctx, notificationsKey)
	if err != nil {
		s.log.WithError(err).Warn("loading notifications; treating as empty")
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var notifications []model.Notification
	if err := json.Unmarshal(data, &notifications); err != nil {
		s.log.WithError(err).Warn("corrupt notification blob; treating as empty")
		return nil
	}
	return notifications
}

// RemoveExpired drops read notifications older than the retention
// window. Unread notifications are exempt from expiry regardless of
// age. The filtered list is saved and returned.
func (s *NotificationStore) RemoveExpired(ctx context.Context, retention time.Duration) []model.Notification {
	notifications := s.Load(ctx)
	cutoff := time.Now().Add(-retention)

	kept := make([]model.Notification, 0, len(notifications))
	for _, n := range notifications {
		if !n.Read || n.CreatedAt.After(cutoff) {
			kept = append(kept, n)
		}
	}

	s.Save(ctx, kept)
	return kept
}

// ExportAll returns the full persisted list in a transportable
// serialized form for backup.
func (s *NotificationStore) ExportAll(ctx context.Context) ([]byte, error) {
	notifications := s.Load(ctx)
	data, err := json.Marshal(notifications)
	if err != nil {
		return nil, fmt.Errorf("exporting notifications: %w", err)
	}
	return data, nil
}

// ImportAll replaces the persisted list wholesale with the given blob.
func (s *NotificationStore) ImportAll(ctx context.Context, blob []byte) error {
	var notifications []model.Notification
	if err := json.Unmarshal(blob, &notifications); err != nil {
		return fmt.Errorf("parsing import blob: %w", err)
	}

	if err := s.blobs.Set(ctx, notificationsKey, blob); err != nil {
		return fmt.Errorf("importing notifications: %w", err)
	}
	return nil
}
