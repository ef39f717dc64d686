package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/popitgo/client/internal/model"
)

// NotificationState is a snapshot of the Notifications container. Filter is
// the event id of the last fetch; empty means all events.
type NotificationState = State[model.Notification, string]

// Notifications caches the user's reservation reminders
type Notifications struct {
	*container[model.Notification, string]
	svc NotificationService
}

// NewNotifications creates the reminder container
func NewNotifications(svc NotificationService, logger *slog.Logger) *Notifications {
	return &Notifications{
		container: newContainer[model.Notification, string]("notifications", func(n model.Notification) string { return n.ID }, logger),
		svc:       svc,
	}
}

// FetchAll loads the reminders, narrowed to one event when eventID is set
func (s *Notifications) FetchAll(ctx context.Context, eventID string) error {
	s.begin()
	list, err := s.svc.List(ctx, eventID)
	if err != nil {
		return s.fail("fetch", err, "Failed to load notifications")
	}
	s.update(func(st *NotificationState) {
		st.Items = nonNil(list)
		st.Filter = eventID
		st.IsLoading = false
	})
	return nil
}

// Add creates a reminder and appends it
func (s *Notifications) Add(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	s.begin()
	n, err := s.svc.Create(ctx, in)
	if err != nil {
		return nil, s.fail("add", err, "Failed to create notification")
	}
	s.appendItem(*n)
	return n, nil
}

// UpdateOne applies patch and replaces the cached reminder
func (s *Notifications) UpdateOne(ctx context.Context, id string, patch model.NotificationPatch) (*model.Notification, error) {
	s.begin()
	n, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return nil, s.fail("update", err, "Failed to update notification")
	}
	if err := s.replaceItem("update", *n); err != nil {
		return nil, err
	}
	return n, nil
}

// RemoveOne deletes a reminder and drops it from the cache
func (s *Notifications) RemoveOne(ctx context.Context, id string) error {
	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		return s.fail("remove", err, "Failed to delete notification")
	}
	s.removeItem(id)
	return nil
}

// ToggleStatus flips IsActive of a cached reminder
func (s *Notifications) ToggleStatus(ctx context.Context, id string) (*model.Notification, error) {
	cur, ok := s.find(id)
	if !ok {
		return nil, s.fail("toggle_status", fmt.Errorf("%w: notification %s", ErrNotCached, id), "Notification not found")
	}
	active := !cur.IsActive
	return s.UpdateOne(ctx, id, model.NotificationPatch{IsActive: &active})
}

// ByEvent returns the cached reminders for one event
func (s *Notifications) ByEvent(eventID string) []model.Notification {
	return filterItems(s.Snapshot().Items, func(n model.Notification) bool {
		return n.EventID == eventID
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
