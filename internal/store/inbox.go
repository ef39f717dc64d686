package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/service"
)

// InboxService is the alert feed API. *service.InboxService implements it.
type InboxService interface {
	List(ctx context.Context, q service.InboxQuery) ([]model.InboxNotification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// InboxState is a snapshot of the Inbox container
type InboxState = State[model.InboxNotification, service.InboxQuery]

// Inbox caches the in-app alert feed
type Inbox struct {
	*container[model.InboxNotification, service.InboxQuery]
	svc InboxService
	now func() time.Time
}

// NewInbox creates the alert container. now stamps alerts marked read
// locally and defaults to time.Now.
func NewInbox(svc InboxService, now func() time.Time, logger *slog.Logger) *Inbox {
	if now == nil {
		now = time.Now
	}
	return &Inbox{
		container: newContainer[model.InboxNotification, service.InboxQuery]("inbox", func(n model.InboxNotification) string { return n.ID }, logger),
		svc:       svc,
		now:       now,
	}
}

// Fetch loads the feed. A nil query repeats the previous one.
func (s *Inbox) Fetch(ctx context.Context, q *service.InboxQuery) error {
	s.begin()
	query := s.Snapshot().Filter
	if q != nil {
		query = *q
	}
	list, err := s.svc.List(ctx, query)
	if err != nil {
		return s.fail("fetch", err, "Failed to load alerts")
	}
	s.update(func(st *InboxState) {
		st.Items = nonNil(list)
		st.Filter = query
		st.IsLoading = false
	})
	return nil
}

// MarkRead marks one alert read
func (s *Inbox) MarkRead(ctx context.Context, id string) error {
	s.begin()
	if err := s.svc.MarkRead(ctx, id); err != nil {
		return s.fail("mark_read", err, "Failed to mark alert as read")
	}
	s.stamp(func(n model.InboxNotification) bool { return n.ID == id })
	return nil
}

// MarkAllRead marks every alert read
func (s *Inbox) MarkAllRead(ctx context.Context) error {
	s.begin()
	if err := s.svc.MarkAllRead(ctx); err != nil {
		return s.fail("mark_all_read", err, "Failed to mark alerts as read")
	}
	s.stamp(func(model.InboxNotification) bool { return true })
	return nil
}

// Remove deletes one alert
func (s *Inbox) Remove(ctx context.Context, id string) error {
	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		return s.fail("remove", err, "Failed to delete alert")
	}
	s.removeItem(id)
	return nil
}

// RemoveAll empties the feed
func (s *Inbox) RemoveAll(ctx context.Context) error {
	s.begin()
	if err := s.svc.DeleteAll(ctx); err != nil {
		return s.fail("remove_all", err, "Failed to delete alerts")
	}
	s.replaceAll(nil)
	return nil
}

// UnreadCount returns the number of cached alerts not yet read
func (s *Inbox) UnreadCount() int {
	n := 0
	for _, it := range s.Snapshot().Items {
		if !it.IsRead() {
			n++
		}
	}
	return n
}

// stamp sets ReadAt on the unread alerts selected by match
func (s *Inbox) stamp(match func(model.InboxNotification) bool) {
	at := s.now().UTC()
	s.update(func(st *InboxState) {
		st.Items = mapItems(st.Items, func(n model.InboxNotification) model.InboxNotification {
			if !n.IsRead() && match(n) {
				n.ReadAt = &at
			}
			return n
		})
		st.IsLoading = false
	})
}
