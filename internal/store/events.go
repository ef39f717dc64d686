package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/popitgo/client/internal/model"
)

// EventService is the event API the Events container drives.
// *service.EventService implements it.
type EventService interface {
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	Create(ctx context.Context, in model.EventInput) (*model.Event, error)
	Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// NotificationService is the reminder API. *service.NotificationService
// implements it.
type NotificationService interface {
	List(ctx context.Context, eventID string) ([]model.Notification, error)
	Create(ctx context.Context, in model.NotificationInput) (*model.Notification, error)
	Update(ctx context.Context, id string, patch model.NotificationPatch) (*model.Notification, error)
	Delete(ctx context.Context, id string) error
}

// EventState is a snapshot of the Events container. Filter holds the
// client-side filter applied by Visible.
type EventState = State[model.Event, model.EventFilter]

// Events caches the event list and marks the events the user holds a
// reminder for
type Events struct {
	*container[model.Event, model.EventFilter]
	events        EventService
	notifications NotificationService

	qmu   sync.Mutex
	query model.EventFilter
}

// NewEvents creates the event container. notifications may be nil, in which
// case HasNotification is never set and ToggleNotification is unavailable.
func NewEvents(events EventService, notifications NotificationService, logger *slog.Logger) *Events {
	return &Events{
		container:     newContainer[model.Event, model.EventFilter]("events", func(e model.Event) string { return e.ID }, logger),
		events:        events,
		notifications: notifications,
	}
}

// FetchAll loads the events matching filter from the backend. A nil filter
// repeats the previous query.
func (s *Events) FetchAll(ctx context.Context, filter *model.EventFilter) error {
	s.qmu.Lock()
	if filter != nil {
		s.query = *filter
	}
	query := s.query
	s.qmu.Unlock()

	s.begin()
	events, err := s.load(ctx, query)
	if err != nil {
		return s.fail("fetch", err, "Failed to load events")
	}
	s.replaceAll(events)
	return nil
}

// Add creates an event and appends it
func (s *Events) Add(ctx context.Context, in model.EventInput) (*model.Event, error) {
	s.begin()
	ev, err := s.events.Create(ctx, in)
	if err != nil {
		return nil, s.fail("add", err, "Failed to create event")
	}
	s.appendItem(*ev)
	return ev, nil
}

// UpdateOne applies patch and replaces the cached event
func (s *Events) UpdateOne(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	s.begin()
	ev, err := s.events.Update(ctx, id, patch)
	if err != nil {
		return nil, s.fail("update", err, "Failed to update event")
	}
	if cur, ok := s.find(ev.ID); ok {
		ev.HasNotification = cur.HasNotification
	}
	if err := s.replaceItem("update", *ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// RemoveOne deletes an event and drops it from the cache
func (s *Events) RemoveOne(ctx context.Context, id string) error {
	s.begin()
	if err := s.events.Delete(ctx, id); err != nil {
		return s.fail("remove", err, "Failed to delete event")
	}
	s.removeItem(id)
	return nil
}

// ToggleNotification removes the user's reminders for the event, or creates
// the default one when there is none, then reloads the list. It reports
// whether a reminder exists afterwards.
func (s *Events) ToggleNotification(ctx context.Context, eventID string) (bool, error) {
	if s.notifications == nil {
		return false, s.fail("toggle_notification", ErrNoNotifications, "")
	}
	s.begin()
	existing, err := s.notifications.List(ctx, eventID)
	if err != nil {
		return false, s.fail("toggle_notification", err, "Failed to update notification")
	}

	enabled := len(existing) == 0
	if enabled {
		_, err = s.notifications.Create(ctx, model.NotificationInput{
			EventID:       eventID,
			Type:          model.DefaultReminderType,
			MinutesBefore: model.DefaultReminderMinutes,
			IsActive:      true,
		})
	} else {
		for _, n := range existing {
			if err = s.notifications.Delete(ctx, n.ID); err != nil {
				break
			}
		}
	}
	if err != nil {
		return false, s.fail("toggle_notification", err, "Failed to update notification")
	}

	s.qmu.Lock()
	query := s.query
	s.qmu.Unlock()
	events, err := s.load(ctx, query)
	if err != nil {
		return enabled, s.fail("fetch", err, "Failed to load events")
	}
	s.replaceAll(events)
	return enabled, nil
}

// SetFilter merges f into the client-side filter
func (s *Events) SetFilter(f model.EventFilter) {
	s.update(func(st *EventState) {
		st.Filter = st.Filter.Merge(f)
	})
}

// ClearFilter resets the client-side filter
func (s *Events) ClearFilter() {
	s.update(func(st *EventState) {
		st.Filter = model.EventFilter{}
	})
}

// Visible returns the cached events passing the client-side filter
func (s *Events) Visible() []model.Event {
	st := s.Snapshot()
	if st.Filter.IsZero() {
		return st.Items
	}
	return filterItems(st.Items, st.Filter.Matches)
}

// load lists events and marks those with a reminder. A failed reminder
// lookup is logged and leaves every mark unset.
func (s *Events) load(ctx context.Context, query model.EventFilter) ([]model.Event, error) {
	events, err := s.events.List(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.notifications == nil || len(events) == 0 {
		return events, nil
	}
	notifs, err := s.notifications.List(ctx, "")
	if err != nil {
		s.logger.Warn("failed to load notifications",
			slog.String("op", "fetch"),
			slog.String("error", err.Error()),
		)
		return events, nil
	}
	held := make(map[string]bool, len(notifs))
	for _, n := range notifs {
		held[n.EventID] = true
	}
	for i := range events {
		events[i].HasNotification = held[events[i].ID]
	}
	return events, nil
}
