package service

import (
	"context"
	"fmt"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/transform"
)

// InboxQuery narrows the alert feed. Zero Limit means the backend default.
type InboxQuery struct {
	Limit      int
	UnreadOnly bool
}

// InboxService wraps the in-app alert procedures
type InboxService struct {
	backend Invoker
}

// NewInboxService creates a new inbox service
func NewInboxService(backend Invoker) *InboxService {
	return &InboxService{backend: backend}
}

// List returns the caller's alerts, newest first
func (s *InboxService) List(ctx context.Context, q InboxQuery) ([]model.InboxNotification, error) {
	p := params{}
	if q.Limit > 0 {
		p.set("p_limit", q.Limit)
	}
	if q.UnreadOnly {
		p.set("p_unread_only", true)
	}
	res, err := invoke(ctx, s.backend, "get_notifications", p)
	if err != nil {
		return nil, err
	}
	recs, err := rows[model.InboxRecord](res)
	if err != nil {
		return nil, wrap("get_notifications", err)
	}
	return transform.Each(recs, transform.InboxFromServer), nil
}

// Create posts an alert to the caller's feed and returns its id
func (s *InboxService) Create(ctx context.Context, typ model.InboxType, title, message string, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	p := params{}.
		set("p_type", string(typ)).
		set("p_title", title).
		set("p_message", message).
		set("p_data", data)
	res, err := invoke(ctx, s.backend, "create_inbox_notification", p)
	if err != nil {
		return "", err
	}
	switch res.kind() {
	case 's':
		id, err := res.scalarID()
		return id, wrap("create_inbox_notification", err)
	case 'o', 'a':
		rec, found, err := record[model.InboxRecord](res)
		if err != nil {
			return "", wrap("create_inbox_notification", err)
		}
		if found {
			return rec.ID.String(), nil
		}
	}
	return "", nil
}

// MarkRead stamps one alert as read
func (s *InboxService) MarkRead(ctx context.Context, id string) error {
	_, err := invoke(ctx, s.backend, "mark_notification_as_read", params{}.id("p_notification_id", id))
	return err
}

// MarkAllRead stamps every unread alert as read
func (s *InboxService) MarkAllRead(ctx context.Context) error {
	_, err := invoke(ctx, s.backend, "mark_all_notifications_as_read", params{})
	return err
}

// Delete removes one alert
func (s *InboxService) Delete(ctx context.Context, id string) error {
	_, err := invoke(ctx, s.backend, "delete_inbox_notification", params{}.id("p_notification_id", id))
	return err
}

// DeleteAll empties the caller's feed
func (s *InboxService) DeleteAll(ctx context.Context) error {
	_, err := invoke(ctx, s.backend, "delete_all_notifications", params{})
	return err
}

// ===== reservation alerts =====

// NotifyReservationCreated posts the alert for a new booking
func (s *InboxService) NotifyReservationCreated(ctx context.Context, v *model.VisitReservation) error {
	_, err := s.Create(ctx, model.InboxReservationCreated,
		"New reservation created",
		fmt.Sprintf("%s booked %s.", v.VisitorName, v.ActivityTitle),
		reservationData(v))
	return err
}

// NotifyReservationConfirmed posts the alert for a confirmed booking
func (s *InboxService) NotifyReservationConfirmed(ctx context.Context, v *model.VisitReservation) error {
	_, err := s.Create(ctx, model.InboxReservationConfirmed,
		"Reservation confirmed",
		fmt.Sprintf("Your reservation for %s is confirmed.", v.ActivityTitle),
		reservationData(v))
	return err
}

// NotifyReservationCancelled posts the alert for a cancelled booking
func (s *InboxService) NotifyReservationCancelled(ctx context.Context, v *model.VisitReservation) error {
	_, err := s.Create(ctx, model.InboxReservationCancelled,
		"Reservation cancelled",
		fmt.Sprintf("Your reservation for %s was cancelled.", v.ActivityTitle),
		reservationData(v))
	return err
}

// NotifyStatusChange posts the alert matching a reservation's new status.
// Statuses without an alert are ignored.
func (s *InboxService) NotifyStatusChange(ctx context.Context, v *model.VisitReservation) error {
	switch v.Status {
	case model.VisitConfirmed:
		return s.NotifyReservationConfirmed(ctx, v)
	case model.VisitCancelled:
		return s.NotifyReservationCancelled(ctx, v)
	}
	return nil
}

func reservationData(v *model.VisitReservation) map[string]any {
	return map[string]any{"reservation_id": model.ID(v.ID)}
}
