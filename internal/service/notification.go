package service

import (
	"context"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/transform"
)

// NotificationService wraps the reminder procedures
type NotificationService struct {
	backend Invoker
}

// NewNotificationService creates a new notification service
func NewNotificationService(backend Invoker) *NotificationService {
	return &NotificationService{backend: backend}
}

// List returns the caller's reminders. A non-empty eventID narrows the
// list to that event.
func (s *NotificationService) List(ctx context.Context, eventID string) ([]model.Notification, error) {
	res, err := invoke(ctx, s.backend, "list_notifications", params{}.id("p_event_id", eventID))
	if err != nil {
		return nil, err
	}
	recs, err := rows[model.NotificationRecord](res)
	if err != nil {
		return nil, wrap("list_notifications", err)
	}
	return transform.Each(recs, transform.NotificationFromServer), nil
}

// Create adds a reminder
func (s *NotificationService) Create(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	p := params{}.
		text("p_user_id", in.UserID).
		id("p_event_id", in.EventID).
		set("p_type", string(in.Type)).
		set("p_minutes_before", in.MinutesBefore).
		set("p_is_active", in.IsActive)
	res, err := invoke(ctx, s.backend, "create_notification", p)
	if err != nil {
		return nil, err
	}
	if res.kind() == 's' {
		id, err := res.scalarID()
		if err != nil {
			return nil, wrap("create_notification", err)
		}
		return s.find(ctx, "create_notification", id)
	}
	rec, found, err := record[model.NotificationRecord](res)
	if err != nil {
		return nil, wrap("create_notification", err)
	}
	if !found {
		return nil, wrap("create_notification", ErrRecordMissing)
	}
	return transform.NotificationFromServer(rec), nil
}

// Update applies patch and returns the stored reminder
func (s *NotificationService) Update(ctx context.Context, id string, patch model.NotificationPatch) (*model.Notification, error) {
	p := params{}.id("p_id", id)
	if patch.Type != nil {
		p.set("p_type", string(*patch.Type))
	}
	if patch.MinutesBefore != nil {
		p.set("p_minutes_before", *patch.MinutesBefore)
	}
	if patch.IsActive != nil {
		p.set("p_is_active", *patch.IsActive)
	}
	res, err := invoke(ctx, s.backend, "update_notification", p)
	if err != nil {
		return nil, err
	}
	rec, found, err := record[model.NotificationRecord](res)
	if err != nil {
		return nil, wrap("update_notification", err)
	}
	if found {
		return transform.NotificationFromServer(rec), nil
	}
	return s.find(ctx, "update_notification", id)
}

// Delete removes a reminder
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	_, err := invoke(ctx, s.backend, "delete_notification", params{}.id("p_id", id))
	return err
}

// find re-reads one reminder. There is no single-row procedure, so the
// caller's list is searched.
func (s *NotificationService) find(ctx context.Context, op, id string) (*model.Notification, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, wrap(op, ErrRecordMissing)
}
