package service

import (
	"context"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/transform"
)

// EventService wraps the event procedures
type EventService struct {
	backend Invoker
}

// NewEventService creates a new event service
func NewEventService(backend Invoker) *EventService {
	return &EventService{backend: backend}
}

// List returns events ordered by reservation start
func (s *EventService) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	p := params{}.
		text("p_category", filter.Category).
		text("p_organizer", filter.Organizer).
		at("p_start_date", filter.StartDate).
		at("p_end_date", filter.EndDate).
		text("p_search", filter.SearchQuery)
	res, err := invoke(ctx, s.backend, "list_events", p)
	if err != nil {
		return nil, err
	}
	recs, err := rows[model.EventRecord](res)
	if err != nil {
		return nil, wrap("list_events", err)
	}
	return transform.Each(recs, transform.EventFromServer), nil
}

// Get returns the event, or nil if there is none
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	res, err := invoke(ctx, s.backend, "get_event", params{}.id("p_id", id))
	if err != nil {
		return nil, err
	}
	rec, found, err := record[model.EventRecord](res)
	if err != nil || !found {
		return nil, wrap("get_event", err)
	}
	return transform.EventFromServer(rec), nil
}

// Create inserts an event and returns the stored copy
func (s *EventService) Create(ctx context.Context, in model.EventInput) (*model.Event, error) {
	p := params{}.
		set("p_title", in.Title).
		str("p_description", in.Description).
		str("p_organizer", in.Organizer).
		str("p_category", in.Category).
		at("p_reservation_start", &in.ReservationStart).
		at("p_reservation_end", in.ReservationEnd).
		str("p_reservation_platform", in.ReservationPlatform).
		str("p_reservation_link", in.ReservationLink)
	res, err := invoke(ctx, s.backend, "create_event", p)
	if err != nil {
		return nil, err
	}
	return s.stored(ctx, "create_event", res, "")
}

// Update applies patch and returns the stored copy
func (s *EventService) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	p := params{}.
		id("p_id", id).
		str("p_title", patch.Title).
		str("p_description", patch.Description).
		str("p_organizer", patch.Organizer).
		str("p_category", patch.Category).
		at("p_reservation_start", patch.ReservationStart).
		at("p_reservation_end", patch.ReservationEnd).
		str("p_reservation_platform", patch.ReservationPlatform).
		str("p_reservation_link", patch.ReservationLink)
	res, err := invoke(ctx, s.backend, "update_event", p)
	if err != nil {
		return nil, err
	}
	return s.stored(ctx, "update_event", res, id)
}

// Delete removes the event
func (s *EventService) Delete(ctx context.Context, id string) error {
	_, err := invoke(ctx, s.backend, "delete_event", params{}.id("p_id", id))
	return err
}

// stored resolves a write result to the stored event. A bare id or an
// empty result is re-read with get_event.
func (s *EventService) stored(ctx context.Context, op string, res result, id string) (*model.Event, error) {
	if res.kind() == 's' {
		var err error
		if id, err = res.scalarID(); err != nil {
			return nil, wrap(op, err)
		}
	} else {
		rec, found, err := record[model.EventRecord](res)
		if err != nil {
			return nil, wrap(op, err)
		}
		if found {
			return transform.EventFromServer(rec), nil
		}
	}
	if id == "" {
		return nil, wrap(op, ErrRecordMissing)
	}
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, wrap(op, ErrRecordMissing)
	}
	return ev, nil
}
