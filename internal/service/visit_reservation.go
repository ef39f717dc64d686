package service

import (
	"context"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/transform"
)

// VisitReservationService wraps the booth visit procedures
type VisitReservationService struct {
	backend Invoker
}

// NewVisitReservationService creates a new visit reservation service
func NewVisitReservationService(backend Invoker) *VisitReservationService {
	return &VisitReservationService{backend: backend}
}

// List returns reservations matching filter, joined with their activity
func (s *VisitReservationService) List(ctx context.Context, filter model.VisitReservationFilter) ([]model.VisitReservation, error) {
	p := params{}.
		id("p_booth_activity_id", filter.BoothActivityID).
		at("p_start_date", filter.StartDate).
		at("p_end_date", filter.EndDate).
		text("p_status", string(filter.Status))
	res, err := invoke(ctx, s.backend, "list_resv_visits", p)
	if err != nil {
		return nil, err
	}
	recs, err := rows[model.VisitReservationRecord](res)
	if err != nil {
		return nil, wrap("list_resv_visits", err)
	}
	return transform.Each(recs, transform.VisitReservationFromServer), nil
}

// Get returns the reservation, or nil if there is none
func (s *VisitReservationService) Get(ctx context.Context, id string) (*model.VisitReservation, error) {
	res, err := invoke(ctx, s.backend, "get_resv_visits", params{}.id("p_id", id))
	if err != nil {
		return nil, err
	}
	rec, found, err := record[model.VisitReservationRecord](res)
	if err != nil || !found {
		return nil, wrap("get_resv_visits", err)
	}
	return transform.VisitReservationFromServer(rec), nil
}

// Create books a visit and returns the stored reservation. New
// reservations start pending.
func (s *VisitReservationService) Create(ctx context.Context, in model.VisitReservationInput) (*model.VisitReservation, error) {
	p := params{}.
		id("p_booth_activity_id", in.BoothActivityID).
		set("p_visitor_name", in.VisitorName).
		set("p_visitor_phone", in.VisitorPhone).
		set("p_visitor_email", in.VisitorEmail).
		at("p_visit_datetime", &in.VisitDatetime).
		str("p_reservation_platform", in.ReservationPlatform).
		str("p_reservation_url", in.ReservationURL).
		str("p_notes", in.Notes)
	res, err := invoke(ctx, s.backend, "create_resv_visit", p)
	if err != nil {
		return nil, err
	}
	return s.stored(ctx, "create_resv_visit", res, "")
}

// Update applies patch and returns the stored reservation
func (s *VisitReservationService) Update(ctx context.Context, id string, patch model.VisitReservationPatch) (*model.VisitReservation, error) {
	p := params{}.
		id("p_id", id).
		str("p_visitor_name", patch.VisitorName).
		str("p_visitor_phone", patch.VisitorPhone).
		str("p_visitor_email", patch.VisitorEmail).
		at("p_visit_datetime", patch.VisitDatetime).
		str("p_reservation_platform", patch.ReservationPlatform).
		str("p_reservation_url", patch.ReservationURL).
		str("p_notes", patch.Notes)
	if patch.Status != nil {
		p.set("p_status", string(*patch.Status))
	}
	res, err := invoke(ctx, s.backend, "update_resv_visit", p)
	if err != nil {
		return nil, err
	}
	return s.stored(ctx, "update_resv_visit", res, id)
}

// Delete removes a reservation
func (s *VisitReservationService) Delete(ctx context.Context, id string) error {
	_, err := invoke(ctx, s.backend, "delete_resv_visit", params{}.id("p_id", id))
	return err
}

// stored always re-reads the row so the activity join fields are present
func (s *VisitReservationService) stored(ctx context.Context, op string, res result, id string) (*model.VisitReservation, error) {
	switch res.kind() {
	case 's':
		var err error
		if id, err = res.scalarID(); err != nil {
			return nil, wrap(op, err)
		}
	case 'o', 'a':
		rec, found, err := record[model.VisitReservationRecord](res)
		if err != nil {
			return nil, wrap(op, err)
		}
		if found && !rec.ID.IsZero() {
			id = rec.ID.String()
		}
	}
	if id == "" {
		return nil, wrap(op, ErrRecordMissing)
	}
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, wrap(op, ErrRecordMissing)
	}
	return v, nil
}
