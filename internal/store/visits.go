package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/popitgo/client/internal/model"
)

// VisitReservationService is the booth visit API.
// *service.VisitReservationService implements it.
type VisitReservationService interface {
	List(ctx context.Context, filter model.VisitReservationFilter) ([]model.VisitReservation, error)
	Create(ctx context.Context, in model.VisitReservationInput) (*model.VisitReservation, error)
	Update(ctx context.Context, id string, patch model.VisitReservationPatch) (*model.VisitReservation, error)
	Delete(ctx context.Context, id string) error
}

// Alerter posts reservation alerts to the inbox. *service.InboxService
// implements it.
type Alerter interface {
	NotifyReservationCreated(ctx context.Context, v *model.VisitReservation) error
	NotifyStatusChange(ctx context.Context, v *model.VisitReservation) error
}

// VisitState is a snapshot of the VisitReservations container
type VisitState = State[model.VisitReservation, model.VisitReservationFilter]

// VisitReservations caches booth visit reservations
type VisitReservations struct {
	*container[model.VisitReservation, model.VisitReservationFilter]
	svc    VisitReservationService
	alerts Alerter
}

// NewVisitReservations creates the reservation container. alerts may be nil.
func NewVisitReservations(svc VisitReservationService, alerts Alerter, logger *slog.Logger) *VisitReservations {
	return &VisitReservations{
		container: newContainer[model.VisitReservation, model.VisitReservationFilter]("visit_reservations", func(v model.VisitReservation) string { return v.ID }, logger),
		svc:       svc,
		alerts:    alerts,
	}
}

// FetchAll loads the reservations matching filter. A nil filter repeats the
// previous one.
func (s *VisitReservations) FetchAll(ctx context.Context, filter *model.VisitReservationFilter) error {
	s.begin()
	f := s.Snapshot().Filter
	if filter != nil {
		f = *filter
	}
	list, err := s.svc.List(ctx, f)
	if err != nil {
		return s.fail("fetch", err, "Failed to load reservations")
	}
	s.update(func(st *VisitState) {
		st.Items = nonNil(list)
		st.Filter = f
		st.IsLoading = false
	})
	return nil
}

// Add books a visit and appends the stored reservation
func (s *VisitReservations) Add(ctx context.Context, in model.VisitReservationInput) (*model.VisitReservation, error) {
	s.begin()
	v, err := s.svc.Create(ctx, in)
	if err != nil {
		return nil, s.fail("add", err, "Failed to create reservation")
	}
	s.appendItem(*v)
	if s.alerts != nil {
		s.alert("add", s.alerts.NotifyReservationCreated(ctx, v))
	}
	return v, nil
}

// UpdateOne applies patch and replaces the cached reservation
func (s *VisitReservations) UpdateOne(ctx context.Context, id string, patch model.VisitReservationPatch) (*model.VisitReservation, error) {
	s.begin()
	v, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return nil, s.fail("update", err, "Failed to update reservation")
	}
	if err := s.replaceItem("update", *v); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateStatus moves a reservation to status. Any transition is accepted.
func (s *VisitReservations) UpdateStatus(ctx context.Context, id string, status model.VisitStatus) (*model.VisitReservation, error) {
	if !status.IsValid() {
		return nil, s.fail("update_status", fmt.Errorf("%w: %q", ErrInvalidStatus, status), "")
	}
	s.begin()
	v, err := s.svc.Update(ctx, id, model.VisitReservationPatch{Status: &status})
	if err != nil {
		return nil, s.fail("update_status", err, "Failed to update reservation")
	}
	// The server row changed, so the alert goes out even if the cache misses it
	if s.alerts != nil {
		s.alert("update_status", s.alerts.NotifyStatusChange(ctx, v))
	}
	if err := s.replaceItem("update_status", *v); err != nil {
		return nil, err
	}
	return v, nil
}

// RemoveOne deletes a reservation and drops it from the cache
func (s *VisitReservations) RemoveOne(ctx context.Context, id string) error {
	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		return s.fail("remove", err, "Failed to delete reservation")
	}
	s.removeItem(id)
	return nil
}

// alert logs a failed inbox post; the reservation change itself stands
func (s *VisitReservations) alert(op string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("failed to post reservation alert",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
