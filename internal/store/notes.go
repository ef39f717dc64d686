package store

import (
	"context"
	"log/slog"

	"github.com/popitgo/client/internal/model"
)

// NoteService is the memo API. *service.NoteService implements it.
type NoteService interface {
	List(ctx context.Context, eventID string) ([]model.Note, error)
	Create(ctx context.Context, in model.NoteInput) (*model.Note, error)
	Update(ctx context.Context, id, content string) (*model.Note, error)
	Delete(ctx context.Context, id string) error
}

// NoteState is a snapshot of the Notes container. Filter is the event id of
// the last fetch.
type NoteState = State[model.Note, string]

// Notes caches the user's event memos
type Notes struct {
	*container[model.Note, string]
	svc NoteService
}

// NewNotes creates the memo container
func NewNotes(svc NoteService, logger *slog.Logger) *Notes {
	return &Notes{
		container: newContainer[model.Note, string]("notes", func(n model.Note) string { return n.ID }, logger),
		svc:       svc,
	}
}

// FetchAll loads the memos, narrowed to one event when eventID is set
func (s *Notes) FetchAll(ctx context.Context, eventID string) error {
	s.begin()
	list, err := s.svc.List(ctx, eventID)
	if err != nil {
		return s.fail("fetch", err, "Failed to load notes")
	}
	s.update(func(st *NoteState) {
		st.Items = nonNil(list)
		st.Filter = eventID
		st.IsLoading = false
	})
	return nil
}

// Add creates a memo and appends it
func (s *Notes) Add(ctx context.Context, in model.NoteInput) (*model.Note, error) {
	s.begin()
	n, err := s.svc.Create(ctx, in)
	if err != nil {
		return nil, s.fail("add", err, "Failed to create note")
	}
	s.appendItem(*n)
	return n, nil
}

// UpdateOne replaces a memo's content
func (s *Notes) UpdateOne(ctx context.Context, id, content string) (*model.Note, error) {
	s.begin()
	n, err := s.svc.Update(ctx, id, content)
	if err != nil {
		return nil, s.fail("update", err, "Failed to update note")
	}
	if err := s.replaceItem("update", *n); err != nil {
		return nil, err
	}
	return n, nil
}

// RemoveOne deletes a memo and drops it from the cache
func (s *Notes) RemoveOne(ctx context.Context, id string) error {
	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		return s.fail("remove", err, "Failed to delete note")
	}
	s.removeItem(id)
	return nil
}

// ListByEvent asks the backend for the memos of one event. The cache is
// left as it is.
func (s *Notes) ListByEvent(ctx context.Context, eventID string) ([]model.Note, error) {
	s.begin()
	list, err := s.svc.List(ctx, eventID)
	if err != nil {
		return nil, s.fail("list_by_event", err, "Failed to load notes")
	}
	s.settle()
	return nonNil(list), nil
}

// SaveForEvent writes the event's memo: the existing one is updated,
// otherwise a new one is created. The result is cached either way.
func (s *Notes) SaveForEvent(ctx context.Context, eventID, content string) (*model.Note, error) {
	existing, err := s.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return s.Add(ctx, model.NoteInput{EventID: eventID, Content: content})
	}

	s.begin()
	n, err := s.svc.Update(ctx, existing[0].ID, content)
	if err != nil {
		return nil, s.fail("save", err, "Failed to save note")
	}
	s.upsertItem(*n)
	return n, nil
}
