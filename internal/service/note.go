package service

import (
	"context"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/transform"
)

// NoteService wraps the note procedures
type NoteService struct {
	backend Invoker
}

// NewNoteService creates a new note service
func NewNoteService(backend Invoker) *NoteService {
	return &NoteService{backend: backend}
}

// List returns the caller's notes, narrowed to eventID when it is set
func (s *NoteService) List(ctx context.Context, eventID string) ([]model.Note, error) {
	res, err := invoke(ctx, s.backend, "list_notes", params{}.id("p_event_id", eventID))
	if err != nil {
		return nil, err
	}
	recs, err := rows[model.NoteRecord](res)
	if err != nil {
		return nil, wrap("list_notes", err)
	}
	return transform.Each(recs, transform.NoteFromServer), nil
}

// Get returns the note, or nil if there is none
func (s *NoteService) Get(ctx context.Context, id string) (*model.Note, error) {
	res, err := invoke(ctx, s.backend, "get_note", params{}.id("p_id", id))
	if err != nil {
		return nil, err
	}
	rec, found, err := record[model.NoteRecord](res)
	if err != nil || !found {
		return nil, wrap("get_note", err)
	}
	return transform.NoteFromServer(rec), nil
}

// Create adds a note. create_note answers with the new id; the stored
// note is read back with get_note.
func (s *NoteService) Create(ctx context.Context, in model.NoteInput) (*model.Note, error) {
	p := params{}.
		id("p_event_id", in.EventID).
		set("p_content", in.Content)
	res, err := invoke(ctx, s.backend, "create_note", p)
	if err != nil {
		return nil, err
	}
	return s.stored(ctx, "create_note", res, "")
}

// Update replaces the note's content
func (s *NoteService) Update(ctx context.Context, id, content string) (*model.Note, error) {
	p := params{}.
		id("p_id", id).
		set("p_content", content)
	res, err := invoke(ctx, s.backend, "update_note", p)
	if err != nil {
		return nil, err
	}
	return s.stored(ctx, "update_note", res, id)
}

// Delete removes a note
func (s *NoteService) Delete(ctx context.Context, id string) error {
	_, err := invoke(ctx, s.backend, "delete_note", params{}.id("p_id", id))
	return err
}

func (s *NoteService) stored(ctx context.Context, op string, res result, id string) (*model.Note, error) {
	if res.kind() == 's' {
		var err error
		if id, err = res.scalarID(); err != nil {
			return nil, wrap(op, err)
		}
	} else {
		rec, found, err := record[model.NoteRecord](res)
		if err != nil {
			return nil, wrap(op, err)
		}
		if found {
			return transform.NoteFromServer(rec), nil
		}
	}
	if id == "" {
		return nil, wrap(op, ErrRecordMissing)
	}
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, wrap(op, ErrRecordMissing)
	}
	return n, nil
}
