package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/transform"
)

// Invoker calls remote procedures. *backend.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, procedure string, params map[string]any, out any) error
}

// params is a named parameter record. Setters skip nil values so omitted
// fields keep their server-side defaults.
type params map[string]any

func (p params) id(key, id string) params {
	if id != "" {
		p[key] = model.ID(id)
	}
	return p
}

func (p params) str(key string, v *string) params {
	if v != nil {
		p[key] = *v
	}
	return p
}

func (p params) text(key, v string) params {
	if v != "" {
		p[key] = v
	}
	return p
}

func (p params) at(key string, t *time.Time) params {
	if s := transform.FormatTimestampPtr(t); s != nil {
		p[key] = *s
	}
	return p
}

func (p params) set(key string, v any) params {
	p[key] = v
	return p
}

// result classifies a procedure result that may be a row, a set of rows,
// a bare id or nothing
type result struct {
	raw json.RawMessage
}

func (r result) kind() byte {
	trimmed := bytes.TrimSpace(r.raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 'n'
	}
	switch trimmed[0] {
	case '{':
		return 'o'
	case '[':
		return 'a'
	default:
		return 's'
	}
}

// record decodes a single row into R. A set yields its first row.
// found is false when the result holds no row.
func record[R any](r result) (rec *R, found bool, err error) {
	switch r.kind() {
	case 'o':
		rec = new(R)
		if err := json.Unmarshal(r.raw, rec); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrUnexpectedData, err)
		}
		return rec, true, nil
	case 'a':
		var rows []R
		if err := json.Unmarshal(r.raw, &rows); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrUnexpectedData, err)
		}
		if len(rows) == 0 {
			return nil, false, nil
		}
		return &rows[0], true, nil
	default:
		return nil, false, nil
	}
}

// scalarID decodes a bare id result
func (r result) scalarID() (string, error) {
	var id model.ID
	if err := json.Unmarshal(r.raw, &id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedData, err)
	}
	return id.String(), nil
}

// rows decodes a set of rows. null is an empty set.
func rows[R any](r result) ([]R, error) {
	switch r.kind() {
	case 'n':
		return []R{}, nil
	case 'o':
		rec, _, err := record[R](r)
		if err != nil {
			return nil, err
		}
		return []R{*rec}, nil
	}
	var out []R
	if err := json.Unmarshal(r.raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedData, err)
	}
	return out, nil
}

func invoke(ctx context.Context, b Invoker, procedure string, p params) (result, error) {
	var raw json.RawMessage
	if err := b.Invoke(ctx, procedure, p, &raw); err != nil {
		return result{}, wrap(procedure, err)
	}
	return result{raw: raw}, nil
}
