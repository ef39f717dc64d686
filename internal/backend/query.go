package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// QueryBuilder accumulates filters for one table call
type QueryBuilder struct {
	client *Client
	q      Query
}

// Columns restricts the selected columns
func (b *QueryBuilder) Columns(cols ...string) *QueryBuilder {
	b.q.Columns = append(b.q.Columns, cols...)
	return b
}

// Eq adds an exact-match filter
func (b *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	b.q.Filters = append(b.q.Filters, Filter{Column: column, Value: value})
	return b
}

// Order adds a sort key
func (b *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	b.q.Orders = append(b.q.Orders, Order{Column: column, Ascending: ascending})
	return b
}

// Limit caps the number of rows
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	b.q.Limit = n
	return b
}

// Single expects exactly one row. out then receives an object instead of
// an array; zero rows fail with CodeNoRows and several with CodeMultipleRows.
func (b *QueryBuilder) Single() *QueryBuilder {
	b.q.Single = true
	return b
}

// Query returns the accumulated query
func (b *QueryBuilder) Query() Query {
	return b.q
}

// Select reads rows into out
func (b *QueryBuilder) Select(ctx context.Context, out any) error {
	raw, err := b.client.transport.Select(ctx, b.q)
	if err != nil {
		return b.fail("select", err)
	}
	return b.decode(raw, out)
}

// Insert writes row and decodes the stored row(s) into out
func (b *QueryBuilder) Insert(ctx context.Context, row any, out any) error {
	raw, err := b.client.transport.Insert(ctx, b.q, row)
	if err != nil {
		return b.fail("insert", err)
	}
	return b.decode(raw, out)
}

// Update applies patch to the filtered rows and decodes them into out
func (b *QueryBuilder) Update(ctx context.Context, patch any, out any) error {
	if len(b.q.Filters) == 0 {
		return &Error{Code: CodeUnfiltered, Message: "update on " + b.q.Table + " requires a filter"}
	}
	raw, err := b.client.transport.Update(ctx, b.q, patch)
	if err != nil {
		return b.fail("update", err)
	}
	return b.decode(raw, out)
}

// Delete removes the filtered rows
func (b *QueryBuilder) Delete(ctx context.Context) error {
	if len(b.q.Filters) == 0 {
		return &Error{Code: CodeUnfiltered, Message: "delete on " + b.q.Table + " requires a filter"}
	}
	if err := b.client.transport.Delete(ctx, b.q); err != nil {
		return b.fail("delete", err)
	}
	return nil
}

func (b *QueryBuilder) fail(verb string, err error) error {
	err = asBackendError(err)
	b.client.logger.Debug("table call failed",
		"table", b.q.Table,
		"verb", verb,
		"error", err.Error(),
	)
	return err
}

func (b *QueryBuilder) decode(raw json.RawMessage, out any) error {
	if isNull(raw) {
		raw = json.RawMessage("[]")
	}
	if !b.q.Single {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Code: CodeDecode, Message: fmt.Sprintf("decode %s rows: %v", b.q.Table, err)}
		}
		return nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		// Already a single object
		rows = []json.RawMessage{raw}
	}
	switch len(rows) {
	case 0:
		return &Error{Status: 406, Code: CodeNoRows, Message: "JSON object requested, multiple (or no) rows returned", Details: "The result contains 0 rows"}
	case 1:
	default:
		return &Error{Status: 406, Code: CodeMultipleRows, Message: "JSON object requested, multiple (or no) rows returned", Details: fmt.Sprintf("The result contains %d rows", len(rows))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return &Error{Code: CodeDecode, Message: fmt.Sprintf("decode %s row: %v", b.q.Table, err)}
	}
	return nil
}
