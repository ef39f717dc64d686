// Package fakebackend provides an in-memory backend for tests.
//
// Backend implements backend.Transport and backend.Authenticator. It keeps
// tables as slices of rows, serves the entity procedures the services call,
// and issues unsigned access tokens. Failures can be injected per procedure
// or table name.
//
//	fb := fakebackend.New()
//	client := backend.New(fb, backend.Options{Authenticator: fb, RedirectURL: "http://localhost/auth/callback"})
//	fb.Fail("list_events", errors.New("boom"))
package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/popitgo/client/internal/backend"
)

// Row is a stored record keyed by column
type Row = map[string]any

// Procedure serves one remote procedure. The returned value is marshaled
// to JSON as the call result.
type Procedure func(ctx context.Context, params map[string]any) (any, error)

// Call records one transport call
type Call struct {
	Kind   string // rpc, select, insert, update, delete
	Name   string // procedure or table
	Params map[string]any
	Token  string
}

// Backend is an in-memory backend
type Backend struct {
	mu       sync.Mutex
	tables   map[string][]Row
	seq      map[string]int64
	procs    map[string]Procedure
	failures map[string]error
	calls    []Call
	token    string
	closed   bool
	now      func() time.Time

	// UserID is the identity procedures act as when no token is set
	UserID string

	auth authState
}

// New returns a backend with the entity procedures installed
func New() *Backend {
	b := &Backend{
		tables:   make(map[string][]Row),
		seq:      make(map[string]int64),
		procs:    make(map[string]Procedure),
		failures: make(map[string]error),
		now:      time.Now,
		UserID:   "user-1",
		auth:     newAuthState(),
	}
	b.installProcedures()
	return b
}

// SetClock replaces the clock used for timestamps and token expiry
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Handle installs or replaces a procedure
func (b *Backend) Handle(name string, p Procedure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.procs[name] = p
}

// Fail makes every call to name (procedure or table) return err until
// cleared with a nil err
func (b *Backend) Fail(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, name)
		return
	}
	b.failures[name] = err
}

// Seed appends rows to table, assigning ids to rows that lack one
func (b *Backend) Seed(table string, rows ...Row) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range rows {
		b.insertLocked(table, copyRow(r))
	}
}

// Rows returns a copy of table's rows
func (b *Backend) Rows(table string) []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Row, 0, len(b.tables[table]))
	for _, r := range b.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// Calls returns the recorded calls in order
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallCount returns how many calls targeted name
func (b *Backend) CallCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// AccessToken returns the token the client last installed
func (b *Backend) AccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// Closed reports whether Close was called
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// ===== backend.Transport =====

// Invoke implements backend.Transport
func (b *Backend) Invoke(ctx context.Context, procedure string, params map[string]any) (json.RawMessage, error) {
	b.mu.Lock()
	b.record("rpc", procedure, params)
	if err := b.failures[procedure]; err != nil {
		b.mu.Unlock()
		return nil, err
	}
	p, ok := b.procs[procedure]
	b.mu.Unlock()

	if !ok {
		return nil, &backend.Error{
			Status:  404,
			Code:    "PGRST202",
			Message: fmt.Sprintf("Could not find the function public.%s in the schema cache", procedure),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := p(ctx, params)
	if err != nil {
		return nil, err
	}
	return marshal(result)
}

// Select implements backend.Transport
func (b *Backend) Select(ctx context.Context, q backend.Query) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("select", q.Table, filterParams(q))
	if err := b.failures[q.Table]; err != nil {
		return nil, err
	}

	rows := b.matchLocked(q.Table, q.Filters)
	sortRows(rows, q.Orders)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, project(r, q.Columns))
	}
	return marshal(out)
}

// Insert implements backend.Transport
func (b *Backend) Insert(ctx context.Context, q backend.Query, row any) (json.RawMessage, error) {
	fields, err := toRow(row)
	if err != nil {
		return nil, &backend.Error{Status: 400, Code: "PGRST102", Message: err.Error()}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("insert", q.Table, fields)
	if err := b.failures[q.Table]; err != nil {
		return nil, err
	}
	stored := b.insertLocked(q.Table, fields)
	return marshal([]Row{project(stored, q.Columns)})
}

// Update implements backend.Transport
func (b *Backend) Update(ctx context.Context, q backend.Query, patch any) (json.RawMessage, error) {
	fields, err := toRow(patch)
	if err != nil {
		return nil, &backend.Error{Status: 400, Code: "PGRST102", Message: err.Error()}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("update", q.Table, fields)
	if err := b.failures[q.Table]; err != nil {
		return nil, err
	}
	updated := make([]Row, 0)
	for _, r := range b.tables[q.Table] {
		if matches(r, q.Filters) {
			for k, v := range fields {
				r[k] = v
			}
			r["updated_at"] = b.stamp()
			updated = append(updated, project(r, q.Columns))
		}
	}
	return marshal(updated)
}

// Delete implements backend.Transport
func (b *Backend) Delete(ctx context.Context, q backend.Query) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("delete", q.Table, filterParams(q))
	if err := b.failures[q.Table]; err != nil {
		return err
	}
	kept := b.tables[q.Table][:0:0]
	for _, r := range b.tables[q.Table] {
		if !matches(r, q.Filters) {
			kept = append(kept, r)
		}
	}
	b.tables[q.Table] = kept
	return nil
}

// SetAccessToken implements backend.Transport
func (b *Backend) SetAccessToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// Close implements backend.Transport
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// ===== internals (callers hold b.mu) =====

func (b *Backend) record(kind, name string, params map[string]any) {
	b.calls = append(b.calls, Call{Kind: kind, Name: name, Params: copyRow(params), Token: b.token})
}

func (b *Backend) stamp() string {
	return b.now().UTC().Format(time.RFC3339Nano)
}

func (b *Backend) insertLocked(table string, r Row) Row {
	if _, ok := r["id"]; !ok {
		b.seq[table]++
		r["id"] = b.seq[table]
	} else if n, ok := asInt64(r["id"]); ok && n > b.seq[table] {
		b.seq[table] = n
	}
	ts := b.stamp()
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = ts
	}
	if _, ok := r["updated_at"]; !ok {
		r["updated_at"] = ts
	}
	b.tables[table] = append(b.tables[table], r)
	return r
}

func (b *Backend) matchLocked(table string, filters []backend.Filter) []Row {
	out := make([]Row, 0)
	for _, r := range b.tables[table] {
		if matches(r, filters) {
			out = append(out, copyRow(r))
		}
	}
	return out
}

func (b *Backend) findLocked(table string, id any) Row {
	for _, r := range b.tables[table] {
		if sameValue(r["id"], id) {
			return r
		}
	}
	return nil
}

func (b *Backend) removeLocked(table string, keep func(Row) bool) int {
	kept := b.tables[table][:0:0]
	removed := 0
	for _, r := range b.tables[table] {
		if keep(r) {
			kept = append(kept, r)
		} else {
			removed++
		}
	}
	b.tables[table] = kept
	return removed
}

// ===== helpers =====

func matches(r Row, filters []backend.Filter) bool {
	for _, f := range filters {
		if !sameValue(r[f.Column], f.Value) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func sortRows(rows []Row, orders []backend.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			a, c := fmt.Sprint(rows[i][o.Column]), fmt.Sprint(rows[j][o.Column])
			if a == c {
				continue
			}
			if o.Ascending {
				return a < c
			}
			return a > c
		}
		return false
	})
}

func project(r Row, cols []string) Row {
	if len(cols) == 0 || (len(cols) == 1 && cols[0] == "*") {
		return copyRow(r)
	}
	out := make(Row, len(cols))
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}

func filterParams(q backend.Query) map[string]any {
	out := make(map[string]any, len(q.Filters))
	for _, f := range q.Filters {
		out[f.Column] = f.Value
	}
	return out
}

func copyRow(r map[string]any) Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func toRow(v any) (Row, error) {
	if r, ok := v.(map[string]any); ok {
		return copyRow(r), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &backend.Error{Code: backend.CodeDecode, Message: err.Error()}
	}
	return data, nil
}

// column strips the p_ prefix from a procedure parameter
func column(param string) string {
	return strings.TrimPrefix(param, "p_")
}
