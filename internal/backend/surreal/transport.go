// Package surreal implements backend.Transport on a SurrealDB connection.
//
// Remote procedures run as SurrealQL functions, `RETURN fn::name($params)`,
// receiving the same named parameter record the HTTP transport posts. Table
// calls become SELECT, CREATE, UPDATE ... MERGE and DELETE statements. Auth
// is not served here; pair the transport with rest.AuthAPI.
package surreal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/config"
	"github.com/popitgo/client/internal/database"
)

// CodeQuery is reported for statement failures
const CodeQuery = "SURREAL_QUERY"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Transport implements backend.Transport
type Transport struct {
	db     database.Database
	logger *slog.Logger

	mu      sync.Mutex
	token   string
	applied string
}

var _ backend.Transport = (*Transport)(nil)

// New wraps an open connection
func New(db database.Database, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{db: db, logger: logger}
}

// Open validates cfg, connects and returns a transport. An invalid endpoint
// fails before any connection attempt.
func Open(ctx context.Context, cfg config.BackendConfig, logger *slog.Logger) (*Transport, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	db := database.NewSurrealDB(database.Config{
		Endpoint:  cfg.URL,
		User:      cfg.User,
		Password:  cfg.Password,
		Namespace: cfg.Namespace,
		Database:  cfg.Database,
	})
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := db.Connect(ctx); err != nil {
		return nil, &backend.Error{Code: backend.CodeTransport, Message: err.Error()}
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, &backend.Error{Code: backend.CodeTransport, Message: err.Error()}
	}
	return New(db, logger), nil
}

// SetAccessToken implements backend.Transport. The token is applied to the
// connection before the next call.
func (t *Transport) SetAccessToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

// authenticate pushes a changed token to the connection
func (t *Transport) authenticate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token == t.applied {
		return nil
	}
	if err := t.db.Authenticate(ctx, t.token); err != nil {
		return t.mapError("authenticate", err)
	}
	t.applied = t.token
	return nil
}

// Invoke implements backend.Transport
func (t *Transport) Invoke(ctx context.Context, procedure string, params map[string]any) (json.RawMessage, error) {
	if !identPattern.MatchString(procedure) {
		return nil, &backend.Error{Status: 400, Code: CodeQuery, Message: fmt.Sprintf("invalid procedure name %q", procedure)}
	}
	if params == nil {
		params = map[string]any{}
	}
	results, err := t.run(ctx, "rpc "+procedure, "RETURN fn::"+procedure+"($params);", map[string]interface{}{"params": params})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return json.RawMessage("null"), nil
	}
	return encode(results[0])
}

// Select implements backend.Transport
func (t *Transport) Select(ctx context.Context, q backend.Query) (json.RawMessage, error) {
	stmt, vars, err := selectStatement(q)
	if err != nil {
		return nil, err
	}
	return t.rows(ctx, "select "+q.Table, stmt, vars)
}

// Insert implements backend.Transport
func (t *Transport) Insert(ctx context.Context, q backend.Query, row any) (json.RawMessage, error) {
	if err := checkIdents(q); err != nil {
		return nil, err
	}
	stmt := "CREATE type::table($tb) CONTENT $data" + returnClause(q.Columns) + ";"
	return t.rows(ctx, "insert "+q.Table, stmt, map[string]interface{}{"tb": q.Table, "data": row})
}

// Update implements backend.Transport
func (t *Transport) Update(ctx context.Context, q backend.Query, patch any) (json.RawMessage, error) {
	if err := checkIdents(q); err != nil {
		return nil, err
	}
	where, vars := whereClause(q.Filters)
	vars["tb"] = q.Table
	vars["data"] = patch
	stmt := "UPDATE type::table($tb) MERGE $data" + where + returnClause(q.Columns) + ";"
	return t.rows(ctx, "update "+q.Table, stmt, vars)
}

// Delete implements backend.Transport
func (t *Transport) Delete(ctx context.Context, q backend.Query) error {
	if err := checkIdents(q); err != nil {
		return err
	}
	where, vars := whereClause(q.Filters)
	vars["tb"] = q.Table
	_, err := t.run(ctx, "delete "+q.Table, "DELETE type::table($tb)"+where+";", vars)
	return err
}

// Close implements backend.Transport
func (t *Transport) Close(ctx context.Context) error {
	return t.db.Close()
}

func (t *Transport) run(ctx context.Context, op, stmt string, vars map[string]interface{}) ([]interface{}, error) {
	if err := t.authenticate(ctx); err != nil {
		return nil, err
	}
	results, err := t.db.Query(ctx, stmt, vars)
	if err != nil {
		return nil, t.mapError(op, err)
	}
	return results, nil
}

// rows runs a single statement and returns its result as a JSON array
func (t *Transport) rows(ctx context.Context, op, stmt string, vars map[string]interface{}) (json.RawMessage, error) {
	results, err := t.run(ctx, op, stmt, vars)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == nil {
		return json.RawMessage("[]"), nil
	}
	if _, ok := results[0].([]interface{}); !ok {
		return encode([]interface{}{results[0]})
	}
	return encode(results[0])
}

func (t *Transport) mapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	t.logger.Debug("surreal call failed", slog.String("op", op), slog.String("error", err.Error()))
	switch {
	case errors.Is(err, database.ErrConnection):
		return &backend.Error{Code: backend.CodeTransport, Message: err.Error()}
	case errors.Is(err, database.ErrNotFound):
		return &backend.Error{Status: 406, Code: backend.CodeNoRows, Message: err.Error()}
	default:
		msg := strings.TrimPrefix(err.Error(), database.ErrQuery.Error()+": ")
		return &backend.Error{Status: 400, Code: CodeQuery, Message: msg}
	}
}

func encode(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &backend.Error{Code: backend.CodeDecode, Message: err.Error()}
	}
	return data, nil
}

// ===== statement builders =====

func selectStatement(q backend.Query) (string, map[string]interface{}, error) {
	if err := checkIdents(q); err != nil {
		return "", nil, err
	}
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}
	where, vars := whereClause(q.Filters)
	vars["tb"] = q.Table

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(cols)
	b.WriteString(" FROM type::table($tb)")
	b.WriteString(where)
	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	b.WriteString(";")
	return b.String(), vars, nil
}

// whereClause binds filter values as $f0, $f1, ... The id column is
// compared as a record id on the queried table.
func whereClause(filters []backend.Filter) (string, map[string]interface{}) {
	vars := make(map[string]interface{}, len(filters)+2)
	if len(filters) == 0 {
		return "", vars
	}
	conds := make([]string, 0, len(filters))
	for i, f := range filters {
		name := fmt.Sprintf("f%d", i)
		vars[name] = f.Value
		if f.Column == "id" {
			conds = append(conds, "id = type::thing($tb, $"+name+")")
			continue
		}
		conds = append(conds, f.Column+" = $"+name)
	}
	return " WHERE " + strings.Join(conds, " AND "), vars
}

func returnClause(cols []string) string {
	if len(cols) == 0 {
		return " RETURN AFTER"
	}
	return " RETURN " + strings.Join(cols, ", ")
}

func checkIdents(q backend.Query) error {
	names := []string{q.Table}
	names = append(names, q.Columns...)
	for _, f := range q.Filters {
		names = append(names, f.Column)
	}
	for _, o := range q.Orders {
		names = append(names, o.Column)
	}
	for _, n := range names {
		if !identPattern.MatchString(n) {
			return &backend.Error{Status: 400, Code: CodeQuery, Message: fmt.Sprintf("invalid identifier %q", n)}
		}
	}
	return nil
}

func validate(cfg config.BackendConfig) error {
	var errs []error
	if cfg.URL == "" {
		errs = append(errs, errors.New("surreal endpoint is required"))
	} else if u, err := url.Parse(cfg.URL); err != nil {
		errs = append(errs, fmt.Errorf("surreal endpoint: %w", err))
	} else {
		switch u.Scheme {
		case "ws", "wss", "http", "https":
		default:
			errs = append(errs, fmt.Errorf("surreal endpoint scheme must be ws(s) or http(s), got %q", u.Scheme))
		}
		if u.Host == "" {
			errs = append(errs, errors.New("surreal endpoint is missing a host"))
		}
	}
	if cfg.Key == "" {
		errs = append(errs, errors.New("backend key is required"))
	}
	if cfg.Namespace == "" || cfg.Database == "" {
		errs = append(errs, errors.New("surreal namespace and database are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
