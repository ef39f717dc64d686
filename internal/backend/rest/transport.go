package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/config"
)

// Transport implements backend.Transport over HTTP
type Transport struct {
	http   *resty.Client
	key    string
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

var _ backend.Transport = (*Transport)(nil)

// New validates cfg and returns a transport. No request is made.
func New(cfg config.BackendConfig, logger *slog.Logger) (*Transport, error) {
	if err := validate(cfg.URL, cfg.Key); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Transport{
		http:   client,
		key:    cfg.Key,
		logger: logger,
	}, nil
}

// SetAccessToken implements backend.Transport
func (t *Transport) SetAccessToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

func (t *Transport) bearer() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.token != "" {
		return t.token
	}
	return t.key
}

func (t *Transport) request(ctx context.Context) *resty.Request {
	return t.http.R().
		SetContext(ctx).
		SetAuthToken(t.bearer())
}

// Invoke implements backend.Transport
func (t *Transport) Invoke(ctx context.Context, procedure string, params map[string]any) (json.RawMessage, error) {
	resp, err := t.request(ctx).
		SetBody(params).
		Post("/rest/v1/rpc/" + url.PathEscape(procedure))
	return t.result("rpc "+procedure, resp, err)
}

// Select implements backend.Transport
func (t *Transport) Select(ctx context.Context, q backend.Query) (json.RawMessage, error) {
	resp, err := t.request(ctx).
		SetQueryParamsFromValues(queryValues(q, true)).
		Get(tablePath(q.Table))
	return t.result("select "+q.Table, resp, err)
}

// Insert implements backend.Transport
func (t *Transport) Insert(ctx context.Context, q backend.Query, row any) (json.RawMessage, error) {
	resp, err := t.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(selectOnly(q)).
		SetBody(row).
		Post(tablePath(q.Table))
	return t.result("insert "+q.Table, resp, err)
}

// Update implements backend.Transport
func (t *Transport) Update(ctx context.Context, q backend.Query, patch any) (json.RawMessage, error) {
	resp, err := t.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(queryValues(q, false)).
		SetBody(patch).
		Patch(tablePath(q.Table))
	return t.result("update "+q.Table, resp, err)
}

// Delete implements backend.Transport
func (t *Transport) Delete(ctx context.Context, q backend.Query) error {
	resp, err := t.request(ctx).
		SetQueryParamsFromValues(queryValues(q, false)).
		Delete(tablePath(q.Table))
	_, err = t.result("delete "+q.Table, resp, err)
	return err
}

// Close implements backend.Transport
func (t *Transport) Close(ctx context.Context) error {
	t.http.GetClient().CloseIdleConnections()
	return nil
}

// result maps a resty response to the raw body or a *backend.Error
func (t *Transport) result(op string, resp *resty.Response, err error) (json.RawMessage, error) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		t.logger.Debug("backend request failed", slog.String("op", op), slog.String("error", err.Error()))
		return nil, &backend.Error{Code: backend.CodeTransport, Message: err.Error()}
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	body := resp.Body()
	if resp.StatusCode() == http.StatusNoContent || len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
	Hint    json.RawMessage `json:"hint"`
}

func decodeError(resp *resty.Response) error {
	be := &backend.Error{Status: resp.StatusCode()}
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && (body.Message != "" || body.Code != "") {
		be.Code = body.Code
		be.Message = body.Message
		be.Details = rawText(body.Details)
		be.Hint = rawText(body.Hint)
		return be
	}
	be.Message = strings.TrimSpace(string(resp.Body()))
	if be.Message == "" {
		be.Message = http.StatusText(resp.StatusCode())
	}
	return be
}

// rawText renders a JSON string or value as text; null becomes ""
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func tablePath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

// queryValues renders filters, ordering and limit in the REST dialect
func queryValues(q backend.Query, withRead bool) url.Values {
	v := selectOnly(q)
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+formatValue(f.Value))
	}
	if !withRead {
		return v
	}
	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "desc"
			if o.Ascending {
				dir = "asc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	return v
}

func selectOnly(q backend.Query) url.Values {
	v := url.Values{}
	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	}
	return v
}

func formatValue(value any) string {
	switch x := value.(type) {
	case nil:
		return "null"
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func validate(rawURL, key string) error {
	var errs []error
	if rawURL == "" {
		errs = append(errs, errors.New("backend url is required"))
	} else if u, err := url.Parse(rawURL); err != nil {
		errs = append(errs, fmt.Errorf("backend url: %w", err))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend url must be an absolute http(s) url, got %q", rawURL))
	}
	if key == "" {
		errs = append(errs, errors.New("backend key is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
