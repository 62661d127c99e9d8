package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
	"github.com/chinoiserie/catalog/internal/domains/catalog/ports"
)

const defaultTimeout = 10 * time.Second

var (
	_ ports.ItemService[int64]  = (*Client[int64])(nil)
	_ ports.ItemService[string] = (*Client[string])(nil)
)

// StatusError is returned for any non-2xx answer from a collection function.
type StatusError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Method, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Method, e.StatusCode)
}

// Unwrap lets callers match the port sentinels with errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ports.ErrNotFound
	case http.StatusConflict:
		return ports.ErrConflict
	default:
		return nil
	}
}

// Client talks to one collection function (products or categories) over HTTP.
type Client[K comparable] struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger injects a slog logger for per-call debug lines.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout bounds every call made by the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// NewProductClient builds a client for the products function.
func NewProductClient(baseURL string, opts ...Option) (*Client[int64], error) {
	return newClient[int64](baseURL, opts...)
}

// NewCategoryClient builds a client for the categories function.
func NewCategoryClient(baseURL string, opts ...Option) (*Client[string], error) {
	return newClient[string](baseURL, opts...)
}

func newClient[K comparable](baseURL string, opts ...Option) (*Client[K], error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("collection base URL is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse collection base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("collection base URL %q must be absolute", baseURL)
	}
	cfg := options{timeout: defaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{
			Timeout:   cfg.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client[K]{base: base, http: cfg.httpClient, logger: cfg.logger}, nil
}

// FetchAll lists the whole collection.
func (c *Client[K]) FetchAll(ctx context.Context) ([]domain.Item[K], error) {
	var records []wireItem[K]
	if err := c.do(ctx, http.MethodGet, c.base.String(), nil, &records); err != nil {
		return nil, err
	}
	items := make([]domain.Item[K], 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return items, nil
}

// FetchOne loads a single record by id.
func (c *Client[K]) FetchOne(ctx context.Context, id K) (domain.Item[K], error) {
	target, err := c.withID(id)
	if err != nil {
		return domain.Item[K]{}, err
	}
	var record wireItem[K]
	if err := c.do(ctx, http.MethodGet, target, nil, &record); err != nil {
		return domain.Item[K]{}, err
	}
	return record.toDomain(), nil
}

// Create posts a new record. Fields the function does not echo back keep the values sent.
func (c *Client[K]) Create(ctx context.Context, item domain.Item[K]) (domain.Item[K], error) {
	var record wireItem[K]
	if err := c.do(ctx, http.MethodPost, c.base.String(), fromItem(item), &record); err != nil {
		return domain.Item[K]{}, err
	}
	return record.overlay(item), nil
}

// Update sends a partial change; the id travels in the body.
func (c *Client[K]) Update(ctx context.Context, id K, patch domain.Patch) error {
	return c.do(ctx, http.MethodPut, c.base.String(), fromPatch(id, patch), nil)
}

// SetVisibility is a single-field update of is_visible.
func (c *Client[K]) SetVisibility(ctx context.Context, id K, visible bool) error {
	return c.Update(ctx, id, domain.Patch{Visible: &visible})
}

// SetSortOrder is a single-field update of sort_order.
func (c *Client[K]) SetSortOrder(ctx context.Context, id K, order int) error {
	return c.Update(ctx, id, domain.Patch{SortOrder: &order})
}

// Delete removes a record by id.
func (c *Client[K]) Delete(ctx context.Context, id K) error {
	target, err := c.withID(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, target, nil, nil)
}

func (c *Client[K]) withID(id K) (string, error) {
	param, err := runtime.StyleParamWithLocation("form", true, "id", runtime.ParamLocationQuery, id)
	if err != nil {
		return "", fmt.Errorf("encode id %v: %w", id, err)
	}
	target := *c.base
	if target.RawQuery != "" {
		target.RawQuery += "&" + param
	} else {
		target.RawQuery = param
	}
	return target.String(), nil
}

func (c *Client[K]) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, c.base.Path, err)
	}
	defer resp.Body.Close()
	c.logger.LogAttrs(ctx, slog.LevelDebug, "collection call",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(method, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func statusError(method string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(raw))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		message = strings.TrimSpace(body.Error)
	}
	if message == "" {
		message = resp.Status
	}
	return &StatusError{Method: method, StatusCode: resp.StatusCode, Message: message}
}
