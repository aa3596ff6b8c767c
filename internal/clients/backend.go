package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	apiPrefix = "/api"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	bearerKey    ctxKey = "bearer_token"
)

// WithRequestID tags outgoing backend calls with the inbound request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request id set by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithBearer forwards a caller's bearer token to the backend.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey, token)
}

// Backend talks to the REST backend. It implements CatalogClient,
// CheckoutClient, OrdersClient and AdminClient.
type Backend struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.LoggerV2
}

// NewBackend creates a backend client. No call is retried.
func NewBackend(cfg config.ServiceConfig, logger *logging.LoggerV2) *Backend {
	return &Backend{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

type call struct {
	method string
	path   string
	body   interface{}
	out    interface{}
	header http.Header
}

// do sends c and decodes a 2xx body into c.out. It returns the status code
// so callers can tell 200 from 201.
func (b *Backend) do(ctx context.Context, c call) (int, error) {
	var reader io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	url := b.baseURL + apiPrefix + c.path
	req, err := http.NewRequestWithContext(ctx, c.method, url, reader)
	if err != nil {
		return 0, err
	}

	b.setHeaders(ctx, req)
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error("Backend request failed", logging.Fields{
			"method": c.method,
			"path":   c.path,
			"error":  err.Error(),
		})
		return 0, fmt.Errorf("%s %s: %w", c.method, c.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstream := &errors.UpstreamError{
			StatusCode: resp.StatusCode,
			Method:     c.method,
			Path:       c.path,
			Message:    readErrorMessage(resp.Body),
		}
		b.logger.Warn("Backend returned error", logging.Fields{
			"method":      c.method,
			"path":        c.path,
			"status_code": resp.StatusCode,
			"message":     upstream.Message,
		})
		return resp.StatusCode, upstream
	}

	if c.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(c.out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %v", errors.ErrMalformedResponse, c.method, c.path, err)
	}
	return resp.StatusCode, nil
}

func (b *Backend) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if token, _ := ctx.Value(bearerKey).(string); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	if requestID := RequestIDFrom(ctx); requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
}

// readErrorMessage pulls the "error" or "message" field out of an error body.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if s, ok := body.Error.(string); ok && s != "" {
		return s
	}
	return body.Message
}

// decodeList accepts either a bare array or an object wrapping the array
// under key. Any other shape yields an empty list when lenient is set and
// ErrMalformedResponse otherwise.
func decodeList[T any](raw json.RawMessage, key string, lenient bool) ([]T, error) {
	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	if key != "" {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err == nil {
			if inner, ok := wrapped[key]; ok {
				if err := json.Unmarshal(inner, &items); err == nil {
					if items == nil {
						items = []T{}
					}
					return items, nil
				}
			}
		}
	}

	if lenient {
		return []T{}, nil
	}
	return nil, fmt.Errorf("%w: expected list", errors.ErrMalformedResponse)
}
