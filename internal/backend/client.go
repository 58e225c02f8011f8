// Package backend provides the HTTP client for the digital-services backend.
//
// All endpoints used here are idempotent GETs: the client retries them with
// exponential backoff and the rest of the system treats each call as a single
// logical request regardless of the underlying retry count.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	maxRetries     = 3
	maxBackoff     = 30 * time.Second
	defaultTimeout = 30 * time.Second
)

// API is the transport surface the reconciliation pipeline depends on.
type API interface {
	// ListMessages fetches one page of message summaries. An empty cursor
	// requests the newest page.
	ListMessages(ctx context.Context, opts ListOptions) (*Page, error)

	// GetMessage fetches the full content of a single message.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// GetService fetches the public metadata of a sender service.
	GetService(ctx context.Context, id string) (*Service, error)
}

// ListOptions controls the message listing request.
type ListOptions struct {
	// MaximumID is the opaque paging cursor: only messages with an id
	// lexically smaller than it are returned. Empty means newest page.
	MaximumID string

	// PageSize is the number of summaries per page (server default if zero).
	PageSize int
}

// Client implements API against the backend HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// Compile-time check that Client implements API.
var _ API = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a backend client authenticated with a bearer session token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		token:      token,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authenticated GET with retry and backoff. Only network
// errors, 429 and 5xx responses are retried; 4xx responses fail immediately.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	reqURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff, "path", path)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &TransportError{Cause: err}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &TransportError{Cause: err}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, &TransportError{Status: http.StatusNotFound}
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &TransportError{Status: resp.StatusCode}
			continue
		default:
			return nil, &TransportError{Status: resp.StatusCode}
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

// calculateBackoff returns an exponential backoff duration with jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := time.Second * time.Duration(1<<uint(attempt-1))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff) / 4))
	return backoff + jitter
}

// ListMessages fetches one page of message summaries.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) (*Page, error) {
	params := url.Values{}
	if opts.MaximumID != "" {
		params.Set("maximum_id", opts.MaximumID)
	}
	if opts.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(opts.PageSize))
	}

	path := "/api/v1/messages"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &DecodeError{Path: "messages", Cause: err}
	}
	return &page, nil
}

// GetMessage fetches the full content of a single message.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	body, err := c.get(ctx, "/api/v1/messages/"+url.PathEscape(id))
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Kind: "message", ID: id}
		}
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, &DecodeError{Path: "message", Cause: err}
	}
	return &msg, nil
}

// GetService fetches the public metadata of a sender service.
func (c *Client) GetService(ctx context.Context, id string) (*Service, error) {
	body, err := c.get(ctx, "/api/v1/services/"+url.PathEscape(id))
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Kind: "service", ID: id}
		}
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}

	var svc Service
	if err := json.Unmarshal(body, &svc); err != nil {
		return nil, &DecodeError{Path: "service", Cause: err}
	}
	return &svc, nil
}
