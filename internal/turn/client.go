package turn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	chatPath       = "/chat"
	recordsPath    = "/records"
	healthPath     = "/healthz"
	maxErrorBody   = 64 * 1024
	maxReplyBody   = 4 * 1024 * 1024
	defaultTimeout = 2 * time.Minute
)

var (
	// ErrBaseURLRequired indicates a client built without a backend address.
	ErrBaseURLRequired = errors.New("backend base url is required")
)

// StatusError is returned when the backend answers with a non-success status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// ClientConfig configures the HTTP transport.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client sends turns to a backend over HTTP. One call per turn, no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the base URL and constructs a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", base, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: unsupported scheme %q", base, parsed.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send posts one turn and decodes the reply.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal turn request: %w", err)
	}

	started := time.Now()
	var resp Response
	if err := c.do(ctx, http.MethodPost, chatPath, body, &resp); err != nil {
		c.logger.Warn("turn failed",
			zap.String("session", req.SessionToken),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return Response{}, err
	}

	c.logger.Debug("turn completed",
		zap.String("session", req.SessionToken),
		zap.Bool("pending", resp.IsPending),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.Int("records", len(resp.Records)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return resp, nil
}

// Records fetches the backend's current record listing.
func (c *Client) Records(ctx context.Context) ([]Record, error) {
	var list RecordList
	if err := c.do(ctx, http.MethodGet, recordsPath, nil, &list); err != nil {
		return nil, err
	}
	return list.Records, nil
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, healthPath, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, httpResp.Body)
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxReplyBody))
	if err != nil {
		return fmt.Errorf("read %s %s reply: %w", method, path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s reply: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of an error body. Both our
// own {"error": ...} shape and the {"detail": ...} shape are understood.
func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return strings.TrimSpace(string(raw))
	}
	for _, path := range []string{"error", "detail", "message"} {
		if value := gjson.GetBytes(raw, path); value.Exists() && value.Type == gjson.String {
			return strings.TrimSpace(value.String())
		}
	}
	return strings.TrimSpace(string(raw))
}
