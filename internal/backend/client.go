// Package backend talks to the remote reconciliation service over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/recon/internal/common"
)

// Backend endpoints.
const (
	EndpointHealth          = "/health"
	EndpointUpload          = "/upload"
	EndpointIdentifyColumns = "/identify_columns"
	EndpointMatch           = "/match"
)

// RequestTimeout bounds every workflow call. Matching large files can take minutes.
const RequestTimeout = 300 * time.Second

// DefaultUserAgent identifies this client to the backend.
const DefaultUserAgent = "recon/1.0"

// Request describes one backend call. At most one of Files and JSON may be set.
type Request struct {
	JSON     any
	Method   string
	Endpoint string
	Files    []FilePart
}

// Response is any HTTP answer from the backend, including non-2xx statuses which may
// carry a structured error body.
type Response struct {
	Header     http.Header
	Body       []byte
	StatusCode int
}

// OK reports whether the status code is 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// DecodeJSON decodes the body into v, keeping numbers in untyped fields as json.Number.
func (r *Response) DecodeJSON(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client executes single backend calls. It never retries: upload, identify and match
// all have side effects on the backend.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: backend URL is required", common.ErrMissingConfig)
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: backend URL must start with http:// or https://: %s", common.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		baseURL:   baseURL,
		timeout:   RequestTimeout,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = common.LoggerOrDefault(c.logger)

	return c, nil
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// URL joins endpoint onto the base URL.
func (c *Client) URL(endpoint string) string {
	return c.baseURL + endpoint
}

// Call performs req and returns the backend's response. Only failures to obtain a
// response are errors; callers inspect Response.StatusCode themselves.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, &RequestError{
			Kind:     KindUnexpectedRequest,
			Endpoint: req.Endpoint,
			Message:  fmt.Sprintf("Request failed: %v", err),
			Err:      err,
		}
	}

	c.logger.Debug("Calling backend",
		"method", httpReq.Method,
		"url", httpReq.URL.String(),
		"files", len(req.Files))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		reqErr := newRequestError(req.Endpoint, err)
		c.logger.Warn("Backend call failed",
			"endpoint", req.Endpoint,
			"kind", reqErr.Kind,
			"error", err)
		return nil, reqErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newRequestError(req.Endpoint, err)
	}

	c.logger.Debug("Backend responded",
		"endpoint", req.Endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start).Round(time.Millisecond))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case len(req.Files) > 0:
		buf, ct, err := encodeMultipart(req.Files)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.URL(req.Endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	return httpReq, nil
}

func (r Request) validate() error {
	if r.Endpoint == "" || !strings.HasPrefix(r.Endpoint, "/") {
		return fmt.Errorf("%w: endpoint must start with /: %q", ErrInvalidRequest, r.Endpoint)
	}
	if len(r.Files) > 0 && r.JSON != nil {
		return fmt.Errorf("%w: files and JSON body are mutually exclusive", ErrInvalidRequest)
	}

	switch r.Method {
	case "", http.MethodGet:
		if len(r.Files) > 0 || r.JSON != nil {
			return fmt.Errorf("%w: GET requests carry no body", ErrInvalidRequest)
		}
	case http.MethodPost:
		if len(r.Files) == 0 && r.JSON == nil {
			return fmt.Errorf("%w: POST requires files or a JSON body", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unsupported method %s", ErrInvalidRequest, r.Method)
	}
	return nil
}
