// Package health checks backend connectivity with bounded retries, tolerating a
// hosted backend that sleeps when idle and takes a while to wake up.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/recon/internal/backend"
	"github.com/Veraticus/recon/internal/common"
)

// Probe defaults.
const (
	DefaultAttempts       = 3
	DefaultAttemptTimeout = 45 * time.Second
	DefaultBaseDelay      = 2 * time.Second
	DefaultUserAgent      = "recon-health/1.0"

	// MessageLimit caps diagnostic text copied from errors and response bodies.
	MessageLimit = 100
)

// Probe errors.
var (
	ErrSSL                = errors.New("ssl error")
	ErrConnection         = errors.New("connection error")
	ErrTimeout            = errors.New("timeout")
	ErrUnexpected         = errors.New("unexpected error")
	ErrBadStatus          = errors.New("bad status")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Kind classifies a failed probe.
type Kind string

// Probe failure kinds.
const (
	KindSSL                Kind = "ssl_error"
	KindConnection         Kind = "connection_error"
	KindTimeout            Kind = "timeout_error"
	KindUnexpected         Kind = "unexpected_error"
	KindBadStatus          Kind = "bad_status"
	KindMaxRetriesExceeded Kind = "max_retries_exceeded"
)

// ProbeError is a failed health check. For KindMaxRetriesExceeded, Last holds the
// failure of the final attempt.
type ProbeError struct {
	Err        error
	Last       *ProbeError
	Kind       Kind
	Message    string
	StatusCode int
	Attempt    int
}

func (e *ProbeError) Error() string {
	return e.Message
}

// Unwrap exposes the final attempt's failure for exhausted probes and the transport
// error otherwise.
func (e *ProbeError) Unwrap() error {
	if e.Last != nil {
		return e.Last
	}
	return e.Err
}

// Is lets errors.Is match the sentinel for the failure kind.
func (e *ProbeError) Is(target error) bool {
	switch e.Kind {
	case KindSSL:
		return target == ErrSSL
	case KindConnection:
		return target == ErrConnection
	case KindTimeout:
		return target == ErrTimeout
	case KindUnexpected:
		return target == ErrUnexpected
	case KindBadStatus:
		return target == ErrBadStatus
	case KindMaxRetriesExceeded:
		return target == ErrMaxRetriesExceeded
	default:
		return false
	}
}

// Retryable reports whether another attempt may succeed. Only transport failures are
// retried; a wrong status means the backend answered.
func (e *ProbeError) Retryable() bool {
	switch e.Kind {
	case KindSSL, KindConnection, KindTimeout, KindUnexpected:
		return true
	default:
		return false
	}
}

// Status is a successful health check.
type Status struct {
	Message    string
	StatusCode int
	Attempts   int
}

// RetryNotifier is told about each wait before a retry.
type RetryNotifier func(attempt, maxAttempts int, delay time.Duration, cause *ProbeError)

// Probe checks GET {base}/health.
type Probe struct {
	httpClient     *http.Client
	sleeper        common.Sleeper
	logger         *slog.Logger
	notify         RetryNotifier
	url            string
	userAgent      string
	backoff        common.Backoff
	attempts       int
	attemptTimeout time.Duration
}

// Option configures a Probe.
type Option func(*Probe)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Probe) {
		p.httpClient = hc
	}
}

// WithAttempts sets the total number of attempts.
func WithAttempts(n int) Option {
	return func(p *Probe) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithAttemptTimeout sets the timeout of a single attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(p *Probe) {
		if d > 0 {
			p.attemptTimeout = d
		}
	}
}

// WithBackoff sets the delay policy between attempts.
func WithBackoff(b common.Backoff) Option {
	return func(p *Probe) {
		p.backoff = b
	}
}

// WithSleeper injects the clock used between attempts.
func WithSleeper(s common.Sleeper) Option {
	return func(p *Probe) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		p.logger = logger
	}
}

// WithRetryNotifier registers a callback invoked before every backoff wait.
func WithRetryNotifier(fn RetryNotifier) Option {
	return func(p *Probe) {
		p.notify = fn
	}
}

// NewProbe creates a probe for the backend rooted at baseURL.
func NewProbe(baseURL string, opts ...Option) (*Probe, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: backend URL is required", common.ErrMissingConfig)
	}

	p := &Probe{
		url:            baseURL + backend.EndpointHealth,
		userAgent:      DefaultUserAgent,
		attempts:       DefaultAttempts,
		attemptTimeout: DefaultAttemptTimeout,
		backoff:        common.Backoff{Base: DefaultBaseDelay, Multiplier: 2},
		sleeper:        common.RealSleeper,
		httpClient:     &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = common.LoggerOrDefault(p.logger)

	return p, nil
}

// URL returns the probed health endpoint.
func (p *Probe) URL() string {
	return p.url
}

// Check runs the probe. It returns on the first HTTP response: 200 is success and any
// other status is a KindBadStatus error. Transport failures are retried with backoff
// until the attempt budget runs out.
func (p *Probe) Check(ctx context.Context) (Status, error) {
	var last *ProbeError

	for attempt := 0; attempt < p.attempts; attempt++ {
		status, perr := p.attempt(ctx, attempt)
		if perr == nil {
			status.Attempts = attempt + 1
			p.logger.Debug("Backend healthy", "url", p.url, "attempts", status.Attempts)
			return status, nil
		}
		if !perr.Retryable() {
			return Status{}, perr
		}

		last = perr
		if attempt == p.attempts-1 {
			break
		}

		delay := p.backoff.Delay(attempt)
		p.logger.Info("Health check failed, retrying",
			"attempt", attempt+1,
			"max_attempts", p.attempts,
			"delay", delay,
			"error", perr.Message)
		if p.notify != nil {
			p.notify(attempt+1, p.attempts, delay, perr)
		}

		if err := p.sleeper.Sleep(ctx, delay); err != nil {
			return Status{}, &ProbeError{
				Kind:    KindUnexpected,
				Message: "Unexpected error: " + common.Truncate(err.Error(), MessageLimit),
				Attempt: attempt + 1,
				Err:     err,
			}
		}
	}

	return Status{}, &ProbeError{
		Kind:    KindMaxRetriesExceeded,
		Message: fmt.Sprintf("Max retries exceeded: %s", last.Message),
		Attempt: p.attempts,
		Last:    last,
	}
}

func (p *Probe) attempt(ctx context.Context, attempt int) (Status, *ProbeError) {
	ctx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Status{}, &ProbeError{
			Kind:    KindUnexpected,
			Message: "Unexpected error: " + common.Truncate(err.Error(), MessageLimit),
			Attempt: attempt + 1,
			Err:     err,
		}
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Status{}, p.classify(err, attempt)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return Status{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Connected (HTTP %d)", resp.StatusCode),
		}, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*MessageLimit))
	return Status{}, &ProbeError{
		Kind:       KindBadStatus,
		StatusCode: resp.StatusCode,
		Attempt:    attempt + 1,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, common.Truncate(string(body), MessageLimit)),
	}
}

func (p *Probe) classify(err error, attempt int) *ProbeError {
	detail := common.Truncate(err.Error(), MessageLimit)
	perr := &ProbeError{Attempt: attempt + 1, Err: err}

	switch backend.ClassifyTransportError(err) {
	case backend.FailureSSL:
		perr.Kind = KindSSL
		perr.Message = "SSL Error: " + detail
	case backend.FailureConnection:
		perr.Kind = KindConnection
		perr.Message = "Connection Error: " + detail
	case backend.FailureTimeout:
		perr.Kind = KindTimeout
		if attempt == p.attempts-1 {
			perr.Message = "Timeout - backend may still be starting up"
		} else {
			perr.Message = fmt.Sprintf("Timeout after %s (attempt %d/%d)", p.attemptTimeout, attempt+1, p.attempts)
		}
	default:
		perr.Kind = KindUnexpected
		perr.Message = "Unexpected error: " + detail
	}
	return perr
}
