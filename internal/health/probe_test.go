package health

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/Veraticus/recon/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock records requested waits without sleeping.
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays = append(c.delays, d)
	return nil
}

func (c *fakeClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// scriptedTransport replays one outcome per round trip.
type scriptedTransport struct {
	outcomes []func(*http.Request) (*http.Response, error)
	calls    int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	i := s.calls
	s.calls++
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	return s.outcomes[i](req)
}

func refused(*http.Request) (*http.Response, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
}

func newScriptedProbe(t *testing.T, transport *scriptedTransport, clock *fakeClock) *Probe {
	t.Helper()
	probe, err := NewProbe("https://backend.example",
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSleeper(clock))
	require.NoError(t, err)
	return probe
}

func TestProbe_RecoversAfterTransportFailures(t *testing.T) {
	transport := &scriptedTransport{outcomes: []func(*http.Request) (*http.Response, error){
		refused,
		refused,
		respond(http.StatusOK, `{"status":"ok"}`),
	}}
	clock := &fakeClock{}

	var notified []int
	probe := newScriptedProbe(t, transport, clock)
	probe.notify = func(attempt, _ int, _ time.Duration, _ *ProbeError) {
		notified = append(notified, attempt)
	}

	status, err := probe.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status.StatusCode)
	assert.Equal(t, "Connected (HTTP 200)", status.Message)
	assert.Equal(t, 3, status.Attempts)
	assert.Equal(t, 3, transport.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, clock.Delays())
	assert.Equal(t, []int{1, 2}, notified)
}

func TestProbe_BadStatusIsNotRetried(t *testing.T) {
	transport := &scriptedTransport{outcomes: []func(*http.Request) (*http.Response, error){
		respond(http.StatusInternalServerError, strings.Repeat("x", 250)),
	}}
	clock := &fakeClock{}
	probe := newScriptedProbe(t, transport, clock)

	_, err := probe.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadStatus)

	var perr *ProbeError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	assert.Equal(t, "HTTP 500: "+strings.Repeat("x", 100), perr.Message)
	assert.Equal(t, 1, transport.calls)
	assert.Empty(t, clock.Delays())
}

func TestProbe_MaxRetriesExceeded(t *testing.T) {
	transport := &scriptedTransport{outcomes: []func(*http.Request) (*http.Response, error){refused}}
	clock := &fakeClock{}
	probe := newScriptedProbe(t, transport, clock)

	_, err := probe.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, err, ErrConnection)

	var perr *ProbeError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindMaxRetriesExceeded, perr.Kind)
	require.NotNil(t, perr.Last)
	assert.Equal(t, KindConnection, perr.Last.Kind)
	assert.True(t, strings.HasPrefix(perr.Last.Message, "Connection Error: "))
	assert.Equal(t, 3, transport.calls)
	assert.Len(t, clock.Delays(), 2)
}

func TestProbe_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    Kind
		wantMsg string
	}{
		{name: "connection", err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, want: KindConnection, wantMsg: "Connection Error: "},
		{name: "timeout", err: context.DeadlineExceeded, want: KindTimeout, wantMsg: "Timeout after 45s (attempt 1/3)"},
		{name: "unexpected", err: errors.New(strings.Repeat("e", 300)), want: KindUnexpected, wantMsg: "Unexpected error: " + strings.Repeat("e", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe, err := NewProbe("https://backend.example")
			require.NoError(t, err)

			perr := probe.classify(tt.err, 0)
			assert.Equal(t, tt.want, perr.Kind)
			assert.True(t, strings.HasPrefix(perr.Message, tt.wantMsg), perr.Message)
			assert.True(t, perr.Retryable())
		})
	}
}

func TestProbe_AgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe, err := NewProbe(server.URL+"/", WithSleeper(&fakeClock{}))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/health", probe.URL())

	status, err := probe.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Attempts)
}

func TestProbe_SleepCancelled(t *testing.T) {
	transport := &scriptedTransport{outcomes: []func(*http.Request) (*http.Response, error){refused}}
	probe, err := NewProbe("https://backend.example",
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSleeper(common.SleeperFunc(func(context.Context, time.Duration) error {
			return context.Canceled
		})))
	require.NoError(t, err)

	_, err = probe.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, transport.calls)
}

func TestNewProbe_RequiresURL(t *testing.T) {
	_, err := NewProbe(" ")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
