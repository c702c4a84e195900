package backend

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Request errors.
var (
	ErrRequestTimeout    = errors.New("request timed out")
	ErrConnectionFailed  = errors.New("failed to connect to backend")
	ErrUnexpectedRequest = errors.New("request failed")
	ErrInvalidRequest    = errors.New("invalid request")
)

// FailureKind classifies a transport-level failure.
type FailureKind string

// Transport failure kinds.
const (
	FailureSSL        FailureKind = "ssl"
	FailureConnection FailureKind = "connection"
	FailureTimeout    FailureKind = "timeout"
	FailureUnexpected FailureKind = "unexpected"
)

// ClassifyTransportError maps an error from an HTTP round trip to a FailureKind.
// TLS problems are checked first since they also surface as connection errors.
func ClassifyTransportError(err error) FailureKind {
	if err == nil {
		return ""
	}

	if isTLSError(err) {
		return FailureSSL
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return FailureConnection
	}

	return FailureUnexpected
}

func isTLSError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalidCert      x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
		alert            tls.AlertError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &verification) ||
		errors.As(err, &recordHeader) ||
		errors.As(err, &alert)
}

// RequestKind identifies why a backend call failed before a response arrived.
type RequestKind string

// Request failure kinds.
const (
	KindRequestTimeout    RequestKind = "request_timeout"
	KindConnectionFailed  RequestKind = "connection_failed"
	KindUnexpectedRequest RequestKind = "unexpected_request_error"
)

// RequestError is returned when no HTTP response could be obtained.
type RequestError struct {
	Err      error
	Kind     RequestKind
	Endpoint string
	Message  string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel for the failure kind.
func (e *RequestError) Is(target error) bool {
	switch e.Kind {
	case KindRequestTimeout:
		return target == ErrRequestTimeout
	case KindConnectionFailed:
		return target == ErrConnectionFailed
	case KindUnexpectedRequest:
		return target == ErrUnexpectedRequest
	default:
		return false
	}
}

func newRequestError(endpoint string, err error) *RequestError {
	switch ClassifyTransportError(err) {
	case FailureTimeout:
		return &RequestError{
			Kind:     KindRequestTimeout,
			Endpoint: endpoint,
			Message:  "Request timed out. The operation may be taking longer than expected.",
			Err:      err,
		}
	case FailureConnection, FailureSSL:
		return &RequestError{
			Kind:     KindConnectionFailed,
			Endpoint: endpoint,
			Message:  "Failed to connect to backend. The service may be starting up.",
			Err:      err,
		}
	default:
		return &RequestError{
			Kind:     KindUnexpectedRequest,
			Endpoint: endpoint,
			Message:  fmt.Sprintf("Request failed: %v", err),
			Err:      err,
		}
	}
}
