// Package workflow drives the reconciliation pipeline: upload, column identification
// and matching, each allowed only from its own stage.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/recon/internal/backend"
	"github.com/Veraticus/recon/internal/common"
	"github.com/Veraticus/recon/internal/health"
	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/session"
	"github.com/Veraticus/recon/internal/validation"
)

// Caller executes one backend call.
type Caller interface {
	Call(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// HealthChecker probes backend connectivity.
type HealthChecker interface {
	Check(ctx context.Context) (health.Status, error)
}

// Machine is the authoritative stage tracker for one session. Transitions run to
// completion one at a time; a call made while another is in flight fails with
// ErrOperationInProgress.
type Machine struct {
	store      *session.Store
	client     Caller
	prober     HealthChecker
	logger     *slog.Logger
	generation atomic.Uint64
	running    sync.Mutex
	commitMu   sync.Mutex
	revalidate bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithHealthRevalidation makes every backend transition re-run the health probe
// instead of trusting the cached result.
func WithHealthRevalidation(enabled bool) Option {
	return func(m *Machine) {
		m.revalidate = enabled
	}
}

// New creates a machine over store. prober may be nil, in which case health must be
// recorded with RecordHealth before any transition.
func New(store *session.Store, client Caller, prober HealthChecker, opts ...Option) (*Machine, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if client == nil {
		return nil, errors.New("backend client is required")
	}

	m := &Machine{
		store:  store,
		client: client,
		prober: prober,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = common.LoggerOrDefault(m.logger)

	return m, nil
}

// Session returns a snapshot of the current session.
func (m *Machine) Session() model.Session {
	return m.store.Get()
}

// Busy reports whether an operation is in flight.
func (m *Machine) Busy() bool {
	if m.running.TryLock() {
		m.running.Unlock()
		return false
	}
	return true
}

// Permitted reports whether op may run from the current stage.
func (m *Machine) Permitted(op Operation) bool {
	required, ok := requiredStage(op)
	if !ok {
		return true
	}
	return m.store.Stage() == required
}

// CheckHealth probes the backend and caches the outcome in the session. It is allowed
// from every stage.
func (m *Machine) CheckHealth(ctx context.Context) (health.Status, error) {
	if !m.running.TryLock() {
		return health.Status{}, ErrOperationInProgress
	}
	defer m.running.Unlock()

	gen, _ := m.snapshot()
	return m.checkHealth(ctx, gen)
}

// RecordHealth stores an externally obtained health result.
func (m *Machine) RecordHealth(healthy bool, message string) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	s := m.store.Get()
	s.BackendHealthy = &healthy
	s.HealthMessage = message
	m.store.Set(s)
}

// Upload sends both files to the backend and opens a backend session. Allowed only
// from Idle; never retried.
func (m *Machine) Upload(ctx context.Context, bank, invoices *model.FileCandidate) (*model.UploadResult, error) {
	if !m.running.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer m.running.Unlock()

	gen, s := m.snapshot()
	if err := m.guard(OpUpload, s); err != nil {
		return nil, err
	}
	if err := validation.ValidatePair(bank, invoices); err != nil {
		return nil, m.fail(gen, err)
	}
	if err := m.ensureHealthy(ctx, gen, s); err != nil {
		return nil, err
	}

	m.logger.Info("Uploading files",
		"bank_file", bank.Name,
		"bank_bytes", bank.SizeBytes,
		"invoice_file", invoices.Name,
		"invoice_bytes", invoices.SizeBytes)

	resp, err := m.client.Call(ctx, backend.Request{
		Method:   http.MethodPost,
		Endpoint: backend.EndpointUpload,
		Files: []backend.FilePart{
			backend.FilePartFor(backend.FieldBankStatement, bank),
			backend.FilePartFor(backend.FieldInvoices, invoices),
		},
	})
	if err != nil {
		return nil, m.fail(gen, fmt.Errorf("upload failed: %w", err))
	}

	var body uploadResponse
	if err := decode(OpUpload, resp, &body); err != nil {
		// The backend session exists once success and session_id are readable.
		head, ok := uploadHead(resp)
		if !ok {
			return nil, m.fail(gen, err)
		}
		m.logger.Warn("Upload response partly unreadable", "session_id", head.SessionID, "error", err)
		body = head
	}
	if !body.Success {
		return nil, m.fail(gen, failureError(OpUpload, resp.StatusCode, body.Error))
	}
	if body.SessionID == "" {
		return nil, m.fail(gen, failureError(OpUpload, resp.StatusCode, "response did not include a session_id"))
	}

	result := body.UploadResult
	err = m.commit(gen, func(s *model.Session) {
		s.SessionID = result.SessionID
		s.Upload = &result
		s.Stage = model.StageFilesUploaded
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Files uploaded",
		"session_id", result.SessionID,
		"bank_rows", result.PreprocessingInfo.BankProcessedRows,
		"invoice_rows", result.PreprocessingInfo.InvoiceProcessedRows)
	return &result, nil
}

// IdentifyColumns asks the backend to pick the matching columns. Allowed only from
// FilesUploaded.
func (m *Machine) IdentifyColumns(ctx context.Context) (*model.ColumnInfo, error) {
	if !m.running.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer m.running.Unlock()

	gen, s := m.snapshot()
	if err := m.guard(OpIdentifyColumns, s); err != nil {
		return nil, err
	}
	if err := m.ensureHealthy(ctx, gen, s); err != nil {
		return nil, err
	}

	m.logger.Info("Identifying columns", "session_id", s.SessionID)

	resp, err := m.client.Call(ctx, backend.Request{
		Method:   http.MethodPost,
		Endpoint: backend.EndpointIdentifyColumns,
		JSON:     sessionRequest{SessionID: s.SessionID},
	})
	if err != nil {
		return nil, m.fail(gen, fmt.Errorf("column identification failed: %w", err))
	}

	var body identifyResponse
	if err := decode(OpIdentifyColumns, resp, &body); err != nil {
		return nil, m.fail(gen, err)
	}
	if !body.Success {
		return nil, m.fail(gen, failureError(OpIdentifyColumns, resp.StatusCode, body.Error))
	}
	if body.ColumnInfo == nil {
		return nil, m.fail(gen, failureError(OpIdentifyColumns, resp.StatusCode, "response did not include column_info"))
	}

	columns := body.ColumnInfo
	if err := m.commit(gen, func(s *model.Session) {
		s.Columns = columns
		s.Stage = model.StageColumnsIdentified
	}); err != nil {
		return nil, err
	}

	m.logger.Info("Columns identified",
		"session_id", s.SessionID,
		"bank_primary", columns.PrimaryMatchFields.Bank,
		"invoice_primary", columns.PrimaryMatchFields.Invoice)
	return columns, nil
}

// Match runs the backend matcher. Allowed only from ColumnsIdentified.
func (m *Machine) Match(ctx context.Context) (*model.MatchingResult, error) {
	if !m.running.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer m.running.Unlock()

	gen, s := m.snapshot()
	if err := m.guard(OpMatch, s); err != nil {
		return nil, err
	}
	if err := m.ensureHealthy(ctx, gen, s); err != nil {
		return nil, err
	}

	m.logger.Info("Matching transactions", "session_id", s.SessionID)

	resp, err := m.client.Call(ctx, backend.Request{
		Method:   http.MethodPost,
		Endpoint: backend.EndpointMatch,
		JSON:     sessionRequest{SessionID: s.SessionID},
	})
	if err != nil {
		return nil, m.fail(gen, fmt.Errorf("matching failed: %w", err))
	}

	var body matchResponse
	if err := decode(OpMatch, resp, &body); err != nil {
		return nil, m.fail(gen, err)
	}
	if !body.Success {
		return nil, m.fail(gen, failureError(OpMatch, resp.StatusCode, body.Error))
	}

	result := body.MatchingResult
	if err := m.commit(gen, func(s *model.Session) {
		s.Matching = &result
		s.Stage = model.StageMatchingCompleted
	}); err != nil {
		return nil, err
	}

	m.logger.Info("Matching completed",
		"session_id", s.SessionID,
		"matched_pairs", result.Summary.MatchedPairs,
		"unmatched_bank", result.Summary.UnmatchedBank,
		"unmatched_invoices", result.Summary.UnmatchedInvoices)
	return &result, nil
}

// Reset discards the session and returns to Idle. It always succeeds and does not
// contact the backend. An operation still in flight will not commit its result.
func (m *Machine) Reset() {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.generation.Add(1)
	m.store.Reset()
	m.logger.Debug("Session reset")
}

func (m *Machine) snapshot() (uint64, model.Session) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	return m.generation.Load(), m.store.Get()
}

// commit applies fn to the session unless a reset happened since gen was taken.
// A successful commit clears LastError.
func (m *Machine) commit(gen uint64, fn func(*model.Session)) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.generation.Load() != gen {
		return ErrSessionReset
	}

	s := m.store.Get()
	fn(&s)
	s.LastError = nil
	m.store.Set(s)
	return nil
}

// fail records err as the session's last error and returns it. Stage and results are
// left as they were.
func (m *Machine) fail(gen uint64, err error) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.generation.Load() == gen {
		s := m.store.Get()
		s.LastError = err
		m.store.Set(s)
	}

	m.logger.Warn("Workflow operation failed", "error", err)
	return err
}

func (m *Machine) guard(op Operation, s model.Session) error {
	required, _ := requiredStage(op)
	if s.Stage != required {
		return &InvalidStageError{Operation: op, Stage: s.Stage, Required: required}
	}
	if required != model.StageIdle && !s.HasSessionID() {
		return &InvalidStageError{Operation: op, Stage: s.Stage, Required: required, MissingSession: true}
	}
	return nil
}

// ensureHealthy trusts the cached health flag. The probe only runs when nothing has
// been recorded yet or revalidation is enabled.
func (m *Machine) ensureHealthy(ctx context.Context, gen uint64, s model.Session) error {
	if m.revalidate || !s.HealthKnown() {
		if m.prober == nil {
			return m.fail(gen, fmt.Errorf("%w: no health check has been run", ErrBackendUnhealthy))
		}
		if _, err := m.checkHealth(ctx, gen); err != nil {
			return fmt.Errorf("%w: %w", ErrBackendUnhealthy, err)
		}
		return nil
	}

	if !s.Healthy() {
		return m.fail(gen, fmt.Errorf("%w: %s", ErrBackendUnhealthy, s.HealthMessage))
	}
	return nil
}

func (m *Machine) checkHealth(ctx context.Context, gen uint64) (health.Status, error) {
	if m.prober == nil {
		return health.Status{}, fmt.Errorf("%w: no health probe configured", ErrBackendUnhealthy)
	}

	status, err := m.prober.Check(ctx)

	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	if m.generation.Load() == gen {
		healthy := err == nil
		s := m.store.Get()
		s.BackendHealthy = &healthy
		if err != nil {
			s.HealthMessage = err.Error()
			s.LastError = err
		} else {
			s.HealthMessage = status.Message
		}
		m.store.Set(s)
	}

	if err != nil {
		m.logger.Warn("Backend health check failed", "error", err)
		return health.Status{}, err
	}
	return status, nil
}

// uploadHead reads only the envelope and session ID of a successful upload response.
func uploadHead(resp *backend.Response) (uploadResponse, bool) {
	if !resp.OK() {
		return uploadResponse{}, false
	}
	var head struct {
		envelope
		SessionID string `json:"session_id"`
	}
	if err := resp.DecodeJSON(&head); err != nil || !head.Success || head.SessionID == "" {
		return uploadResponse{}, false
	}
	return uploadResponse{
		envelope:     head.envelope,
		UploadResult: model.UploadResult{SessionID: head.SessionID},
	}, true
}

func requiredStage(op Operation) (model.Stage, bool) {
	switch op {
	case OpUpload:
		return model.StageIdle, true
	case OpIdentifyColumns:
		return model.StageFilesUploaded, true
	case OpMatch:
		return model.StageColumnsIdentified, true
	default:
		return "", false
	}
}

// decode turns a backend response into v. A non-200 status is a BackendLogicError,
// carrying the backend's error text when the body has one.
func decode(op Operation, resp *backend.Response, v any) error {
	if !resp.OK() {
		var env envelope
		_ = resp.DecodeJSON(&env)
		return statusError(op, resp.StatusCode, env.Error)
	}
	if err := resp.DecodeJSON(v); err != nil {
		return &BackendLogicError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Invalid %s response: %v", op.Label(), err),
		}
	}
	return nil
}
