package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/recon/internal/model"
)

// MockWriter is a mock implementation of ReportWriter for testing.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, result *model.MatchingResult, matched []model.Row) error
	LastResult     *model.MatchingResult
	WriteCalls     []WriteCall
	LastMatched    []model.Row
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error   error
	Result  *model.MatchingResult
	Matched []model.Row
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// Write implements the ReportWriter interface.
func (m *MockWriter) Write(ctx context.Context, result *model.MatchingResult, matched []model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastResult = result
	m.LastMatched = matched

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, result, matched)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Result:  result,
		Matched: matched,
		Error:   err,
	})

	return err
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount = 0
	m.WriteCalls = make([]WriteCall, 0)
	m.LastResult = nil
	m.LastMatched = nil
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to fail every Write with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(_ context.Context, _ *model.MatchingResult, _ []model.Row) error {
		return err
	}
}
