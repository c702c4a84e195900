package workflow

import (
	"errors"
	"fmt"

	"github.com/Veraticus/recon/internal/model"
)

// Workflow errors.
var (
	ErrOperationInProgress = errors.New("another operation is in progress")
	ErrBackendUnhealthy    = errors.New("backend is not connected")
	ErrInvalidStage        = errors.New("operation not permitted at current stage")
	ErrBackendLogic        = errors.New("backend reported a failure")
	ErrSessionReset        = errors.New("session was reset while the operation was running")
)

// Operation names a workflow transition.
type Operation string

// Workflow operations.
const (
	OpCheckHealth     Operation = "check_health"
	OpUpload          Operation = "upload"
	OpIdentifyColumns Operation = "identify_columns"
	OpMatch           Operation = "match"
)

// Label returns a human readable operation name.
func (o Operation) Label() string {
	switch o {
	case OpCheckHealth:
		return "health check"
	case OpUpload:
		return "upload"
	case OpIdentifyColumns:
		return "column identification"
	case OpMatch:
		return "matching"
	default:
		return string(o)
	}
}

// InvalidStageError is returned when an operation is attempted out of order. The
// session is left untouched and no backend call is made. MissingSession reports a
// session past Idle that has no backend session ID.
type InvalidStageError struct {
	Operation      Operation
	Stage          model.Stage
	Required       model.Stage
	MissingSession bool
}

func (e *InvalidStageError) Error() string {
	if e.MissingSession {
		return fmt.Sprintf("cannot run %s at stage %q: no backend session ID",
			e.Operation.Label(), e.Stage.Label())
	}
	return fmt.Sprintf("cannot run %s at stage %q: requires %q",
		e.Operation.Label(), e.Stage.Label(), e.Required.Label())
}

// Is matches ErrInvalidStage.
func (e *InvalidStageError) Is(target error) bool {
	return target == ErrInvalidStage
}

// BackendLogicError is returned when the backend answered but did not succeed: either
// a non-200 status or a 200 with success=false.
type BackendLogicError struct {
	Operation  Operation
	Message    string
	StatusCode int
}

func (e *BackendLogicError) Error() string {
	return e.Message
}

// Is matches ErrBackendLogic.
func (e *BackendLogicError) Is(target error) bool {
	return target == ErrBackendLogic
}

func statusError(op Operation, status int, backendMessage string) *BackendLogicError {
	msg := fmt.Sprintf("Server error during %s: Status Code %d", op.Label(), status)
	if backendMessage != "" {
		msg = fmt.Sprintf("%s (%s)", msg, backendMessage)
	}
	return &BackendLogicError{
		Operation:  op,
		StatusCode: status,
		Message:    msg,
	}
}

func failureError(op Operation, status int, backendMessage string) *BackendLogicError {
	if backendMessage == "" {
		backendMessage = "Unknown error"
	}
	return &BackendLogicError{
		Operation:  op,
		StatusCode: status,
		Message:    fmt.Sprintf("Error during %s: %s", op.Label(), backendMessage),
	}
}
