// Package validation checks candidate input files before anything is sent to the backend.
package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/recon/internal/model"
)

// MaxFileSize is the largest file the backend accepts.
const MaxFileSize uint64 = 50 * 1024 * 1024

// AllowedExtensions are the tabular formats the backend can parse.
var AllowedExtensions = []string{"csv", "xlsx", "xls"}

// Validation errors.
var (
	ErrMissingFile          = errors.New("file is required")
	ErrTooLarge             = errors.New("file is too large")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// Kind identifies which rule a file failed.
type Kind string

// Validation failure kinds.
const (
	KindMissingFile          Kind = "missing_file"
	KindTooLarge             Kind = "too_large"
	KindUnsupportedExtension Kind = "unsupported_extension"
)

// ValidationError describes why a file was rejected.
type ValidationError struct {
	Kind    Kind
	Role    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is match the sentinel for the failed rule.
func (e *ValidationError) Is(target error) bool {
	switch e.Kind {
	case KindMissingFile:
		return target == ErrMissingFile
	case KindTooLarge:
		return target == ErrTooLarge
	case KindUnsupportedExtension:
		return target == ErrUnsupportedExtension
	default:
		return false
	}
}

// Validate checks file against the upload rules. Rules run in order and the first
// failure is returned.
func Validate(file *model.FileCandidate, role string) error {
	if file == nil {
		return &ValidationError{
			Kind:    KindMissingFile,
			Role:    role,
			Message: fmt.Sprintf("%s file is required", role),
		}
	}

	if file.SizeBytes > MaxFileSize {
		return &ValidationError{
			Kind:    KindTooLarge,
			Role:    role,
			Message: fmt.Sprintf("%s file is too large (max 50MB)", role),
		}
	}

	if !slices.Contains(AllowedExtensions, strings.ToLower(file.Extension)) {
		return &ValidationError{
			Kind:    KindUnsupportedExtension,
			Role:    role,
			Message: fmt.Sprintf("%s must be one of: %s", role, strings.Join(AllowedExtensions, ", ")),
		}
	}

	return nil
}

// ValidatePair validates both upload inputs and reports every failure.
func ValidatePair(bank, invoices *model.FileCandidate) error {
	return errors.Join(
		Validate(bank, "Bank statement"),
		Validate(invoices, "Invoice"),
	)
}
