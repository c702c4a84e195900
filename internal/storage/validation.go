// Package storage keeps finished reconciliation reports in a local SQLite archive.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/recon/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidLimit = errors.New("limit must be positive")
	ErrInvalidCount = errors.New("counts cannot be negative")
	ErrInvalidJSON  = errors.New("report is not valid JSON")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateReport(report *model.ArchivedReport) error {
	if report == nil {
		return fmt.Errorf("%w: report", ErrNilParameter)
	}
	if report.MatchedPairs < 0 || report.UnmatchedBank < 0 || report.UnmatchedInvoices < 0 {
		return ErrInvalidCount
	}
	if !json.Valid(report.ReportJSON) {
		return ErrInvalidJSON
	}
	return nil
}
