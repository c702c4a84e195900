// Package service defines the interfaces shared between application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/recon/internal/model"
)

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	// Sleep overrides the wall-clock wait between attempts.
	Sleep        func(ctx context.Context, d time.Duration) error
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ReportWriter publishes a completed reconciliation to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, result *model.MatchingResult, matched []model.Row) error
}

// ReportArchive stores finished reconciliation reports for later lookup.
type ReportArchive interface {
	SaveReport(ctx context.Context, report *model.ArchivedReport) error
	GetReport(ctx context.Context, id string) (*model.ArchivedReport, error)
	ListReports(ctx context.Context, limit int) ([]model.ArchivedReport, error)
	DeleteReport(ctx context.Context, id string) error
	Close() error
}
