// Package testutil provides shared fixtures for tests that need a report archive.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/storage"
)

// SetupArchive creates a migrated in-memory archive that is closed when the test ends.
func SetupArchive(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	archive, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test archive: %v", err)
	}
	t.Cleanup(func() {
		if err := archive.Close(); err != nil {
			t.Errorf("failed to close test archive: %v", err)
		}
	})

	if err := archive.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test archive: %v", err)
	}

	return archive
}

// SeedReports saves reports into archive and returns them with IDs assigned.
func SeedReports(t *testing.T, archive *storage.SQLiteStorage, reports ...*model.ArchivedReport) []*model.ArchivedReport {
	t.Helper()

	for _, r := range reports {
		if err := archive.SaveReport(context.Background(), r); err != nil {
			t.Fatalf("failed to seed report: %v", err)
		}
	}
	return reports
}

// ReportBuilder assembles archived reports for tests.
//
// Example:
//
//	report := testutil.NewReportBuilder(t).
//		WithFiles("bank.csv", "invoices.xlsx").
//		WithSummary(3, 1, 0).
//		Build()
type ReportBuilder struct {
	t      *testing.T
	report model.ArchivedReport
}

// NewReportBuilder starts from a small report with one match.
func NewReportBuilder(t *testing.T) *ReportBuilder {
	t.Helper()
	return &ReportBuilder{
		t: t,
		report: model.ArchivedReport{
			CreatedAt:        time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
			BackendSessionID: "session-test",
			BankFile:         "bank.csv",
			InvoiceFile:      "invoices.csv",
			MatchedPairs:     1,
		},
	}
}

// WithID fixes the report ID instead of letting the archive assign one.
func (b *ReportBuilder) WithID(id string) *ReportBuilder {
	b.report.ID = id
	return b
}

// WithSession sets the backend session ID.
func (b *ReportBuilder) WithSession(id string) *ReportBuilder {
	b.report.BackendSessionID = id
	return b
}

// WithFiles sets the uploaded file names.
func (b *ReportBuilder) WithFiles(bank, invoices string) *ReportBuilder {
	b.report.BankFile = bank
	b.report.InvoiceFile = invoices
	return b
}

// WithSummary sets the headline counts.
func (b *ReportBuilder) WithSummary(matched, unmatchedBank, unmatchedInvoices int) *ReportBuilder {
	b.report.MatchedPairs = matched
	b.report.UnmatchedBank = unmatchedBank
	b.report.UnmatchedInvoices = unmatchedInvoices
	return b
}

// CreatedAt sets the creation time.
func (b *ReportBuilder) CreatedAt(t time.Time) *ReportBuilder {
	b.report.CreatedAt = t
	return b
}

// Build returns the report. Unless set, the JSON document carries the summary counts.
func (b *ReportBuilder) Build() *model.ArchivedReport {
	b.t.Helper()

	report := b.report
	if report.ReportJSON == nil {
		data, err := json.Marshal(map[string]any{
			"summary": model.MatchSummary{
				MatchedPairs:      report.MatchedPairs,
				UnmatchedBank:     report.UnmatchedBank,
				UnmatchedInvoices: report.UnmatchedInvoices,
			},
			"matches":            []any{},
			"unmatched_bank":     []any{},
			"unmatched_invoices": []any{},
			"column_info":        map[string]any{},
		})
		if err != nil {
			b.t.Fatalf("failed to encode report: %v", err)
		}
		report.ReportJSON = data
	}
	return &report
}

// Many builds n reports one minute apart, oldest first, numbered in their file names.
func (b *ReportBuilder) Many(n int) []*model.ArchivedReport {
	b.t.Helper()

	reports := make([]*model.ArchivedReport, 0, n)
	start := b.report.CreatedAt
	for i := 0; i < n; i++ {
		r := b.CreatedAt(start.Add(time.Duration(i) * time.Minute)).
			WithFiles(fmt.Sprintf("bank_%d.csv", i), fmt.Sprintf("invoices_%d.csv", i)).
			Build()
		reports = append(reports, r)
	}
	b.report.CreatedAt = start
	return reports
}
