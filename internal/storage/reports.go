package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/recon/internal/common"
	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/service"
)

var _ service.ReportArchive = (*SQLiteStorage)(nil)

const reportColumns = `id, backend_session_id, bank_file, invoice_file,
	matched_pairs, unmatched_bank, unmatched_invoices, report_json, created_at`

type scanner interface {
	Scan(dest ...any) error
}

// SaveReport stores a finished report. A missing ID or creation time is filled in.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *model.ArchivedReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReport(report); err != nil {
		return err
	}

	if report.ID == "" {
		report.ID = s.newID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.BackendSessionID, report.BankFile, report.InvoiceFile,
		report.MatchedPairs, report.UnmatchedBank, report.UnmatchedInvoices,
		string(report.ReportJSON), report.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetReport retrieves one report by ID.
func (s *SQLiteStorage) GetReport(ctx context.Context, id string) (*model.ArchivedReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// ListReports returns the most recent reports first.
func (s *SQLiteStorage) ListReports(ctx context.Context, limit int) ([]model.ArchivedReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []model.ArchivedReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}

	return reports, rows.Err()
}

// DeleteReport removes one report.
func (s *SQLiteStorage) DeleteReport(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %s: %w", id, common.ErrNotFound)
	}

	return nil
}

func scanReport(row scanner) (*model.ArchivedReport, error) {
	var (
		report     model.ArchivedReport
		reportJSON string
		createdAt  time.Time
	)

	err := row.Scan(
		&report.ID,
		&report.BackendSessionID,
		&report.BankFile,
		&report.InvoiceFile,
		&report.MatchedPairs,
		&report.UnmatchedBank,
		&report.UnmatchedInvoices,
		&reportJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	report.ReportJSON = []byte(reportJSON)
	report.CreatedAt = createdAt
	return &report, nil
}
