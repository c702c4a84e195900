package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/recon/internal/model"
)

// ErrNotReady is returned when export is requested before matching has completed.
var ErrNotReady = errors.New("matching has not completed")

// Bundle is everything exportable from a completed session.
type Bundle struct {
	CreatedAt time.Time
	Result    *model.MatchingResult
	Columns   *model.ColumnInfo
	SessionID string
	Matched   []model.Row
	Report    []byte
}

// FromSession builds the export bundle. It refuses unless the session reached
// MatchingCompleted.
func FromSession(s model.Session, now time.Time) (*Bundle, error) {
	if s.Stage != model.StageMatchingCompleted || s.Matching == nil {
		return nil, fmt.Errorf("%w: session is at stage %q", ErrNotReady, s.Stage.Label())
	}

	report, err := ToFullReport(s.Matching, s.Columns)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		CreatedAt: now,
		Result:    s.Matching,
		Columns:   ColumnsFor(s.Matching, s.Columns),
		SessionID: s.SessionID,
		Matched:   ToMatchedRows(s.Matching),
		Report:    report,
	}, nil
}

// HasMatches reports whether there is anything for the matched-rows CSV.
func (b *Bundle) HasMatches() bool {
	return len(b.Matched) > 0
}

// Archive converts the bundle into an archive record. The archive assigns the ID.
func (b *Bundle) Archive(bankFile, invoiceFile string) *model.ArchivedReport {
	return &model.ArchivedReport{
		CreatedAt:         b.CreatedAt,
		BackendSessionID:  b.SessionID,
		BankFile:          bankFile,
		InvoiceFile:       invoiceFile,
		ReportJSON:        b.Report,
		MatchedPairs:      b.Result.Summary.MatchedPairs,
		UnmatchedBank:     b.Result.Summary.UnmatchedBank,
		UnmatchedInvoices: b.Result.Summary.UnmatchedInvoices,
	}
}

// MatchedFileName is the download name of the matched rows CSV.
func MatchedFileName(t time.Time) string {
	return fmt.Sprintf("matched_transactions_%d.csv", t.Unix())
}

// ReportFileName is the download name of the JSON report.
func ReportFileName(t time.Time) string {
	return fmt.Sprintf("reconciliation_report_%d.json", t.Unix())
}

// WorkbookFileName is the download name of the XLSX workbook.
func WorkbookFileName(t time.Time) string {
	return fmt.Sprintf("reconciliation_%d.xlsx", t.Unix())
}

// Files records which artifacts WriteFiles produced. An empty path means skipped.
type Files struct {
	Matched  string
	Report   string
	Workbook string
}

// WriteFiles writes the bundle into dir. The matched CSV is skipped when there are no
// matches; the workbook is written only when withWorkbook is set.
func WriteFiles(dir string, b *Bundle, withWorkbook bool) (Files, error) {
	var out Files

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return out, fmt.Errorf("failed to create export directory: %w", err)
	}

	if b.HasMatches() {
		path := filepath.Join(dir, MatchedFileName(b.CreatedAt))
		if err := writeFile(path, func(f *os.File) error { return WriteCSV(f, b.Matched) }); err != nil {
			return out, err
		}
		out.Matched = path
	}

	reportPath := filepath.Join(dir, ReportFileName(b.CreatedAt))
	if err := os.WriteFile(reportPath, b.Report, 0o600); err != nil {
		return out, fmt.Errorf("failed to write report: %w", err)
	}
	out.Report = reportPath

	if withWorkbook {
		path := filepath.Join(dir, WorkbookFileName(b.CreatedAt))
		if err := writeFile(path, func(f *os.File) error { return WriteWorkbook(f, b.Result, b.Columns) }); err != nil {
			return out, err
		}
		out.Workbook = path
	}

	return out, nil
}

func writeFile(path string, fn func(*os.File) error) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- path built from the export dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := fn(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
