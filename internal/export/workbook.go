package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/recon/internal/model"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary           = "Summary"
	SheetMatched           = "Matched"
	SheetUnmatchedBank     = "Unmatched Bank"
	SheetUnmatchedInvoices = "Unmatched Invoices"
)

// WriteWorkbook writes an XLSX workbook with a summary sheet, the flattened matches
// and both unmatched sets.
func WriteWorkbook(w io.Writer, result *model.MatchingResult, columns *model.ColumnInfo) error {
	if result == nil {
		return ErrNotReady
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, result, columns); err != nil {
		return err
	}

	sheets := []struct {
		name string
		rows []model.Row
	}{
		{SheetMatched, ToMatchedRows(result)},
		{SheetUnmatchedBank, result.UnmatchedA},
		{SheetUnmatchedInvoices, result.UnmatchedB},
	}
	for _, sheet := range sheets {
		if err := writeRowsSheet(f, sheet.name, sheet.rows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, result *model.MatchingResult, columns *model.ColumnInfo) error {
	lines := [][]any{
		{"Metric", "Value"},
		{"Matched pairs", result.Summary.MatchedPairs},
		{"Unmatched bank transactions", result.Summary.UnmatchedBank},
		{"Unmatched invoices", result.Summary.UnmatchedInvoices},
	}
	if result.Message != "" {
		lines = append(lines, []any{"Message", result.Message})
	}
	if columns != nil {
		lines = append(lines,
			[]any{"Matching strategy", columns.MatchingStrategy},
			[]any{"Bank primary field", columns.PrimaryMatchFields.Bank},
			[]any{"Invoice primary field", columns.PrimaryMatchFields.Invoice},
			[]any{"Bank key columns", strings.Join(columns.BankKeyColumns, ", ")},
			[]any{"Invoice key columns", strings.Join(columns.InvoiceKeyColumns, ", ")},
		)
	}

	for i, line := range lines {
		if err := setRow(f, SheetSummary, i+1, line); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "B1", bold); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}
	return f.SetColWidth(SheetSummary, "A", "A", 30)
}

func writeRowsSheet(f *excelize.File, name string, rows []model.Row) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	header := Header(rows)
	if len(header) == 0 {
		return nil
	}

	line := make([]any, len(header))
	for i, key := range header {
		line[i] = key
	}
	if err := setRow(f, name, 1, line); err != nil {
		return err
	}

	for i, row := range rows {
		line := make([]any, len(header))
		for j, key := range header {
			v, _ := row.Get(key)
			line[j] = cellValue(v)
		}
		if err := setRow(f, name, i+2, line); err != nil {
			return err
		}
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header of %s: %w", name, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

// cellValue keeps numbers numeric in the sheet and renders everything else as text.
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case float64, int, int64, bool:
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return FormatValue(v)
	}
}
