package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Display limits.
const (
	SampleRows       = 5
	SessionIDPreview = 20
	maxCellWidth     = 24
)

// FormatFileLoaded confirms a local file that passed validation.
func FormatFileLoaded(label string, f *model.FileCandidate) string {
	return FormatSuccess(fmt.Sprintf("%s loaded: %s (%s bytes)", label, BoldStyle.Render(f.Name), groupDigits(f.SizeBytes)))
}

// FormatHealth renders the cached backend health of a session.
func FormatHealth(s model.Session) string {
	switch {
	case s.BackendHealthy == nil:
		return FormatInfo("Backend status unknown")
	case *s.BackendHealthy:
		return FormatSuccess("Backend connected: " + s.HealthMessage)
	default:
		return FormatError("Backend connection failed: "+s.HealthMessage) + "\n" +
			FormatInfo("A backend on a free hosting tier may be sleeping. Try again in a few moments.")
	}
}

// FormatUploadSummary renders the preprocessing summary of an upload.
func FormatUploadSummary(result *model.UploadResult) string {
	if result == nil {
		return ""
	}
	info := result.PreprocessingInfo

	var b strings.Builder
	b.WriteString(FormatTitle(ChartIcon + " Preprocessing Summary"))
	b.WriteString("\n")
	writeFileSummary(&b, "Bank Statement (Processed)",
		info.BankOriginalRows, info.BankProcessedRows, info.BankSensitiveColumns, result.BankSample, "bank statement")
	b.WriteString("\n")
	writeFileSummary(&b, "Invoices (Processed)",
		info.InvoiceOriginalRows, info.InvoiceProcessedRows, info.InvoiceSensitiveColumns, result.InvoiceSample, "invoice")
	return b.String()
}

func writeFileSummary(b *strings.Builder, title string, original, processed int, sensitive []string, sample []model.Row, noun string) {
	b.WriteString(SubtitleStyle.Render(title) + "\n")
	fmt.Fprintf(b, "  Original rows: %d\n", original)
	fmt.Fprintf(b, "  Processed rows: %d\n", processed)
	fmt.Fprintf(b, "  Rows removed: %d\n", original-processed)
	fmt.Fprintf(b, "  Sensitive columns detected: %d\n", len(sensitive))
	if len(sensitive) > 0 {
		fmt.Fprintf(b, "  Encrypted columns: %s\n", strings.Join(sensitive, ", "))
	}

	if len(sample) == 0 {
		b.WriteString("  " + SubtleStyle.Render(fmt.Sprintf("No %s data after preprocessing.", noun)) + "\n")
		return
	}
	fmt.Fprintf(b, "  Sample processed data (first %d rows):\n", SampleRows)
	b.WriteString(FormatTable(sample, SampleRows, "    "))
}

// FormatColumnInfo renders a column identification result.
func FormatColumnInfo(info *model.ColumnInfo) string {
	if info == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(FormatTitle(SearchIcon + " Column Identification Results"))
	b.WriteString("\n")
	writeColumns(&b, "Bank Statement", info.BankKeyColumns, info.PrimaryMatchFields.Bank, info.SecondaryMatchFields.Bank)
	writeColumns(&b, "Invoices", info.InvoiceKeyColumns, info.PrimaryMatchFields.Invoice, info.SecondaryMatchFields.Invoice)
	b.WriteString(SubtitleStyle.Render("Matching Strategy") + "\n")
	b.WriteString("  " + InfoStyle.Render(info.MatchingStrategy) + "\n")
	return b.String()
}

func writeColumns(b *strings.Builder, title string, keys []string, primary string, secondary []string) {
	b.WriteString(SubtitleStyle.Render(title+" Key Columns") + "\n")
	for _, col := range keys {
		b.WriteString("  • " + col + "\n")
	}
	b.WriteString("  Primary match field: " + BoldStyle.Render(primary) + "\n")
	if len(secondary) > 0 {
		b.WriteString("  Secondary match fields: " + strings.Join(secondary, ", ") + "\n")
	}
}

// FormatMatchSummary renders the headline counts of a matching run.
func FormatMatchSummary(result *model.MatchingResult) string {
	if result == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(FormatTitle(ChartIcon + " Reconciliation Results"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Matches found: %d\n", CheckIcon, result.Summary.MatchedPairs)
	fmt.Fprintf(&b, "  %s Unmatched bank transactions: %d\n", WarningIcon, result.Summary.UnmatchedBank)
	fmt.Fprintf(&b, "  %s Unmatched invoices: %d\n", WarningIcon, result.Summary.UnmatchedInvoices)
	if result.Message != "" {
		b.WriteString("\n" + result.Message + "\n")
	}
	return b.String()
}

// FormatProgress renders the stage checklist, the session id and the connection
// settings.
func FormatProgress(s model.Session, backendURL string, timeout time.Duration) string {
	items := []struct {
		label string
		stage model.Stage
	}{
		{FolderIcon + " Files Uploaded & Preprocessed", model.StageFilesUploaded},
		{SearchIcon + " Columns Identified", model.StageColumnsIdentified},
		{RobotIcon + " AI Matching Completed", model.StageMatchingCompleted},
	}

	var b strings.Builder
	b.WriteString(SubtitleStyle.Render("Progress") + "\n")
	for _, item := range items {
		icon := PendingIcon
		if s.Stage.Reached(item.stage) {
			icon = CheckIcon
		}
		fmt.Fprintf(&b, "  %s: %s\n", item.label, icon)
	}

	if s.HasSessionID() {
		b.WriteString("\n" + SubtitleStyle.Render("Session") + "\n")
		fmt.Fprintf(&b, "  Session ID: %s\n", TruncateSessionID(s.SessionID))
	}

	b.WriteString("\n" + SubtitleStyle.Render("Configuration") + "\n")
	fmt.Fprintf(&b, "  Backend URL: %s\n", backendURL)
	fmt.Fprintf(&b, "  Request Timeout: %ds\n", int(timeout.Seconds()))
	return b.String()
}

// TruncateSessionID shortens a session id for display.
func TruncateSessionID(id string) string {
	if len([]rune(id)) <= SessionIDPreview {
		return id
	}
	return string([]rune(id)[:SessionIDPreview]) + "..."
}

// FormatTable renders up to limit rows as an aligned table under their union header.
func FormatTable(rows []model.Row, limit int, indent string) string {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	header := export.Header(rows)
	if len(header) == 0 {
		return ""
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(header))
	for i, key := range header {
		widths[i] = lipgloss.Width(clip(key))
	}
	for r, row := range rows {
		cells[r] = make([]string, len(header))
		for i, key := range header {
			v, _ := row.Get(key)
			cells[r][i] = clip(export.FormatValue(v))
			widths[i] = max(widths[i], lipgloss.Width(cells[r][i]))
		}
	}

	var b strings.Builder
	b.WriteString(indent)
	for i, key := range header {
		b.WriteString(TableHeaderStyle.Render(pad(clip(key), widths[i])))
	}
	b.WriteString("\n")
	for _, line := range cells {
		b.WriteString(indent)
		for i, cell := range line {
			b.WriteString(TableCellStyle.Render(pad(cell, widths[i])))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatExportFiles lists the artifacts an export produced.
func FormatExportFiles(files export.Files) string {
	var b strings.Builder
	if files.Matched != "" {
		b.WriteString(FormatSuccess("Matched transactions: "+files.Matched) + "\n")
	} else {
		b.WriteString(FormatInfo("No matches to download") + "\n")
	}
	if files.Report != "" {
		b.WriteString(FormatSuccess("Full report: "+files.Report) + "\n")
	}
	if files.Workbook != "" {
		b.WriteString(FormatSuccess("Workbook: "+files.Workbook) + "\n")
	}
	return b.String()
}

// FormatReportList renders archived reports, newest first.
func FormatReportList(reports []model.ArchivedReport) string {
	if len(reports) == 0 {
		return FormatInfo("No archived reports") + "\n"
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-36s  %-20s  %7s  %9s  %9s  %s",
		"ID", "CREATED", "MATCHED", "BANK", "INVOICES", "FILES")))
	b.WriteString("\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "%-36s  %-20s  %7d  %9d  %9d  %s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.MatchedPairs,
			r.UnmatchedBank,
			r.UnmatchedInvoices,
			strings.TrimSpace(r.BankFile+" "+r.InvoiceFile))
	}
	return b.String()
}

func clip(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-1]) + "…"
	}
	return s
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// groupDigits formats n with thousands separators.
func groupDigits(n uint64) string {
	digits := strconv.FormatUint(n, 10)
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
