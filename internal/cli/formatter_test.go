package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRows(t *testing.T, raw string) []model.Row {
	t.Helper()
	var rows []model.Row
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	return rows
}

func TestFormatFileLoaded(t *testing.T) {
	f := model.NewFileCandidate("bank.csv", bytes.Repeat([]byte("x"), 12345))
	out := FormatFileLoaded("Bank statement", f)
	assert.Contains(t, out, "Bank statement loaded: ")
	assert.Contains(t, out, "bank.csv")
	assert.Contains(t, out, "(12,345 bytes)")
}

func TestFormatHealth(t *testing.T) {
	healthy, unhealthy := true, false

	tests := []struct {
		name     string
		session  model.Session
		expected []string
	}{
		{name: "unknown", session: model.NewSession(), expected: []string{"Backend status unknown"}},
		{
			name:     "healthy",
			session:  model.Session{BackendHealthy: &healthy, HealthMessage: "Connected (HTTP 200)"},
			expected: []string{"Backend connected: Connected (HTTP 200)"},
		},
		{
			name:     "unhealthy",
			session:  model.Session{BackendHealthy: &unhealthy, HealthMessage: "HTTP 503: down"},
			expected: []string{"Backend connection failed: HTTP 503: down", "may be sleeping"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatHealth(tt.session)
			for _, want := range tt.expected {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFormatUploadSummary(t *testing.T) {
	result := &model.UploadResult{
		SessionID:  "s",
		BankSample: mustRows(t, `[{"date": "2024-01-01", "amount": 10}, {"date": "2024-01-02", "amount": 12.5}]`),
		PreprocessingInfo: model.PreprocessingInfo{
			BankOriginalRows:     10,
			BankProcessedRows:    8,
			BankSensitiveColumns: []string{"account_number", "iban"},
			InvoiceOriginalRows:  4,
			InvoiceProcessedRows: 4,
		},
	}

	out := FormatUploadSummary(result)
	assert.Contains(t, out, "Preprocessing Summary")
	assert.Contains(t, out, "Original rows: 10")
	assert.Contains(t, out, "Rows removed: 2")
	assert.Contains(t, out, "Sensitive columns detected: 2")
	assert.Contains(t, out, "Encrypted columns: account_number, iban")
	assert.Contains(t, out, "2024-01-02")
	assert.Contains(t, out, "Rows removed: 0")
	assert.Contains(t, out, "No invoice data after preprocessing.")
	assert.Empty(t, FormatUploadSummary(nil))
}

func TestFormatColumnInfo(t *testing.T) {
	out := FormatColumnInfo(&model.ColumnInfo{
		MatchingStrategy:     "Match on amount, then date",
		BankKeyColumns:       []string{"amount", "date"},
		InvoiceKeyColumns:    []string{"total"},
		PrimaryMatchFields:   model.PrimaryMatchFields{Bank: "amount", Invoice: "total"},
		SecondaryMatchFields: model.SecondaryMatchFields{Bank: []string{"date"}},
	})

	assert.Contains(t, out, "Bank Statement Key Columns")
	assert.Contains(t, out, "• date")
	assert.Contains(t, out, "Primary match field: total")
	assert.Contains(t, out, "Secondary match fields: date")
	assert.Contains(t, out, "Match on amount, then date")
}

func TestFormatMatchSummary(t *testing.T) {
	out := FormatMatchSummary(&model.MatchingResult{
		Message: "Reconciliation complete",
		Summary: model.MatchSummary{MatchedPairs: 6, UnmatchedBank: 4, UnmatchedInvoices: 2},
	})
	assert.Contains(t, out, "Matches found: 6")
	assert.Contains(t, out, "Unmatched bank transactions: 4")
	assert.Contains(t, out, "Unmatched invoices: 2")
	assert.Contains(t, out, "Reconciliation complete")
}

func TestFormatProgress(t *testing.T) {
	session := model.Session{
		Stage:     model.StageColumnsIdentified,
		SessionID: "0123456789abcdefghijklmnop",
	}

	out := FormatProgress(session, "https://backend.example", 300*time.Second)
	lines := strings.Split(out, "\n")

	var checklist []string
	for _, line := range lines {
		if strings.Contains(line, CheckIcon) || strings.Contains(line, PendingIcon) {
			checklist = append(checklist, line)
		}
	}
	require.Len(t, checklist, 3)
	assert.Contains(t, checklist[0], CheckIcon)
	assert.Contains(t, checklist[1], CheckIcon)
	assert.Contains(t, checklist[2], PendingIcon)

	assert.Contains(t, out, "Session ID: 0123456789abcdefghij...")
	assert.Contains(t, out, "Backend URL: https://backend.example")
	assert.Contains(t, out, "Request Timeout: 300s")

	idle := FormatProgress(model.NewSession(), "u", time.Second)
	assert.NotContains(t, idle, "Session ID")
}

func TestTruncateSessionID(t *testing.T) {
	assert.Equal(t, "short", TruncateSessionID("short"))
	assert.Equal(t, "exactly-twenty-chars", TruncateSessionID("exactly-twenty-chars"))
	assert.Equal(t, "exactly-twenty-chars...", TruncateSessionID("exactly-twenty-chars!"))
}

func TestFormatTable(t *testing.T) {
	rows := mustRows(t, `[
		{"id": 1, "memo": "rent"},
		{"id": 2, "memo": "a very long memo that will certainly be clipped", "extra": true},
		{"id": 3}
	]`)

	out := FormatTable(rows, 2, "")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id"))
	assert.Contains(t, lines[0], "extra")
	assert.Contains(t, lines[2], "…")
	assert.NotContains(t, out, "certainly")

	assert.Empty(t, FormatTable(nil, 5, ""))
}

func TestFormatExportFiles(t *testing.T) {
	out := FormatExportFiles(export.Files{Matched: "/tmp/m.csv", Report: "/tmp/r.json"})
	assert.Contains(t, out, "Matched transactions: /tmp/m.csv")
	assert.Contains(t, out, "Full report: /tmp/r.json")
	assert.NotContains(t, out, "Workbook")

	out = FormatExportFiles(export.Files{Report: "/tmp/r.json", Workbook: "/tmp/w.xlsx"})
	assert.Contains(t, out, "No matches to download")
	assert.Contains(t, out, "Workbook: /tmp/w.xlsx")
}

func TestFormatReportList(t *testing.T) {
	assert.Contains(t, FormatReportList(nil), "No archived reports")

	out := FormatReportList([]model.ArchivedReport{{
		ID:           "7f0c7d8e-0000-4000-8000-000000000000",
		CreatedAt:    time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		BankFile:     "bank.csv",
		InvoiceFile:  "inv.xlsx",
		MatchedPairs: 12,
	}})
	assert.Contains(t, out, "7f0c7d8e-0000-4000-8000-000000000000")
	assert.Contains(t, out, "bank.csv inv.xlsx")
	assert.Contains(t, out, "12")
}

func TestGroupDigits(t *testing.T) {
	tests := map[uint64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		12345:      "12,345",
		1234567890: "1,234,567,890",
	}
	for in, want := range tests {
		assert.Equal(t, want, groupDigits(in))
	}
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	var out syncBuffer
	spinner := StartSpinner(&out, "Working")
	time.Sleep(150 * time.Millisecond)
	spinner.Stop()
	spinner.Stop()
}
