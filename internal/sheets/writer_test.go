package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/recon/internal/common"
	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets API the writer uses.
type fakeSheets struct {
	updates     map[string][][]any
	created     *sheets.Spreadsheet
	existing    []string
	cleared     []string
	batches     []*sheets.BatchUpdateSpreadsheetRequest
	updateCalls int
	failUpdates int
	failStatus  int
	mu          sync.Mutex
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets")
	switch {
	case r.Method == http.MethodPost && path == "":
		var req sheets.Spreadsheet
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, s := range req.Sheets {
			s.Properties.SheetId = int64(i + 1)
		}
		req.SpreadsheetId = "new-sheet"
		req.SpreadsheetUrl = "https://docs.google.com/spreadsheets/d/new-sheet"
		f.created = &req
		writeJSON(w, req)

	case r.Method == http.MethodGet:
		resp := sheets.Spreadsheet{SpreadsheetId: strings.TrimPrefix(path, "/")}
		for i, title := range f.existing {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{SheetId: int64(i + 1), Title: title},
			})
		}
		writeJSON(w, resp)

	case strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.batches = append(f.batches, &req)
		resp := sheets.BatchUpdateSpreadsheetResponse{}
		for i, request := range req.Requests {
			reply := &sheets.Response{}
			if request.AddSheet != nil {
				reply.AddSheet = &sheets.AddSheetResponse{
					Properties: &sheets.SheetProperties{SheetId: int64(100 + i), Title: request.AddSheet.Properties.Title},
				}
			}
			resp.Replies = append(resp.Replies, reply)
		}
		writeJSON(w, resp)

	case strings.HasSuffix(path, ":clear"):
		_, rng, _ := strings.Cut(strings.TrimSuffix(path, ":clear"), "/values/")
		f.cleared = append(f.cleared, rng)
		writeJSON(w, sheets.ClearValuesResponse{ClearedRange: rng})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.updateCalls++
		if f.failUpdates > 0 {
			f.failUpdates--
			status := f.failStatus
			if status == 0 {
				status = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error": {"code": %d, "message": "update failed"}}`, status)
			return
		}
		var req struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, rng, _ := strings.Cut(path, "/values/")
		f.updates[rng] = req.Values
		writeJSON(w, sheets.UpdateValuesResponse{UpdatedRange: rng, UpdatedRows: int64(len(req.Values))})

	default:
		http.Error(w, fmt.Sprintf("unexpected %s %s", r.Method, r.URL.Path), http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestWriter(t *testing.T, fake *fakeSheets, config Config) *Writer {
	t.Helper()
	if fake.updates == nil {
		fake.updates = make(map[string][][]any)
	}

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return newWriter(srv, config, nil)
}

func testConfig() Config {
	config := DefaultConfig()
	config.ServiceAccountPath = "/unused/key.json"
	config.RetryDelay = time.Millisecond
	return config
}

func mustRow(t *testing.T, raw string) model.Row {
	t.Helper()
	var row model.Row
	require.NoError(t, json.Unmarshal([]byte(raw), &row))
	return row
}

func sampleResult(t *testing.T) *model.MatchingResult {
	t.Helper()
	return &model.MatchingResult{
		Summary: model.MatchSummary{MatchedPairs: 2, UnmatchedBank: 1},
		Matches: []model.MatchRecord{
			{
				FileAEntry:      mustRow(t, `{"date": "2024-01-05", "amount": 120.50}`),
				FileBEntry:      mustRow(t, `{"invoice_no": "INV-9", "total": 120.50}`),
				ConfidenceScore: 0.97,
				MatchReason:     "exact amount",
			},
			{
				FileAEntry:      mustRow(t, `{"date": "2024-01-06", "amount": 80}`),
				FileBEntry:      mustRow(t, `{"invoice_no": "INV-10", "total": 80}`),
				ConfidenceScore: 0.8,
				MatchReason:     "amount",
			},
		},
		UnmatchedA: []model.Row{mustRow(t, `{"date": "2024-01-07", "amount": 15}`)},
	}
}

func TestWriter_WriteCreatesSpreadsheet(t *testing.T) {
	fake := &fakeSheets{}
	writer := newTestWriter(t, fake, testConfig())
	result := sampleResult(t)

	require.NoError(t, writer.Write(context.Background(), result, export.ToMatchedRows(result)))

	require.NotNil(t, fake.created)
	assert.Equal(t, DefaultSpreadsheetName, fake.created.Properties.Title)
	var titles []string
	for _, s := range fake.created.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	assert.Equal(t, []string{export.SheetSummary, export.SheetMatched, export.SheetUnmatchedBank, export.SheetUnmatchedInvoices}, titles)

	assert.Equal(t, []string{"'Summary'", "'Matched'", "'Unmatched Bank'", "'Unmatched Invoices'"}, fake.cleared)

	matched := fake.updates["'Matched'!A1"]
	require.Len(t, matched, 3)
	assert.Equal(t, []any{"Bank_date", "Bank_amount", "Invoice_invoice_no", "Invoice_total", "Confidence_Score", "Match_Reason"}, matched[0])
	assert.Equal(t, []any{"2024-01-05", 120.5, "INV-9", 120.5, 0.97, "exact amount"}, matched[1])

	summary := fake.updates["'Summary'!A1"]
	require.GreaterOrEqual(t, len(summary), 5)
	assert.Equal(t, []any{"Matched pairs", float64(2)}, summary[2])

	assert.Len(t, fake.updates["'Unmatched Bank'!A1"], 2)
	assert.NotContains(t, fake.updates, "'Unmatched Invoices'!A1")

	require.Len(t, fake.batches, 1, "formatting batch")
	assert.Len(t, fake.batches[0].Requests, 9)
}

func TestWriter_WriteAddsMissingTabs(t *testing.T) {
	fake := &fakeSheets{existing: []string{"Summary", "Sheet1"}}
	config := testConfig()
	config.SpreadsheetID = "existing-id"
	config.EnableFormatting = false
	writer := newTestWriter(t, fake, config)
	result := sampleResult(t)

	require.NoError(t, writer.Write(context.Background(), result, export.ToMatchedRows(result)))

	assert.Nil(t, fake.created)
	require.Len(t, fake.batches, 1)
	var added []string
	for _, req := range fake.batches[0].Requests {
		require.NotNil(t, req.AddSheet)
		added = append(added, req.AddSheet.Properties.Title)
	}
	assert.Equal(t, []string{export.SheetMatched, export.SheetUnmatchedBank, export.SheetUnmatchedInvoices}, added)
	assert.Contains(t, fake.updates, "'Matched'!A1")
}

func TestWriter_WriteBatchesRows(t *testing.T) {
	fake := &fakeSheets{}
	config := testConfig()
	config.BatchSize = 2
	writer := newTestWriter(t, fake, config)
	result := sampleResult(t)

	require.NoError(t, writer.Write(context.Background(), result, export.ToMatchedRows(result)))

	assert.Len(t, fake.updates["'Matched'!A1"], 2)
	require.Len(t, fake.updates["'Matched'!A3"], 1)
	assert.Equal(t, "INV-10", fake.updates["'Matched'!A3"][0][2])
}

func TestWriter_WriteRetriesTransientFailures(t *testing.T) {
	fake := &fakeSheets{failUpdates: 1}
	writer := newTestWriter(t, fake, testConfig())
	result := sampleResult(t)

	require.NoError(t, writer.Write(context.Background(), result, export.ToMatchedRows(result)))

	assert.Greater(t, fake.updateCalls, len(fake.updates))
	assert.Contains(t, fake.updates, "'Summary'!A1")
}

func TestWriter_WriteDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakeSheets{failUpdates: 1, failStatus: http.StatusBadRequest}
	writer := newTestWriter(t, fake, testConfig())
	result := sampleResult(t)

	err := writer.Write(context.Background(), result, export.ToMatchedRows(result))
	require.Error(t, err)
	assert.Equal(t, 1, fake.updateCalls)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		rateLimit bool
		final     bool
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true, false},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false, true},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, false, false},
		{"transport", errors.New("connection reset"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyAPIError(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.rateLimit, errors.Is(err, common.ErrRateLimit))

			var retryable *common.RetryableError
			isFinal := errors.As(err, &retryable) && !retryable.Retryable
			assert.Equal(t, tt.final, isFinal)
		})
	}
}

func TestWriter_WriteRequiresResult(t *testing.T) {
	writer := newTestWriter(t, &fakeSheets{}, testConfig())
	assert.Error(t, writer.Write(context.Background(), nil, nil))
}

func TestRowValues(t *testing.T) {
	rows := []model.Row{
		mustRow(t, `{"id": 1, "tags": ["a", "b"]}`),
		mustRow(t, `{"id": 2, "note": null, "extra": true}`),
	}

	values := rowValues(rows)
	require.Len(t, values, 3)
	assert.Equal(t, []any{"id", "tags", "note", "extra"}, values[0])
	assert.Equal(t, []any{json.Number("1"), `["a","b"]`, "", ""}, values[1])
	assert.Equal(t, []any{json.Number("2"), "", "", true}, values[2])

	assert.Nil(t, rowValues(nil))
}

func TestSummaryValues(t *testing.T) {
	values := summaryValues(&model.MatchingResult{
		Message: "done",
		Summary: model.MatchSummary{MatchedPairs: 4, UnmatchedBank: 1, UnmatchedInvoices: 2},
	})

	assert.Equal(t, "Reconciliation Summary", values[0][0])
	assert.Equal(t, []any{"Matched pairs", 4}, values[2])
	assert.Equal(t, []any{"Unmatched bank transactions", 1}, values[3])
	assert.Equal(t, []any{"Unmatched invoices", 2}, values[4])
	assert.Equal(t, []any{"Message", "done"}, values[len(values)-1])
}
