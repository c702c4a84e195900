package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Veraticus/recon/internal/common"
	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/model"
	"github.com/Veraticus/recon/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer implements the ReportWriter interface for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// tab is one worksheet of the report.
type tab struct {
	title  string
	values [][]any
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(srv, config, logger), nil
}

func newWriter(srv *sheets.Service, config Config, logger *slog.Logger) *Writer {
	return &Writer{
		config:  config,
		service: srv,
		logger:  common.LoggerOrDefault(logger),
	}
}

// Write publishes the summary, matched rows and both unmatched sets, one tab each.
// Existing tab contents are replaced.
func (w *Writer) Write(ctx context.Context, result *model.MatchingResult, matched []model.Row) error {
	if result == nil {
		return errors.New("matching result is required")
	}

	tabs := buildTabs(result, matched)
	w.logger.Info("starting sheets export",
		"matches", len(matched),
		"unmatched_bank", len(result.UnmatchedA),
		"unmatched_invoices", len(result.UnmatchedB))

	spreadsheetID, sheetIDs, err := w.prepareSpreadsheet(ctx, tabs)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	for _, t := range tabs {
		if err := w.clearSheet(ctx, spreadsheetID, t.title); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t.title, err)
		}
		if len(t.values) == 0 {
			continue
		}

		err := common.WithRetry(ctx, func() error {
			return w.writeData(ctx, spreadsheetID, t)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", t.title, err)
		}
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, tabs, sheetIDs)
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("sheets export completed", "spreadsheet_id", spreadsheetID)
	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

func buildTabs(result *model.MatchingResult, matched []model.Row) []tab {
	return []tab{
		{title: export.SheetSummary, values: summaryValues(result)},
		{title: export.SheetMatched, values: rowValues(matched)},
		{title: export.SheetUnmatchedBank, values: rowValues(result.UnmatchedA)},
		{title: export.SheetUnmatchedInvoices, values: rowValues(result.UnmatchedB)},
	}
}

func summaryValues(result *model.MatchingResult) [][]any {
	values := [][]any{
		{"Reconciliation Summary", time.Now().UTC().Format("Jan 2, 2006 15:04 MST")},
		{},
		{"Matched pairs", result.Summary.MatchedPairs},
		{"Unmatched bank transactions", result.Summary.UnmatchedBank},
		{"Unmatched invoices", result.Summary.UnmatchedInvoices},
	}
	if result.Message != "" {
		values = append(values, []any{}, []any{"Message", result.Message})
	}
	return values
}

// rowValues renders rows under a header built from the union of their keys.
func rowValues(rows []model.Row) [][]any {
	header := export.Header(rows)
	if len(header) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows)+1)
	headerRow := make([]any, len(header))
	for i, key := range header {
		headerRow[i] = key
	}
	values = append(values, headerRow)

	for _, row := range rows {
		line := make([]any, len(header))
		for i, key := range header {
			v, _ := row.Get(key)
			line[i] = cellValue(v)
		}
		values = append(values, line)
	}
	return values
}

// prepareSpreadsheet returns the target spreadsheet and the sheet id of every tab,
// creating the spreadsheet or missing tabs as needed.
func (w *Writer) prepareSpreadsheet(ctx context.Context, tabs []tab) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		return w.createSpreadsheet(ctx, tabs)
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	sheetIDs := make(map[string]int64)
	for _, s := range existing.Sheets {
		if s.Properties != nil {
			sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}

	var requests []*sheets.Request
	for _, t := range tabs {
		if _, ok := sheetIDs[t.title]; ok {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: t.title},
			},
		})
	}
	if len(requests) == 0 {
		return w.config.SpreadsheetID, sheetIDs, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add sheets: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			sheetIDs[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}

	return w.config.SpreadsheetID, sheetIDs, nil
}

func (w *Writer) createSpreadsheet(ctx context.Context, tabs []tab) (string, map[string]int64, error) {
	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	}
	for _, t := range tabs {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{Title: t.title},
		})
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	sheetIDs := make(map[string]int64)
	for _, s := range created.Sheets {
		if s.Properties != nil {
			sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, sheetIDs, nil
}

// clearSheet clears all data from one tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID, title string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, quoteTitle(title), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes one tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, t tab) error {
	for i := 0; i < len(t.values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(t.values))
		batch := t.values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", quoteTitle(t.title), i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return classifyAPIError(fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err))
		}

		w.logger.Debug("wrote batch", "sheet", t.title, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds and freezes the first row of every tab and sizes columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, tabs []tab, sheetIDs map[string]int64) error {
	var requests []*sheets.Request
	for _, t := range tabs {
		sheetID, ok := sheetIDs[t.title]
		if !ok || len(t.values) == 0 {
			continue
		}

		width := int64(0)
		for _, row := range t.values {
			width = max(width, int64(len(row)))
		}

		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       sheetID,
						StartRowIndex: 0,
						EndRowIndex:   1,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheetID,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   width,
					},
				},
			},
		)
	}
	if len(requests) == 0 {
		return nil
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// cellValue keeps scalars typed so numbers stay numeric; anything else is rendered as text.
func cellValue(v any) any {
	switch v.(type) {
	case json.Number, string, float64, int, int64, bool:
		return v
	default:
		return export.FormatValue(v)
	}
}

// classifyAPIError tells WithRetry how to treat a Sheets API failure: rate limits
// wait the longest delay, other client errors are final.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	default:
		return err
	}
}

func quoteTitle(title string) string {
	return "'" + title + "'"
}
