//go:build integration

package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Veraticus/recon/internal/export"
	"github.com/Veraticus/recon/internal/model"
	"github.com/stretchr/testify/require"
)

func TestWriter_Integration_OAuth2(t *testing.T) {
	clientID := os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	refreshToken := os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		t.Skip("OAuth2 credentials not available")
	}

	config := DefaultConfig()
	config.ClientID = clientID
	config.ClientSecret = clientSecret
	config.RefreshToken = refreshToken
	config.SpreadsheetName = "Test Reconciliation - Integration"

	runIntegrationWrite(t, config, generateResult(12))
}

func TestWriter_Integration_ServiceAccount(t *testing.T) {
	serviceAccountPath := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		t.Skip("Service account path not available")
	}
	if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
		t.Skipf("Service account file does not exist: %s", serviceAccountPath)
	}

	config := DefaultConfig()
	config.ServiceAccountPath = serviceAccountPath
	config.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_TEST_SPREADSHEET_ID")
	config.SpreadsheetName = "Test Reconciliation - Service Account"

	runIntegrationWrite(t, config, generateResult(12))
}

func TestWriter_Integration_LargeDataset(t *testing.T) {
	serviceAccountPath := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		t.Skip("Service account path not available")
	}

	config := DefaultConfig()
	config.ServiceAccountPath = serviceAccountPath
	config.SpreadsheetName = "Test Reconciliation - Large Dataset"

	runIntegrationWrite(t, config, generateResult(2000))
}

func runIntegrationWrite(t *testing.T, config Config, result *model.MatchingResult) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	writer, err := NewWriter(ctx, config, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	require.NoError(t, writer.Write(ctx, result, export.ToMatchedRows(result)))
}

func generateResult(count int) *model.MatchingResult {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result := &model.MatchingResult{Message: fmt.Sprintf("Matched %d transactions", count)}

	for i := range count {
		amount := json.Number(fmt.Sprintf("%d.99", 20+i%200))

		bank := model.NewRow()
		bank.Set("date", baseDate.Add(time.Duration(i)*time.Hour).Format("2006-01-02"))
		bank.Set("amount", amount)
		bank.Set("reference", fmt.Sprintf("TX-%d", i))

		invoice := model.NewRow()
		invoice.Set("invoice_no", fmt.Sprintf("INV-%d", i))
		invoice.Set("total", amount)

		if i%10 == 9 {
			result.UnmatchedA = append(result.UnmatchedA, bank)
			continue
		}
		result.Matches = append(result.Matches, model.MatchRecord{
			FileAEntry:      bank,
			FileBEntry:      invoice,
			ConfidenceScore: 0.80 + float64(i%20)/100,
			MatchReason:     "amount and date",
		})
	}

	result.Summary = model.MatchSummary{
		MatchedPairs:  len(result.Matches),
		UnmatchedBank: len(result.UnmatchedA),
	}
	return result
}
