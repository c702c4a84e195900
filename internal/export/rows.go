// Package export turns a completed matching run into downloadable artifacts.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Veraticus/recon/internal/model"
)

// Column names and prefixes of a flattened matched row.
const (
	BankPrefix        = "Bank_"
	InvoicePrefix     = "Invoice_"
	ConfidenceColumn  = "Confidence_Score"
	MatchReasonColumn = "Match_Reason"
)

// ToMatchedRows flattens every match into one row: bank fields, then invoice fields,
// then the confidence score and match reason. Field order follows the backend payload.
func ToMatchedRows(result *model.MatchingResult) []model.Row {
	if result == nil {
		return nil
	}

	rows := make([]model.Row, 0, len(result.Matches))
	for _, match := range result.Matches {
		row := model.NewRow()
		for _, f := range match.FileAEntry.Fields() {
			row.Set(BankPrefix+f.Key, f.Value)
		}
		for _, f := range match.FileBEntry.Fields() {
			row.Set(InvoicePrefix+f.Key, f.Value)
		}
		row.Set(ConfidenceColumn, matchField(match, "confidence_score", 0))
		row.Set(MatchReasonColumn, matchField(match, "match_reason", ""))
		rows = append(rows, row)
	}
	return rows
}

// matchField returns the backend's value for key as sent, or def when it is absent.
func matchField(match model.MatchRecord, key string, def any) any {
	if v, ok := match.Field(key); ok && v != nil {
		return v
	}
	return def
}

// Header returns the union of keys across rows in first-seen order.
func Header(rows []model.Row) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, row := range rows {
		for _, key := range row.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			header = append(header, key)
		}
	}
	return header
}

// FormatValue renders a cell value as text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
