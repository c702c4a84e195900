package model

import (
	"bytes"
	"encoding/json"
)

// PreprocessingInfo summarizes what the backend did to each uploaded file.
type PreprocessingInfo struct {
	BankSensitiveColumns    []string `json:"bank_sensitive_columns"`
	InvoiceSensitiveColumns []string `json:"invoice_sensitive_columns"`
	BankOriginalRows        int      `json:"bank_original_rows"`
	BankProcessedRows       int      `json:"bank_processed_rows"`
	InvoiceOriginalRows     int      `json:"invoice_original_rows"`
	InvoiceProcessedRows    int      `json:"invoice_processed_rows"`
}

// UnmarshalJSON reads the info leniently: counts written as integral floats or numeric
// strings are accepted, and values of the wrong type are left zero.
func (p *PreprocessingInfo) UnmarshalJSON(data []byte) error {
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	*p = PreprocessingInfo{
		BankSensitiveColumns:    row.Strings("bank_sensitive_columns"),
		InvoiceSensitiveColumns: row.Strings("invoice_sensitive_columns"),
		BankOriginalRows:        row.Int("bank_original_rows"),
		BankProcessedRows:       row.Int("bank_processed_rows"),
		InvoiceOriginalRows:     row.Int("invoice_original_rows"),
		InvoiceProcessedRows:    row.Int("invoice_processed_rows"),
	}
	return nil
}

// BankRowsRemoved returns how many bank rows preprocessing dropped.
func (p PreprocessingInfo) BankRowsRemoved() int {
	return p.BankOriginalRows - p.BankProcessedRows
}

// InvoiceRowsRemoved returns how many invoice rows preprocessing dropped.
func (p PreprocessingInfo) InvoiceRowsRemoved() int {
	return p.InvoiceOriginalRows - p.InvoiceProcessedRows
}

// UploadResult is the backend's answer to a successful upload.
type UploadResult struct {
	SessionID         string            `json:"session_id"`
	BankSample        []Row             `json:"bank_statement_sample"`
	InvoiceSample     []Row             `json:"invoices_sample"`
	PreprocessingInfo PreprocessingInfo `json:"preprocessing_info"`
}

// PrimaryMatchFields names the single strongest match column on each side.
type PrimaryMatchFields struct {
	Bank    string `json:"bank"`
	Invoice string `json:"invoice"`
}

// SecondaryMatchFields names supporting match columns on each side.
type SecondaryMatchFields struct {
	Bank    []string `json:"bank"`
	Invoice []string `json:"invoice"`
}

// ColumnInfo is the backend's column identification result. A decoded value keeps the
// backend's document and encodes back to it unchanged.
type ColumnInfo struct {
	MatchingStrategy     string               `json:"matching_strategy"`
	PrimaryMatchFields   PrimaryMatchFields   `json:"primary_match_fields"`
	BankKeyColumns       []string             `json:"bank_key_columns"`
	InvoiceKeyColumns    []string             `json:"invoice_key_columns"`
	SecondaryMatchFields SecondaryMatchFields `json:"secondary_match_fields"`
	raw                  json.RawMessage
}

// UnmarshalJSON keeps the raw document and fills the typed fields leniently.
func (c *ColumnInfo) UnmarshalJSON(data []byte) error {
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	primary := row.Object("primary_match_fields")
	secondary := row.Object("secondary_match_fields")
	*c = ColumnInfo{
		MatchingStrategy: row.Text("matching_strategy"),
		PrimaryMatchFields: PrimaryMatchFields{
			Bank:    AsString(primary["bank"]),
			Invoice: AsString(primary["invoice"]),
		},
		BankKeyColumns:    row.Strings("bank_key_columns"),
		InvoiceKeyColumns: row.Strings("invoice_key_columns"),
		SecondaryMatchFields: SecondaryMatchFields{
			Bank:    AsStrings(secondary["bank"]),
			Invoice: AsStrings(secondary["invoice"]),
		},
		raw: cloneRaw(data),
	}
	return nil
}

// MarshalJSON emits the decoded document verbatim, or the typed fields for a value
// built in code.
func (c ColumnInfo) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	type plain ColumnInfo
	return json.Marshal(plain(c))
}

// MatchRecord pairs one bank entry with one invoice entry. A decoded record encodes
// back to the backend's document unchanged.
type MatchRecord struct {
	MatchReason     string  `json:"match_reason"`
	FileAEntry      Row     `json:"file_a_entry"`
	FileBEntry      Row     `json:"file_b_entry"`
	ConfidenceScore float64 `json:"confidence_score"`
	raw             json.RawMessage
}

// UnmarshalJSON keeps the raw document. Both entries must be objects; the score and
// reason are read leniently.
func (m *MatchRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		ConfidenceScore any `json:"confidence_score"`
		MatchReason     any `json:"match_reason"`
		FileAEntry      Row `json:"file_a_entry"`
		FileBEntry      Row `json:"file_b_entry"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = MatchRecord{
		MatchReason:     AsString(wire.MatchReason),
		FileAEntry:      wire.FileAEntry,
		FileBEntry:      wire.FileBEntry,
		ConfidenceScore: AsFloat(wire.ConfidenceScore),
		raw:             cloneRaw(data),
	}
	return nil
}

// MarshalJSON emits the decoded document verbatim, or the typed fields for a value
// built in code.
func (m MatchRecord) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	type plain MatchRecord
	return json.Marshal(plain(m))
}

// Field returns a top-level value of the backend's document, falling back to the typed
// fields for a record built in code.
func (m MatchRecord) Field(key string) (any, bool) {
	if len(m.raw) > 0 {
		var row Row
		if err := json.Unmarshal(m.raw, &row); err == nil {
			return row.Get(key)
		}
	}
	switch key {
	case "confidence_score":
		return m.ConfidenceScore, true
	case "match_reason":
		return m.MatchReason, true
	default:
		return nil, false
	}
}

// MatchSummary holds the headline counts of a matching run. A decoded summary encodes
// back to the backend's document unchanged.
type MatchSummary struct {
	MatchedPairs      int `json:"matched_pairs"`
	UnmatchedBank     int `json:"unmatched_bank"`
	UnmatchedInvoices int `json:"unmatched_invoices"`
	raw               json.RawMessage
}

// UnmarshalJSON keeps the raw document and reads the counts leniently.
func (s *MatchSummary) UnmarshalJSON(data []byte) error {
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	*s = MatchSummary{
		MatchedPairs:      row.Int("matched_pairs"),
		UnmatchedBank:     row.Int("unmatched_bank"),
		UnmatchedInvoices: row.Int("unmatched_invoices"),
		raw:               cloneRaw(data),
	}
	return nil
}

// MarshalJSON emits the decoded document verbatim, or the counts for a value built in
// code.
func (s MatchSummary) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain MatchSummary
	return json.Marshal(plain(s))
}

// Counts returns the summary without its raw document, for comparisons.
func (s MatchSummary) Counts() MatchSummary {
	return MatchSummary{
		MatchedPairs:      s.MatchedPairs,
		UnmatchedBank:     s.UnmatchedBank,
		UnmatchedInvoices: s.UnmatchedInvoices,
	}
}

// MatchingResult is the backend's answer to a successful match. ColumnInfo is set
// when the match response carries its own column info.
type MatchingResult struct {
	ColumnInfo *ColumnInfo   `json:"column_info,omitempty"`
	Message    string        `json:"message"`
	Matches    []MatchRecord `json:"matches"`
	UnmatchedA []Row         `json:"unmatched_file_a_entries"`
	UnmatchedB []Row         `json:"unmatched_file_b_entries"`
	Summary    MatchSummary  `json:"summary"`
}

func cloneRaw(data []byte) json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	return append(json.RawMessage(nil), data...)
}
