package model

import "time"

// ArchivedReport is a finished reconciliation report kept in the local archive.
type ArchivedReport struct {
	CreatedAt         time.Time
	ID                string
	BackendSessionID  string
	BankFile          string
	InvoiceFile       string
	ReportJSON        []byte
	MatchedPairs      int
	UnmatchedBank     int
	UnmatchedInvoices int
}
