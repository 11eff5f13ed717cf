// Package provider downloads raw filings into the provider tree
// DIR/TICKER/REPORT_TYPE/ACCESSION/primary-document.html.
package provider

import (
	"context"
	"time"
)

// PrimaryDocument is the file name given to a downloaded filing document.
const PrimaryDocument = "primary-document.html"

// Request selects the filings to download.
type Request struct {
	Ticker        string
	ReportType    string
	After         time.Time // inclusive
	Before        time.Time // inclusive
	Limit         int       // <= 0 means 1
	IncludeAmends bool
}

// Provider deposits filings under its directory and reports how many it
// downloaded.
type Provider interface {
	Fetch(ctx context.Context, req Request) (int, error)
}
