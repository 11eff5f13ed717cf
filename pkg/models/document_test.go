package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFilingDocument_JSONFieldNames(t *testing.T) {
	doc := FilingDocument{
		Ticker:        "AAPL",
		ReportType:    "10-Q",
		RawPath:       "/raw/AAPL_10-Q.html",
		FilingDate:    "March 31, 2023",
		FiscalQuarter: "q1",
		CanonicalPath: "/out/AAPL/10-Q/2023/q1/AAPL_10-Q_q1_2023.html",
		Status:        StatusProcessed,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	jsonStr := string(data)
	expectedFields := []string{`"ticker"`, `"report_type"`, `"raw_path"`, `"filing_date"`, `"fiscal_quarter"`, `"canonical_path"`, `"status":"processed"`}
	for _, field := range expectedFields {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("JSON should contain %s, got: %s", field, jsonStr)
		}
	}
}

func TestFilingDocument_OmitsEmptyMetadata(t *testing.T) {
	data, err := json.Marshal(FilingDocument{Ticker: "AAPL", Status: StatusPending})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "fiscal_quarter") {
		t.Errorf("fiscal_quarter should be omitted when empty: %s", data)
	}
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessed, true},
		{StatusSkippedDuplicate, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateDocumentID(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"annual", "AAPL/10-K/2020/2020-10-30/AAPL_10-K_2020-10-30.html"},
		{"quarterly", "AAPL/10-Q/2023/q1/AAPL_10-Q_q1_2023.html"},
		{"unknown bucket", "MSFT/10-K/Unknown_Year/Unknown_Date/MSFT_10-K_Unknown_Date.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := GenerateDocumentID(tt.path)
			if id == "" {
				t.Error("ID should not be empty")
			}
			if id2 := GenerateDocumentID(tt.path); id != id2 {
				t.Errorf("ID should be deterministic: got %q and %q", id, id2)
			}
			if len(id) != 16 {
				t.Errorf("ID length should be 16, got %d", len(id))
			}
		})
	}
}

func TestGenerateDocumentID_UniqueForDifferentPaths(t *testing.T) {
	id1 := GenerateDocumentID("AAPL/10-K/2020/2020-10-30/AAPL_10-K_2020-10-30.html")
	id2 := GenerateDocumentID("AAPL/10-K/2021/2021-10-29/AAPL_10-K_2021-10-29.html")

	if id1 == id2 {
		t.Errorf("Different paths should generate different IDs: %q", id1)
	}
}
