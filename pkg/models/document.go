package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status is the lifecycle state of a FilingDocument.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessed        Status = "processed"
	StatusSkippedDuplicate Status = "skipped-duplicate"
	StatusError            Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusSkippedDuplicate || s == StatusError
}

// FilingDocument is a raw artifact discovered under the provider tree and
// the metadata derived from it. It reaches exactly one terminal status.
type FilingDocument struct {
	Ticker        string `json:"ticker"`
	ReportType    string `json:"report_type"`
	RawPath       string `json:"raw_path"`
	FilingDate    string `json:"filing_date,omitempty"`    // as captured from the text
	FiscalQuarter string `json:"fiscal_quarter,omitempty"` // q1..q4, quarterlies only
	CanonicalPath string `json:"canonical_path"`
	Status        Status `json:"status"`
}

// ArchiveRecord is written once per archive move.
type ArchiveRecord struct {
	OriginalPath string    `json:"original_path"`
	ArchivedPath string    `json:"archived_path"`
	ArchivedAt   time.Time `json:"archived_at"`
}

// IndexedFiling is the search-index representation of a processed filing.
type IndexedFiling struct {
	ID            string    `json:"id"`
	Ticker        string    `json:"ticker"`
	ReportType    string    `json:"report_type"`
	FilingDate    string    `json:"filing_date,omitempty"`
	FiscalQuarter string    `json:"fiscal_quarter,omitempty"`
	Path          string    `json:"path"`
	Title         string    `json:"title"`
	Content       string    `json:"content"` // markdown
	IndexedAt     time.Time `json:"indexed_at"`
}

// GenerateDocumentID creates a deterministic ID from a canonical path.
// The ID is a SHA-256 hash (first 16 chars) of the path.
func GenerateDocumentID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:])[:16]
}
