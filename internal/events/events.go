package events

import (
	"time"

	"github.com/mfenderov/filingflow/pkg/models"
)

// FilingProcessedEvent is sent when a filing has been written to the
// canonical tree.
type FilingProcessedEvent struct {
	Root      string                // canonical tree root
	Document  models.FilingDocument // terminal document record
	Timestamp time.Time             // when the filing was processed
}

// PublishCompleteEvent summarizes one round of indexing and mirroring.
type PublishCompleteEvent struct {
	Published int           // Events consumed
	Indexed   int           // Filings indexed to Elasticsearch
	Mirrored  int           // Filings uploaded to object storage
	Duration  time.Duration // How long publishing took
	Errors    []string      // Any errors encountered (non-fatal)
}
