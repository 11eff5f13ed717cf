// Package archive moves raw filings aside and writes their decorated copy to
// the canonical tree.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mfenderov/filingflow/internal/extract"
	"github.com/mfenderov/filingflow/internal/failure"
	"github.com/mfenderov/filingflow/internal/layout"
	"github.com/mfenderov/filingflow/internal/processor"
	"github.com/mfenderov/filingflow/pkg/models"
)

// DefaultDateLayout formats the fallback filing date used when no trigger
// phrase matches.
const DefaultDateLayout = "January 2, 2006"

// Result is the outcome of processing one raw filing.
type Result struct {
	Status   models.Status
	Path     string // canonical path
	Reason   string // set when skipped
	Document models.FilingDocument
	Archive  *models.ArchiveRecord // nil unless the raw file was moved
	Warnings []string              // e.g. an earlier archive entry replaced
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock overrides the clock used for the fallback filing date and
// archive timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		t.now = now
	}
}

// Transformer archives raw filings and writes canonical copies.
type Transformer struct {
	allocator  *layout.Allocator
	extractor  *extract.Extractor
	processor  *processor.Processor
	archiveDir string
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Transformer writing canonical files through allocator and
// archiving raw files under archiveDir.
func New(allocator *layout.Allocator, extractor *extract.Extractor, archiveDir string, logger *slog.Logger, opts ...Option) *Transformer {
	if extractor == nil {
		extractor = extract.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transformer{
		allocator:  allocator,
		extractor:  extractor,
		processor:  processor.New(),
		archiveDir: archiveDir,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process normalizes the raw filing at rawPath. If the canonical file already
// exists the result is skipped and rawPath is left untouched. Otherwise the
// raw file is moved into the archive directory under its own base name and
// the decorated document is written to the canonical path.
//
// Only filesystem failures are returned as errors.
func (t *Transformer) Process(rawPath, ticker, reportType string) (Result, error) {
	doc := models.FilingDocument{
		Ticker:     strings.ToUpper(ticker),
		ReportType: reportType,
		RawPath:    rawPath,
		Status:     models.StatusPending,
	}

	content, err := os.ReadFile(rawPath)
	if err != nil {
		return t.fail(doc), failure.Filesystem("read raw filing", rawPath, err)
	}

	date, quarter := t.metadata(rawPath, reportType, t.processor.Text(string(content)))
	doc.FilingDate = date
	doc.FiscalQuarter = quarter

	_, canonical, err := t.allocator.Allocate(ticker, reportType, date, quarter)
	if err != nil {
		return t.fail(doc), err
	}
	doc.CanonicalPath = canonical

	if _, err := os.Stat(canonical); err == nil {
		t.logger.Info("canonical file exists, skipping", "kind", failure.PathCollision, "path", canonical, "raw", rawPath)
		doc.Status = models.StatusSkippedDuplicate
		return Result{Status: doc.Status, Path: canonical, Reason: "canonical file exists", Document: doc}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return t.fail(doc), failure.Filesystem("stat canonical file", canonical, err)
	}

	decorated, err := Decorate(content, fmt.Sprintf("%s %s %s", doc.Ticker, reportType, date))
	if err != nil {
		t.logger.Error("decoration failed", "kind", failure.ParseError, "path", rawPath, "error", err)
		res := t.fail(doc)
		res.Reason = err.Error()
		return res, nil
	}

	record, replaced, err := t.archive(rawPath)
	if err != nil {
		return t.fail(doc), err
	}
	var warnings []string
	if replaced {
		warnings = append(warnings, fmt.Sprintf("archive entry %s replaced by %s", record.ArchivedPath, rawPath))
	}

	if err := os.WriteFile(canonical, decorated, 0o644); err != nil {
		return t.fail(doc), failure.Filesystem("write canonical file", canonical, err)
	}
	t.logger.Info("canonical file written", "path", canonical)

	doc.Status = models.StatusProcessed
	return Result{Status: doc.Status, Path: canonical, Document: doc, Archive: record, Warnings: warnings}, nil
}

// metadata extracts the filing date and, for quarterly reports, the fiscal
// quarter. Misses fall back to the current date and its quarter.
func (t *Transformer) metadata(rawPath, reportType, text string) (date, quarter string) {
	if extract.IsQuarterly(reportType) {
		if q, d, ok := t.extractor.Quarter(text); ok {
			return d, q
		}
	}

	date, ok := t.extractor.FilingDate(text)
	if !ok {
		date = t.now().Format(DefaultDateLayout)
		t.logger.Warn("no filing date found, using current date",
			"kind", failure.ExtractionMiss, "path", rawPath, "filing_date", date)
	}

	if extract.IsQuarterly(reportType) {
		if parsed, err := extract.ParseDate(date); err == nil {
			quarter = extract.QuarterOf(parsed.Month())
		} else {
			quarter = extract.QuarterOf(t.now().Month())
		}
	}
	return date, quarter
}

// archive moves rawPath into the flat archive directory. replaced reports
// whether an earlier entry with the same base name was overwritten.
func (t *Transformer) archive(rawPath string) (rec *models.ArchiveRecord, replaced bool, err error) {
	if err := os.MkdirAll(t.archiveDir, 0o755); err != nil {
		return nil, false, failure.Filesystem("create archive directory", t.archiveDir, err)
	}

	dst := filepath.Join(t.archiveDir, filepath.Base(rawPath))
	if _, err := os.Stat(dst); err == nil {
		t.logger.Warn("archive entry exists and will be replaced", "kind", failure.PathCollision, "path", dst)
		replaced = true
	}
	if err := os.Rename(rawPath, dst); err != nil {
		return nil, false, failure.Filesystem("archive raw filing", rawPath, err)
	}
	t.logger.Info("Original HTML file moved to archive", "path", dst)

	return &models.ArchiveRecord{OriginalPath: rawPath, ArchivedPath: dst, ArchivedAt: t.now()}, replaced, nil
}

func (t *Transformer) fail(doc models.FilingDocument) Result {
	doc.Status = models.StatusError
	return Result{Status: doc.Status, Path: doc.CanonicalPath, Document: doc}
}
