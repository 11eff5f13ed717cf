// Package pipeline runs one fetch-and-normalize request end to end: dedup
// check, provider download, reorganization of the provider tree, and the
// archive-and-transform pass over every downloaded HTML file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mfenderov/filingflow/internal/archive"
	"github.com/mfenderov/filingflow/internal/events"
	"github.com/mfenderov/filingflow/internal/failure"
	"github.com/mfenderov/filingflow/internal/ingestion"
	"github.com/mfenderov/filingflow/internal/layout"
	"github.com/mfenderov/filingflow/internal/metrics"
	"github.com/mfenderov/filingflow/internal/provider"
	"github.com/mfenderov/filingflow/internal/reorg"
	"github.com/mfenderov/filingflow/pkg/models"
)

// DateLayout is the layout of Request.After and Request.Before.
const DateLayout = "2006-01-02"

// Request defaults.
const (
	DefaultTicker     = "AAPL"
	DefaultReportType = "10-K"
	DefaultAfter      = "2020-01-01"
	DefaultBefore     = "2021-01-01"
)

// Status is the outcome of a pipeline run.
type Status string

const (
	StatusExists  Status = "exists"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request selects the filings to fetch. Empty fields take the defaults.
type Request struct {
	Ticker        string `json:"ticker"`
	ReportType    string `json:"report_type"`
	After         string `json:"after_date"`
	Before        string `json:"before_date"`
	IncludeAmends bool   `json:"include_amends"`
	Limit         int    `json:"limit,omitempty"`
}

func (r Request) withDefaults() Request {
	if r.Ticker = strings.TrimSpace(r.Ticker); r.Ticker == "" {
		r.Ticker = DefaultTicker
	}
	if r.ReportType = strings.TrimSpace(r.ReportType); r.ReportType == "" {
		r.ReportType = DefaultReportType
	}
	if r.After == "" {
		r.After = DefaultAfter
	}
	if r.Before == "" {
		r.Before = DefaultBefore
	}
	return r
}

// Result is returned for every run. Path is the existing file for exists and
// the first processed file for success; Message is set for error.
type Result struct {
	Status    Status                  `json:"status"`
	Path      string                  `json:"path,omitempty"`
	Paths     []string                `json:"paths,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Documents []models.FilingDocument `json:"documents,omitempty"`
	Warnings  []string                `json:"warnings,omitempty"`
}

// Ledger records archive moves and terminal documents.
type Ledger interface {
	RecordArchive(ctx context.Context, rec models.ArchiveRecord) error
	RecordDocument(ctx context.Context, doc models.FilingDocument) error
}

// Config wires the pipeline's collaborators. Engine, Ledger and Metrics are
// optional.
type Config struct {
	ProviderDir string
	Provider    provider.Provider
	Allocator   *layout.Allocator
	Reorganizer *reorg.Reorganizer
	Transformer *archive.Transformer
	Engine      *ingestion.Engine
	Ledger      Ledger
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Pipeline runs fetch requests. Runs touching the same ticker must be
// serialized by the caller.
type Pipeline struct {
	config Config
	logger *slog.Logger
}

// New validates config and creates a Pipeline.
func New(config Config) (*Pipeline, error) {
	switch {
	case config.ProviderDir == "":
		return nil, errors.New("provider directory is required")
	case config.Provider == nil:
		return nil, errors.New("provider is required")
	case config.Allocator == nil:
		return nil, errors.New("allocator is required")
	case config.Transformer == nil:
		return nil, errors.New("transformer is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Reorganizer == nil {
		config.Reorganizer = reorg.New(logger)
	}
	return &Pipeline{config: config, logger: logger}, nil
}

// Run executes req. Failures are reported through Result; the runtime line
// is logged whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	start := time.Now()
	req = req.withDefaults()

	res := p.run(ctx, req)

	elapsed := time.Since(start)
	p.logger.Warn("Runtime of the fetch function", "seconds", elapsed.Seconds(), "status", res.Status)
	p.config.Metrics.ObserveRun(string(res.Status), elapsed)
	return res
}

func (p *Pipeline) run(ctx context.Context, req Request) Result {
	ticker := strings.ToUpper(req.Ticker)
	p.logger.Info("Fetching SEC filings", "ticker", ticker, "report_type", req.ReportType)

	after, err := time.Parse(DateLayout, req.After)
	if err != nil {
		return p.fail(fmt.Errorf("invalid after date %q: %w", req.After, err))
	}
	before, err := time.Parse(DateLayout, req.Before)
	if err != nil {
		return p.fail(fmt.Errorf("invalid before date %q: %w", req.Before, err))
	}
	if before.Before(after) {
		return p.fail(fmt.Errorf("before date %s precedes after date %s", req.Before, req.After))
	}

	p.logger.Info("Save directory", "path", p.config.ProviderDir)

	existing, dup, err := p.config.Allocator.IsDuplicate(ticker, req.ReportType, after, before)
	if err != nil {
		return p.fail(err)
	}
	p.logger.Info("Checking existing files", "report_type", req.ReportType, "existing", existing)
	if dup {
		p.logger.Info("filing already stored", "kind", failure.PathCollision, "path", existing)
		return Result{Status: StatusExists, Path: existing}
	}

	p.logger.Info("Downloader initialized successfully", "dir", p.config.ProviderDir)

	n, err := p.config.Provider.Fetch(ctx, provider.Request{
		Ticker:        ticker,
		ReportType:    req.ReportType,
		After:         after,
		Before:        before,
		Limit:         req.Limit,
		IncludeAmends: req.IncludeAmends,
	})
	p.config.Metrics.ProviderFetch(err)
	if err != nil {
		p.logger.Error("Downloading filings failed", "error", err)
		if failure.KindOf(err) == failure.Unknown {
			err = failure.Provider("fetch filings", err)
		}
		return p.fail(err)
	}
	p.logger.Info("Number of filings downloaded", "count", n)

	reportDir := filepath.Join(p.config.ProviderDir, ticker, req.ReportType)
	if _, err := os.Stat(reportDir); errors.Is(err, fs.ErrNotExist) {
		p.logger.Error("No report found.", "path", reportDir)
		return p.fail(fmt.Errorf("no report found for %s %s", ticker, req.ReportType))
	} else if err != nil {
		return p.fail(failure.Filesystem("stat report directory", reportDir, err))
	}
	p.logger.Info("Filing paths found", "paths", []string{reportDir})

	p.logger.Info("Processing filing path", "path", reportDir)
	if _, err := p.config.Reorganizer.RenameKnownArtifacts(p.config.ProviderDir); err != nil {
		return p.fail(err)
	}
	if err := p.config.Reorganizer.FlattenToParent(reportDir); err != nil {
		return p.fail(err)
	}

	files, err := htmlFiles(reportDir)
	if err != nil {
		return p.fail(err)
	}
	if len(files) == 0 {
		p.logger.Error("No HTML file found in the report.", "path", reportDir)
		return p.fail(fmt.Errorf("no HTML file found in %s", reportDir))
	}

	return p.transform(ctx, files, ticker, req.ReportType)
}

func (p *Pipeline) transform(ctx context.Context, files []string, ticker, reportType string) Result {
	var (
		res      Result
		skipped  []string
		publish  = p.config.Engine.Enabled()
		rootPath = p.config.Allocator.Root()
	)

	if publish {
		if err := p.config.Engine.Prepare(ctx); err != nil {
			p.logger.Warn("publishing disabled for this run", "error", err)
			res.Warnings = append(res.Warnings, err.Error())
			publish = false
		}
	}

	for _, path := range files {
		p.logger.Info("Processing final HTML file", "path", path)

		out, err := p.config.Transformer.Process(path, ticker, reportType)
		p.config.Metrics.FilingStatus(out.Status)
		res.Documents = append(res.Documents, out.Document)
		res.Warnings = append(res.Warnings, out.Warnings...)
		p.record(ctx, out, &res)
		if err != nil {
			return p.fail(err)
		}

		switch out.Status {
		case models.StatusProcessed:
			res.Paths = append(res.Paths, out.Path)
			if publish {
				p.publish(ctx, events.FilingProcessedEvent{Root: rootPath, Document: out.Document, Timestamp: time.Now()}, &res)
			}
		case models.StatusSkippedDuplicate:
			skipped = append(skipped, out.Path)
		default:
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", path, out.Reason))
		}
	}

	switch {
	case len(res.Paths) > 0:
		res.Status = StatusSuccess
		res.Path = res.Paths[0]
	case len(skipped) > 0:
		res.Status = StatusExists
		res.Path = skipped[0]
	default:
		res.Status = StatusError
		res.Message = "no filing could be processed"
	}
	return res
}

func (p *Pipeline) record(ctx context.Context, out archive.Result, res *Result) {
	if p.config.Ledger == nil {
		return
	}
	if out.Archive != nil {
		if err := p.config.Ledger.RecordArchive(ctx, *out.Archive); err != nil {
			p.logger.Warn("failed to record archive move", "path", out.Archive.ArchivedPath, "error", err)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	if out.Status.Terminal() {
		if err := p.config.Ledger.RecordDocument(ctx, out.Document); err != nil {
			p.logger.Warn("failed to record document", "path", out.Document.RawPath, "error", err)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, ev events.FilingProcessedEvent, res *Result) {
	indexed, mirrored, err := p.config.Engine.Publish(ctx, ev)
	if err != nil {
		p.logger.Warn("failed to publish filing", "path", ev.Document.CanonicalPath, "error", err)
		res.Warnings = append(res.Warnings, err.Error())
		return
	}
	p.logger.Debug("filing published", "path", ev.Document.CanonicalPath, "indexed", indexed, "mirrored", mirrored)
}

func (p *Pipeline) fail(err error) Result {
	p.logger.Error("An error occurred while fetching filings", "kind", failure.KindOf(err), "error", err)
	return Result{Status: StatusError, Message: err.Error()}
}

// htmlFiles lists the .html files under dir in walk order.
func htmlFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".html") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, failure.Filesystem("walk report directory", dir, err)
	}
	return files, nil
}
