package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mfenderov/filingflow/internal/elasticsearch"
	"github.com/mfenderov/filingflow/internal/events"
	"github.com/mfenderov/filingflow/internal/layout"
	"github.com/mfenderov/filingflow/internal/processor"
	"github.com/mfenderov/filingflow/internal/storage"
	"github.com/mfenderov/filingflow/pkg/models"
)

// Indexer is the subset of the Elasticsearch client the engine uses.
type Indexer interface {
	CreateIndex(ctx context.Context) error
	IndexFiling(ctx context.Context, filing models.IndexedFiling) error
	Refresh(ctx context.Context) error
}

// Mirror is the subset of the object storage client the engine uses.
type Mirror interface {
	PutFiling(ctx context.Context, key string, content []byte) error
	PutDocument(ctx context.Context, key string, doc models.FilingDocument) error
	ListFilings(ctx context.Context, prefix string) ([]string, error)
	GetFiling(ctx context.Context, key string) ([]byte, error)
	GetDocument(ctx context.Context, key string) (*models.FilingDocument, error)
}

var (
	_ Indexer = (*elasticsearch.Client)(nil)
	_ Mirror  = (*storage.Client)(nil)
)

// Engine publishes processed filings to the search index and the object
// mirror. Either sink may be nil.
type Engine struct {
	indexer   Indexer
	mirror    Mirror
	processor *processor.Processor
	logger    *slog.Logger
}

// New creates a new ingestion engine.
func New(indexer Indexer, mirror Mirror, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		indexer:   indexer,
		mirror:    mirror,
		processor: processor.New(),
		logger:    logger,
	}
}

// Enabled reports whether any sink is configured.
func (e *Engine) Enabled() bool {
	return e != nil && (e.indexer != nil || e.mirror != nil)
}

// Prepare creates the search index if an indexer is configured.
func (e *Engine) Prepare(ctx context.Context) error {
	if e.indexer == nil {
		return nil
	}
	return e.indexer.CreateIndex(ctx)
}

// Publish indexes and mirrors one processed filing. Only filings with
// status processed are published.
func (e *Engine) Publish(ctx context.Context, ev events.FilingProcessedEvent) (indexed, mirrored bool, err error) {
	doc := ev.Document
	if doc.Status != models.StatusProcessed {
		return false, false, nil
	}

	rel, err := filepath.Rel(ev.Root, doc.CanonicalPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false, false, fmt.Errorf("%s is outside canonical root %s", doc.CanonicalPath, ev.Root)
	}
	rel = filepath.ToSlash(rel)

	content, err := os.ReadFile(doc.CanonicalPath)
	if err != nil {
		return false, false, fmt.Errorf("read %s: %w", doc.CanonicalPath, err)
	}

	if e.indexer != nil {
		filing, err := e.buildFiling(rel, doc, string(content))
		if err != nil {
			return false, false, err
		}
		e.logger.Debug("indexing filing", "id", filing.ID, "path", rel)
		if err := e.indexer.IndexFiling(ctx, filing); err != nil {
			return false, false, err
		}
		indexed = true
	}

	if e.mirror != nil {
		key := storage.ObjectKey(rel)
		if err := e.mirror.PutFiling(ctx, key, content); err != nil {
			return indexed, false, err
		}
		if err := e.mirror.PutDocument(ctx, key, doc); err != nil {
			return indexed, false, err
		}
		e.logger.Debug("filing mirrored", "key", key)
		mirrored = true
	}

	return indexed, mirrored, nil
}

func (e *Engine) buildFiling(rel string, doc models.FilingDocument, content string) (models.IndexedFiling, error) {
	md, err := e.processor.Convert(content)
	if err != nil {
		return models.IndexedFiling{}, fmt.Errorf("convert %s: %w", rel, err)
	}

	title := e.processor.ExtractTitle(content)
	if title == "" {
		title = strings.TrimSpace(strings.Join([]string{doc.Ticker, doc.ReportType, doc.FilingDate}, " "))
	}

	return models.IndexedFiling{
		ID:            models.GenerateDocumentID(rel),
		Ticker:        doc.Ticker,
		ReportType:    doc.ReportType,
		FilingDate:    doc.FilingDate,
		FiscalQuarter: doc.FiscalQuarter,
		Path:          rel,
		Title:         title,
		Content:       md,
		IndexedAt:     time.Now(),
	}, nil
}

// Run consumes events until in is closed or ctx is done and reports the
// totals. Failures are collected, not returned.
func (e *Engine) Run(ctx context.Context, in <-chan events.FilingProcessedEvent) events.PublishCompleteEvent {
	start := time.Now()
	var result events.PublishCompleteEvent

	for ev := range in {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		result.Published++
		indexed, mirrored, err := e.Publish(ctx, ev)
		if indexed {
			result.Indexed++
		}
		if mirrored {
			result.Mirrored++
		}
		if err != nil {
			e.logger.Error("failed to publish filing", "path", ev.Document.CanonicalPath, "error", err)
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if e.indexer != nil {
		e.indexer.Refresh(ctx)
	}

	result.Duration = time.Since(start)
	e.logger.Info("publishing complete",
		"published", result.Published,
		"indexed", result.Indexed,
		"mirrored", result.Mirrored,
		"duration", result.Duration,
		"errors", len(result.Errors))
	return result
}

// IndexTree publishes every canonical filing found under root.
func (e *Engine) IndexTree(ctx context.Context, root string) (events.PublishCompleteEvent, error) {
	if err := e.Prepare(ctx); err != nil {
		return events.PublishCompleteEvent{}, err
	}

	in := make(chan events.FilingProcessedEvent)
	done := make(chan events.PublishCompleteEvent)
	go func() {
		done <- e.Run(ctx, in)
	}()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		c, err := layout.ParseCanonical(root, path)
		if err != nil {
			e.logger.Warn("skipping non-canonical file", "path", path, "error", err)
			return nil
		}

		doc := models.FilingDocument{
			Ticker:        c.Ticker,
			ReportType:    c.ReportType,
			FiscalQuarter: c.Quarter,
			CanonicalPath: path,
			Status:        models.StatusProcessed,
		}
		if c.Quarter == "" {
			doc.FilingDate = c.Bucket
		}

		select {
		case in <- events.FilingProcessedEvent{Root: root, Document: doc, Timestamp: time.Now()}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(in)
	result := <-done

	if walkErr != nil {
		return result, fmt.Errorf("walk %s: %w", root, walkErr)
	}
	return result, nil
}
