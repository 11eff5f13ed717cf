package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mfenderov/filingflow/internal/storage"
	"github.com/mfenderov/filingflow/pkg/models"
)

// RestoreResult reports the outcome of restoring the canonical tree from
// the mirror.
type RestoreResult struct {
	Restored []models.FilingDocument
	Present  int // already on disk, left untouched
	Errors   []string
}

// Restore downloads mirrored filings under prefix (relative to the filings
// root, e.g. "AAPL/10-K") into root. Files that already exist locally are
// never overwritten.
func (e *Engine) Restore(ctx context.Context, root, prefix string) (RestoreResult, error) {
	var result RestoreResult
	if e == nil || e.mirror == nil {
		return result, errors.New("no object mirror configured")
	}

	keys, err := e.mirror.ListFilings(ctx, prefix)
	if err != nil {
		return result, err
	}

	base := storage.ObjectKey("") + "/"
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rel := strings.TrimPrefix(key, base)
		if rel == key || !fs.ValidPath(rel) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: key outside filings root", key))
			continue
		}
		dst := filepath.Join(root, filepath.FromSlash(path.Clean(rel)))

		if _, err := os.Stat(dst); err == nil {
			result.Present++
			continue
		}

		doc, err := e.restoreOne(ctx, key, dst)
		if err != nil {
			e.logger.Warn("restore failed", "key", key, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		e.logger.Info("filing restored", "key", key, "path", dst)
		result.Restored = append(result.Restored, doc)
	}
	return result, nil
}

func (e *Engine) restoreOne(ctx context.Context, key, dst string) (models.FilingDocument, error) {
	content, err := e.mirror.GetFiling(ctx, key)
	if err != nil {
		return models.FilingDocument{}, err
	}

	var doc models.FilingDocument
	if rec, err := e.mirror.GetDocument(ctx, key); err == nil {
		doc = *rec
	} else {
		e.logger.Debug("no document record for mirrored filing", "key", key, "error", err)
		doc.Status = models.StatusProcessed
	}
	doc.CanonicalPath = dst

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return doc, err
	}
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return doc, err
	}
	return doc, nil
}
