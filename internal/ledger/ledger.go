// Package ledger records archive moves and terminal filing documents in a
// SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mfenderov/filingflow/pkg/models"
)

// Ledger is an append-only record of pipeline outcomes.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path with WAL mode
// enabled.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS archives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	original_path TEXT NOT NULL,
	archived_path TEXT NOT NULL,
	archived_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	report_type TEXT NOT NULL,
	raw_path TEXT NOT NULL,
	filing_date TEXT,
	fiscal_quarter TEXT,
	canonical_path TEXT,
	status TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS documents_ticker_report ON documents(ticker, report_type);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// RecordArchive appends an archive move.
func (l *Ledger) RecordArchive(ctx context.Context, rec models.ArchiveRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO archives (original_path, archived_path, archived_at) VALUES (?, ?, ?)`,
		rec.OriginalPath, rec.ArchivedPath, rec.ArchivedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecordDocument appends a filing document. Only terminal documents are
// accepted.
func (l *Ledger) RecordDocument(ctx context.Context, doc models.FilingDocument) error {
	if !doc.Status.Terminal() {
		return fmt.Errorf("document %s has non-terminal status %q", doc.RawPath, doc.Status)
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO documents (ticker, report_type, raw_path, filing_date, fiscal_quarter, canonical_path, status, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Ticker, doc.ReportType, doc.RawPath, doc.FilingDate, doc.FiscalQuarter,
		doc.CanonicalPath, string(doc.Status), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Filter narrows Documents. Empty fields match everything.
type Filter struct {
	Ticker     string
	ReportType string
	Status     models.Status
	Limit      int
}

// Documents returns recorded documents, newest first.
func (l *Ledger) Documents(ctx context.Context, f Filter) ([]models.FilingDocument, error) {
	var (
		where []string
		args  []any
	)
	if f.Ticker != "" {
		where = append(where, "ticker = ?")
		args = append(args, strings.ToUpper(f.Ticker))
	}
	if f.ReportType != "" {
		where = append(where, "report_type = ?")
		args = append(args, f.ReportType)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ticker, report_type, raw_path, filing_date, fiscal_quarter, canonical_path, status FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.FilingDocument
	for rows.Next() {
		var (
			d                            models.FilingDocument
			date, quarter, canonical, st sql.NullString
		)
		if err := rows.Scan(&d.Ticker, &d.ReportType, &d.RawPath, &date, &quarter, &canonical, &st); err != nil {
			return nil, err
		}
		d.FilingDate = date.String
		d.FiscalQuarter = quarter.String
		d.CanonicalPath = canonical.String
		d.Status = models.Status(st.String)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Archives returns recorded archive moves, newest first.
func (l *Ledger) Archives(ctx context.Context, limit int) ([]models.ArchiveRecord, error) {
	query := `SELECT original_path, archived_path, archived_at FROM archives ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.ArchiveRecord
	for rows.Next() {
		var (
			r  models.ArchiveRecord
			at string
		)
		if err := rows.Scan(&r.OriginalPath, &r.ArchivedPath, &at); err != nil {
			return nil, err
		}
		if r.ArchivedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("archived_at %q: %w", at, err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
