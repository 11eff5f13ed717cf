// Package layout computes canonical storage paths for normalized filings
// and checks the canonical tree for filings that already exist.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mfenderov/filingflow/internal/extract"
	"github.com/mfenderov/filingflow/internal/failure"
	"github.com/mfenderov/filingflow/internal/processor"
)

// Sentinel components used when a filing date cannot be parsed.
const (
	UnknownYear = "Unknown_Year"
	UnknownDate = "Unknown_Date"
)

const dateFormat = "2006-01-02"

var quarterLabel = regexp.MustCompile(`^q[1-4]$`)

// Canonical is the decomposed form of a canonical path:
// TICKER/REPORT_TYPE/YEAR/(QUARTER|DATE)/TICKER_REPORT_TYPE[_QUARTER]_(YEAR|DATE).html
type Canonical struct {
	Ticker     string
	ReportType string
	Year       string
	Bucket     string // quarter label or ISO date
	Quarter    string // empty unless Bucket is a quarter
}

// Dir returns the canonical directory relative to the tree root.
func (c Canonical) Dir() string {
	return filepath.Join(c.Ticker, c.ReportType, c.Year, c.Bucket)
}

// Filename returns the canonical file name.
func (c Canonical) Filename() string {
	if c.Quarter != "" {
		return fmt.Sprintf("%s_%s_%s_%s.html", c.Ticker, c.ReportType, c.Quarter, c.Year)
	}
	return fmt.Sprintf("%s_%s_%s.html", c.Ticker, c.ReportType, c.Bucket)
}

// Describe builds the Canonical for a filing. It is a pure function of its
// arguments; an unparseable filingDate yields the Unknown_Year/Unknown_Date
// bucket. The returned error only reports the parse failure.
func Describe(ticker, reportType, filingDate, quarter string) (Canonical, error) {
	c := Canonical{
		Ticker:     strings.ToUpper(strings.TrimSpace(ticker)),
		ReportType: component(reportType),
		Year:       UnknownYear,
		Bucket:     UnknownDate,
		Quarter:    strings.ToLower(strings.TrimSpace(quarter)),
	}

	t, err := extract.ParseDate(filingDate)
	if err == nil {
		c.Year = t.Format("2006")
		c.Bucket = t.Format(dateFormat)
	} else {
		err = failure.New(failure.ParseError, "parse filing date", "%q: %w", filingDate, err)
	}

	if c.Quarter != "" {
		c.Bucket = c.Quarter
	}
	return c, err
}

// CanonicalPath returns the canonical directory and file path under root.
func CanonicalPath(root, ticker, reportType, filingDate, quarter string) (dir, file string) {
	c, _ := Describe(ticker, reportType, filingDate, quarter)
	dir = filepath.Join(root, c.Dir())
	return dir, filepath.Join(dir, c.Filename())
}

// ParseCanonical decomposes a path under root back into its components.
func ParseCanonical(root, path string) (Canonical, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Canonical{}, err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 5 || !strings.HasSuffix(parts[4], ".html") {
		return Canonical{}, fmt.Errorf("not a canonical path: %s", rel)
	}

	c := Canonical{Ticker: parts[0], ReportType: parts[1], Year: parts[2], Bucket: parts[3]}
	if quarterLabel.MatchString(c.Bucket) {
		c.Quarter = c.Bucket
	}
	if c.Filename() != parts[4] {
		return Canonical{}, fmt.Errorf("file name %s does not match canonical directory %s", parts[4], c.Dir())
	}
	return c, nil
}

// component makes a report type safe to use as a single path element.
func component(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "/", "_")
}

// Allocator owns a canonical tree rooted at a directory.
type Allocator struct {
	root      string
	extractor *extract.Extractor
	processor *processor.Processor
	logger    *slog.Logger
}

// New creates an Allocator for the canonical tree at root.
func New(root string, extractor *extract.Extractor, logger *slog.Logger) *Allocator {
	if extractor == nil {
		extractor = extract.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		root:      root,
		extractor: extractor,
		processor: processor.New(),
		logger:    logger,
	}
}

// Root returns the canonical tree root.
func (a *Allocator) Root() string {
	return a.root
}

// Allocate computes the canonical location for a filing and creates its
// directory. Unparseable dates fall back to the sentinel bucket.
func (a *Allocator) Allocate(ticker, reportType, filingDate, quarter string) (dir, file string, err error) {
	c, perr := Describe(ticker, reportType, filingDate, quarter)
	if perr != nil {
		a.logger.Warn("filing date not parseable, using sentinel bucket",
			"kind", failure.ParseError, "filing_date", filingDate, "ticker", c.Ticker)
	}

	dir = filepath.Join(a.root, c.Dir())
	file = filepath.Join(dir, c.Filename())

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", failure.Filesystem("create canonical directory", dir, err)
	}
	return dir, file, nil
}

// IsDuplicate scans existing canonical files for ticker/reportType and
// returns the first one whose extracted filing date falls within
// [after, before], inclusive.
func (a *Allocator) IsDuplicate(ticker, reportType string, after, before time.Time) (string, bool, error) {
	base := filepath.Join(a.root, strings.ToUpper(strings.TrimSpace(ticker)), component(reportType))
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}

	after = day(after)
	before = day(before)

	var match string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		text := a.processor.Text(string(content))
		date, ok := a.extractor.FilingDate(text)
		if !ok {
			a.logger.Debug("no filing date in existing file", "kind", failure.ExtractionMiss, "path", path)
			return nil
		}
		t, err := extract.ParseDate(date)
		if err != nil {
			a.logger.Debug("unparseable filing date in existing file", "kind", failure.ParseError, "path", path, "filing_date", date)
			return nil
		}

		if t = day(t); !t.Before(after) && !t.After(before) {
			match = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", false, failure.Filesystem("scan canonical tree", base, err)
	}

	return match, match != "", nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
