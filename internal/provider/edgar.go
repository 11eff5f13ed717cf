package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/mfenderov/filingflow/internal/failure"
)

// Config holds EDGAR client configuration.
type Config struct {
	BaseURL   string // serves company_tickers.json and Archives/
	DataURL   string // serves submissions/
	UserAgent string
	Delay     time.Duration
	Timeout   time.Duration
	Dir       string
}

// EDGAR downloads filings from SEC EDGAR.
type EDGAR struct {
	config Config
	logger *slog.Logger
}

// NewEDGAR creates an EDGAR provider.
func NewEDGAR(config Config, logger *slog.Logger) *EDGAR {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.sec.gov"
	}
	if config.DataURL == "" {
		config.DataURL = "https://data.sec.gov"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "filingflow admin@example.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.DataURL = strings.TrimRight(config.DataURL, "/")
	return &EDGAR{config: config, logger: logger}
}

// Dir returns the provider tree root.
func (e *EDGAR) Dir() string {
	return e.config.Dir
}

type companyTicker struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// Filing is one entry selected from a company's submissions.
type Filing struct {
	Accession       string
	Form            string
	FilingDate      time.Time
	PrimaryDocument string
}

// Fetch downloads up to req.Limit filings, newest first.
func (e *EDGAR) Fetch(ctx context.Context, req Request) (int, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" || req.ReportType == "" {
		return 0, fmt.Errorf("ticker and report type are required")
	}

	f := e.newFetcher(ctx)

	cik, err := e.lookupCIK(f, ticker)
	if err != nil {
		return 0, err
	}

	var subs submissions
	if err := f.getJSON(fmt.Sprintf("%s/submissions/CIK%010d.json", e.config.DataURL, cik), &subs); err != nil {
		return 0, fmt.Errorf("fetch submissions for %s: %w", ticker, err)
	}

	filings := selectFilings(subs, req)
	e.logger.Debug("filings selected", "ticker", ticker, "report_type", req.ReportType, "count", len(filings))

	downloaded := 0
	for _, filing := range filings {
		url := fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s",
			e.config.BaseURL, cik, strings.ReplaceAll(filing.Accession, "-", ""), filing.PrimaryDocument)

		body, err := f.get(url)
		if err != nil {
			return downloaded, fmt.Errorf("download %s: %w", filing.Accession, err)
		}

		dir := filepath.Join(e.config.Dir, ticker, req.ReportType, filing.Accession)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return downloaded, failure.Filesystem("create filing directory", dir, err)
		}
		path := filepath.Join(dir, PrimaryDocument)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return downloaded, failure.Filesystem("write filing", path, err)
		}

		e.logger.Debug("filing downloaded", "accession", filing.Accession, "form", filing.Form, "path", path, "size", len(body))
		downloaded++
	}
	return downloaded, nil
}

// selectFilings picks matching filings in listing order, which EDGAR keeps
// newest first.
func selectFilings(subs submissions, req Request) []Filing {
	recent := subs.Filings.Recent
	limit := req.Limit
	if limit <= 0 {
		limit = 1
	}

	after := day(req.After)
	before := day(req.Before)

	var out []Filing
	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.FilingDate) || i >= len(recent.PrimaryDocument) {
			break
		}

		form := recent.Form[i]
		if form != req.ReportType && !(req.IncludeAmends && form == req.ReportType+"/A") {
			continue
		}

		filed, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}
		if !req.After.IsZero() && filed.Before(after) {
			continue
		}
		if !req.Before.IsZero() && filed.After(before) {
			continue
		}

		out = append(out, Filing{
			Accession:       recent.AccessionNumber[i],
			Form:            form,
			FilingDate:      filed,
			PrimaryDocument: recent.PrimaryDocument[i],
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

func (e *EDGAR) lookupCIK(f *fetcher, ticker string) (int, error) {
	var tickers map[string]companyTicker
	if err := f.getJSON(e.config.BaseURL+"/files/company_tickers.json", &tickers); err != nil {
		return 0, fmt.Errorf("fetch ticker map: %w", err)
	}
	for _, t := range tickers {
		if strings.EqualFold(t.Ticker, ticker) {
			return t.CIK, nil
		}
	}
	return 0, fmt.Errorf("unknown ticker %q", ticker)
}

// fetcher issues sequential GETs through one collector. Requests abort
// once ctx is done.
type fetcher struct {
	ctx  context.Context
	c    *colly.Collector
	body []byte
}

func (e *EDGAR) newFetcher(ctx context.Context) *fetcher {
	f := &fetcher{ctx: ctx}

	c := colly.NewCollector(
		colly.UserAgent(e.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(0),
	)
	c.SetRequestTimeout(e.config.Timeout)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       e.config.Delay,
		Parallelism: 1,
	})
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			e.logger.Debug("fetch cancelled", "url", r.URL.String())
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		f.body = r.Body
	})

	f.c = c
	return f
}

func (f *fetcher) get(url string) ([]byte, error) {
	f.body = nil
	if err := f.c.Visit(url); err != nil {
		return nil, err
	}
	if err := f.ctx.Err(); err != nil {
		return nil, err
	}
	if f.body == nil {
		return nil, fmt.Errorf("no response from %s", url)
	}
	return f.body, nil
}

func (f *fetcher) getJSON(url string, v any) error {
	body, err := f.get(url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
