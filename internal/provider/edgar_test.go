package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const tickersJSON = `{
	"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
	"1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"}
}`

const submissionsJSON = `{
	"cik": "320193",
	"name": "Apple Inc.",
	"filings": {"recent": {
		"accessionNumber": ["0000320193-21-000105", "0000320193-21-000010", "0000320193-20-000096", "0000320193-20-000050", "0000320193-19-000119"],
		"filingDate":      ["2021-10-29",           "2021-01-15",           "2020-10-30",           "2020-05-01",           "2019-10-31"],
		"form":            ["10-K",                 "10-K/A",               "10-K",                 "10-Q",                 "10-K"],
		"primaryDocument": ["aapl-20210925.htm",    "aapl-amend.htm",       "aapl-20200926.htm",    "aapl-20200328.htm",    "a10-k20199282019.htm"]
	}}
}`

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tickersJSON))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(submissionsJSON))
	})
	mux.HandleFunc("/Archives/edgar/data/320193/", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>" + filepath.Base(r.URL.Path) + "</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newEDGAR(srv *httptest.Server, dir string) *EDGAR {
	return NewEDGAR(Config{
		BaseURL:   srv.URL,
		DataURL:   srv.URL,
		UserAgent: "test-agent",
		Delay:     time.Millisecond,
		Dir:       dir,
	}, discard())
}

func TestEDGAR_Fetch(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	dir := t.TempDir()

	n, err := newEDGAR(srv, dir).Fetch(t.Context(), Request{
		Ticker:     "aapl",
		ReportType: "10-K",
		After:      date("2020-01-01"),
		Before:     date("2021-01-01"),
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("downloaded %d, want 1", n)
	}

	path := filepath.Join(dir, "AAPL", "10-K", "0000320193-20-000096", PrimaryDocument)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("filing not written: %v", err)
	}
	if string(data) != "<html><body>aapl-20200926.htm</body></html>" {
		t.Errorf("content = %q", data)
	}
	if hits.Load() != 1 {
		t.Errorf("archive hits = %d, want 1", hits.Load())
	}
}

func TestEDGAR_Fetch_UnknownTicker(t *testing.T) {
	srv := newServer(t, nil)

	_, err := newEDGAR(srv, t.TempDir()).Fetch(t.Context(), Request{Ticker: "NOPE", ReportType: "10-K"})
	if err == nil {
		t.Fatal("expected error for unknown ticker")
	}
}

func TestEDGAR_Fetch_MissingSubmissions(t *testing.T) {
	srv := newServer(t, nil)

	_, err := newEDGAR(srv, t.TempDir()).Fetch(t.Context(), Request{Ticker: "MSFT", ReportType: "10-K"})
	if err == nil {
		t.Fatal("expected error when submissions are missing")
	}
}

func TestEDGAR_Fetch_Cancelled(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newEDGAR(srv, t.TempDir()).Fetch(ctx, Request{Ticker: "AAPL", ReportType: "10-K"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if hits.Load() != 0 {
		t.Errorf("archive hits = %d, want 0", hits.Load())
	}
}

func TestSelectFilings(t *testing.T) {
	var subs submissions
	subs.Filings.Recent.AccessionNumber = []string{"a1", "a2", "a3", "a4", "a5"}
	subs.Filings.Recent.FilingDate = []string{"2021-10-29", "2021-01-15", "2020-10-30", "2020-05-01", "2019-10-31"}
	subs.Filings.Recent.Form = []string{"10-K", "10-K/A", "10-K", "10-Q", "10-K"}
	subs.Filings.Recent.PrimaryDocument = []string{"d1", "d2", "d3", "d4", "d5"}

	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{"limit defaults to one", Request{ReportType: "10-K"}, []string{"a1"}},
		{"all annual", Request{ReportType: "10-K", Limit: 10}, []string{"a1", "a3", "a5"}},
		{"with amends", Request{ReportType: "10-K", Limit: 10, IncludeAmends: true}, []string{"a1", "a2", "a3", "a5"}},
		{"date range", Request{ReportType: "10-K", Limit: 10, After: date("2020-01-01"), Before: date("2021-01-01")}, []string{"a3"}},
		{"inclusive bounds", Request{ReportType: "10-K", Limit: 10, After: date("2020-10-30"), Before: date("2021-10-29")}, []string{"a1", "a3"}},
		{"quarterly", Request{ReportType: "10-Q", Limit: 10}, []string{"a4"}},
		{"no match", Request{ReportType: "8-K"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectFilings(subs, tt.req)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d filings, want %d", len(got), len(tt.want))
			}
			for i, f := range got {
				if f.Accession != tt.want[i] {
					t.Errorf("filing %d = %s, want %s", i, f.Accession, tt.want[i])
				}
			}
		})
	}
}
