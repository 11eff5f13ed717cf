// Package dashboard serves the process trace and pipeline metrics over HTTP.
// Every /trace request re-parses the whole log; clients poll on their own
// timer.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfenderov/filingflow/internal/ledger"
	"github.com/mfenderov/filingflow/internal/trace"
	"github.com/mfenderov/filingflow/pkg/models"
)

// LedgerReader reads recorded filing documents and archive moves.
type LedgerReader interface {
	Documents(ctx context.Context, f ledger.Filter) ([]models.FilingDocument, error)
	Archives(ctx context.Context, limit int) ([]models.ArchiveRecord, error)
}

var _ LedgerReader = (*ledger.Ledger)(nil)

// Config configures the dashboard server.
type Config struct {
	Addr     string
	LogFile  string
	Builder  *trace.Builder      // nil uses the default rules
	Gatherer prometheus.Gatherer // nil uses the default registry
	Ledger   LedgerReader        // optional; enables /filings and /archives
	Logger   *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	config  Config
	builder *trace.Builder
	logger  *slog.Logger
	mux     *http.ServeMux
	server  *http.Server
}

// New creates the server and registers its routes.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := config.Builder
	if builder == nil {
		builder = trace.NewBuilder(nil, logger)
	}
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	s := &Server{
		config:  config,
		builder: builder,
		logger:  logger,
		mux:     mux,
	}

	mux.HandleFunc("GET /trace", s.handleTrace)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if config.Ledger != nil {
		mux.HandleFunc("GET /filings", s.handleFilings)
		mux.HandleFunc("GET /archives", s.handleArchives)
	}

	s.server = &http.Server{
		Addr:              config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Serve() error                       { return s.server.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = trace.FormatJSON
	}

	t, err := s.builder.BuildFile(s.config.LogFile)
	if err != nil {
		s.logger.Error("trace rebuild failed", "log_file", s.config.LogFile, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := trace.Write(&buf, t, format); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", trace.ContentType(format))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleFilings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}
	f := ledger.Filter{
		Ticker:     q.Get("ticker"),
		ReportType: q.Get("report_type"),
		Status:     models.Status(q.Get("status")),
		Limit:      limit,
	}

	docs, err := s.config.Ledger.Documents(r.Context(), f)
	if err != nil {
		s.logger.Error("ledger query failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []models.FilingDocument{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(docs)
}

func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}

	recs, err := s.config.Ledger.Archives(r.Context(), limit)
	if err != nil {
		s.logger.Error("ledger query failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []models.ArchiveRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recs)
}

// parseLimit reads the limit query value, defaulting to 100. It writes a 400
// response and returns false when v is not a positive integer.
func parseLimit(w http.ResponseWriter, v string) (int, bool) {
	if v == "" {
		return 100, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
