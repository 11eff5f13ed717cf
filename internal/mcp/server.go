package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mfenderov/filingflow/internal/elasticsearch"
	"github.com/mfenderov/filingflow/internal/pipeline"
	"github.com/mfenderov/filingflow/internal/trace"
	"github.com/mfenderov/filingflow/pkg/models"
)

// Fetcher runs pipeline requests.
type Fetcher interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Searcher queries the filing index.
type Searcher interface {
	Search(ctx context.Context, q elasticsearch.Query) ([]models.IndexedFiling, error)
	GetFiling(ctx context.Context, id string) (*models.IndexedFiling, error)
}

var _ Searcher = (*elasticsearch.Client)(nil)

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Pipeline Fetcher
	LogFile  string         // trace source for get_process_trace
	Builder  *trace.Builder // nil uses the default rules
	Searcher Searcher       // optional; enables search_filings and get_filing
}

// Server exposes the pipeline and its trace as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	config    Config
	builder   *trace.Builder

	// Pipeline runs are serialized.
	mu sync.Mutex
}

// NewServer creates a new MCP server with filing tools.
func NewServer(config Config) (*Server, error) {
	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	builder := config.Builder
	if builder == nil {
		builder = trace.NewBuilder(nil, nil)
	}

	s := &Server{
		mcpServer: mcpServer,
		config:    config,
		builder:   builder,
	}

	fetchTool := mcp.NewTool("fetch_filings",
		mcp.WithDescription("Download SEC filings for a ticker and date range, normalize them and store them under the canonical layout. Returns exists when a matching filing is already stored."),
		mcp.WithString("ticker",
			mcp.Description("Company ticker (default: "+pipeline.DefaultTicker+")"),
		),
		mcp.WithString("report_type",
			mcp.Description("Form type such as 10-K or 10-Q (default: "+pipeline.DefaultReportType+")"),
		),
		mcp.WithString("after_date",
			mcp.Description("Inclusive start date YYYY-MM-DD (default: "+pipeline.DefaultAfter+")"),
		),
		mcp.WithString("before_date",
			mcp.Description("Inclusive end date YYYY-MM-DD (default: "+pipeline.DefaultBefore+")"),
		),
		mcp.WithBoolean("include_amends",
			mcp.Description("Also download amended forms (default: true)"),
		),
	)
	mcpServer.AddTool(fetchTool, s.fetchHandler)

	traceTool := mcp.NewTool("get_process_trace",
		mcp.WithDescription("Rebuild the processing step tree from the pipeline log"),
		mcp.WithString("format",
			mcp.Description("Output format (default: json)"),
			mcp.Enum(trace.Formats...),
		),
	)
	mcpServer.AddTool(traceTool, s.traceHandler)

	if config.Searcher != nil {
		searchTool := mcp.NewTool("search_filings",
			mcp.WithDescription("Search indexed filings. Returns full filing content in markdown format."),
			mcp.WithString("query",
				mcp.Description("Search query string; empty matches all filings"),
			),
			mcp.WithString("ticker",
				mcp.Description("Restrict to one ticker"),
			),
			mcp.WithString("report_type",
				mcp.Description("Restrict to one form type"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results to return (default: 10)"),
			),
		)
		mcpServer.AddTool(searchTool, s.searchHandler)

		getTool := mcp.NewTool("get_filing",
			mcp.WithDescription("Get an indexed filing by ID"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Filing ID to retrieve"),
			),
		)
		mcpServer.AddTool(getTool, s.getFilingHandler)
	}

	return s, nil
}

// fetchHandler handles the fetch_filings tool call.
func (s *Server) fetchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	preq := pipeline.Request{
		Ticker:        req.GetString("ticker", ""),
		ReportType:    req.GetString("report_type", ""),
		After:         req.GetString("after_date", ""),
		Before:        req.GetString("before_date", ""),
		IncludeAmends: req.GetBool("include_amends", true),
	}

	s.mu.Lock()
	res := s.config.Pipeline.Run(ctx, preq)
	s.mu.Unlock()

	body, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	if res.Status == pipeline.StatusError {
		return mcp.NewToolResultError(string(body)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// traceHandler handles the get_process_trace tool call.
func (s *Server) traceHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", trace.FormatJSON)

	t, err := s.builder.BuildFile(s.config.LogFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build trace failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := trace.Write(&buf, t, format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// searchHandler handles the search_filings tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filings, err := s.config.Searcher.Search(ctx, elasticsearch.Query{
		Text:       req.GetString("query", ""),
		Ticker:     req.GetString("ticker", ""),
		ReportType: req.GetString("report_type", ""),
		Limit:      req.GetInt("limit", 10),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(filings)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// getFilingHandler handles the get_filing tool call.
func (s *Server) getFilingHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	filing, err := s.config.Searcher.GetFiling(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get filing failed: %v", err)), nil
	}
	if filing == nil {
		return mcp.NewToolResultError(fmt.Sprintf("filing not found: %s", id)), nil
	}

	result, err := json.Marshal(filing)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal filing: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
