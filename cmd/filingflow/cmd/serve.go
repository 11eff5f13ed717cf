package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/internal/dashboard"
	"github.com/mfenderov/filingflow/internal/mcp"
)

var serveDashboard bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server.

The server communicates via stdio and provides these tools:
  - fetch_filings: Download and normalize filings
  - get_process_trace: Rebuild the step tree from the log file
  - search_filings, get_filing: Query the index (when elasticsearch.enabled)

With --dashboard the trace/metrics HTTP server runs alongside on
dashboard.addr and reports the metrics of the runs made through MCP.

Example:
  filingflow serve --dashboard`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDashboard, "dashboard", false, "Also serve the dashboard on dashboard.addr")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := GetConfig()

	reg := prometheus.NewRegistry()
	a, err := newApp(ctx, &cfg, reg)
	if err != nil {
		return err
	}
	defer a.close()

	mcpConfig := mcp.Config{
		Name:     cfg.MCP.Name,
		Version:  cfg.MCP.Version,
		Pipeline: a.pipeline,
		LogFile:  cfg.Paths.LogFile,
	}
	if cfg.Elasticsearch.Enabled {
		es, err := newESClient(&cfg)
		if err != nil {
			return err
		}
		mcpConfig.Searcher = es
	}

	server, err := mcp.NewServer(mcpConfig)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if serveDashboard {
		dc := dashboard.Config{
			Addr:     cfg.Dashboard.Addr,
			LogFile:  cfg.Paths.LogFile,
			Gatherer: reg,
		}
		if a.ledger != nil {
			dc.Ledger = a.ledger
		}
		d := dashboard.New(dc)
		go func() {
			if err := d.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("dashboard stopped", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			d.Shutdown(sctx)
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Dashboard listening on %s\n", cfg.Dashboard.Addr)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
