package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/internal/dashboard"
)

var dashboardAddr string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the trace and metrics over HTTP",
	Long: `Serve the process trace, recorded filings and metrics over HTTP.

Endpoints:
  GET /trace?format=json|yaml|text|dot  step tree, rebuilt from the log on every request
  GET /filings?ticker=&report_type=&status=&limit=  ledger documents
  GET /metrics                           Prometheus metrics
  GET /healthz

Example:
  filingflow dashboard --addr :8050`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringVar(&dashboardAddr, "addr", "", "Listen address (default is dashboard.addr)")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	addr := dashboardAddr
	if addr == "" {
		addr = cfg.Dashboard.Addr
	}

	dc := dashboard.Config{Addr: addr, LogFile: cfg.Paths.LogFile}
	l, err := openLedger(ctx, &cfg)
	if err != nil {
		return err
	}
	if l != nil {
		defer l.Close()
		dc.Ledger = l
	}

	d := dashboard.New(dc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Serve()
	}()
	fmt.Fprintf(cmd.ErrOrStderr(), "Dashboard listening on %s\n", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return d.Shutdown(sctx)
	}
}
