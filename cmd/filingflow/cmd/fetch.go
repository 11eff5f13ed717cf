package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/internal/pipeline"
)

var (
	fetchTicker        string
	fetchReportType    string
	fetchAfter         string
	fetchBefore        string
	fetchIncludeAmends bool
	fetchLimit         int
	fetchFormat        string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and normalize filings",
	Long: `Download filings for a ticker and date range and store them under the
canonical layout. Nothing is downloaded when a filing in the range is already
stored.

Examples:
  # Apple's 2020 annual report (the defaults)
  filingflow fetch

  # Microsoft quarterly reports for the first half of 2022
  filingflow fetch --ticker MSFT --report-type 10-Q --after 2022-01-01 --before 2022-06-30 --limit 2

  # JSON output for scripting
  filingflow fetch --ticker NVDA --format json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchTicker, "ticker", pipeline.DefaultTicker, "Company ticker")
	fetchCmd.Flags().StringVar(&fetchReportType, "report-type", pipeline.DefaultReportType, "Form type, e.g. 10-K or 10-Q")
	fetchCmd.Flags().StringVar(&fetchAfter, "after", pipeline.DefaultAfter, "Inclusive start date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchBefore, "before", pipeline.DefaultBefore, "Inclusive end date (YYYY-MM-DD)")
	fetchCmd.Flags().BoolVar(&fetchIncludeAmends, "include-amends", true, "Also download amended forms (default from provider.include_amends)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "Maximum number of filings to download (default from provider.limit)")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "text", "Output format: text or json")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	a, err := newApp(ctx, &cfg, nil)
	if err != nil {
		return err
	}
	defer a.close()

	req := pipeline.Request{
		Ticker:        fetchTicker,
		ReportType:    fetchReportType,
		After:         fetchAfter,
		Before:        fetchBefore,
		IncludeAmends: cfg.Provider.IncludeAmends,
		Limit:         cfg.Provider.Limit,
	}
	if cmd.Flags().Changed("include-amends") {
		req.IncludeAmends = fetchIncludeAmends
	}
	if cmd.Flags().Changed("limit") {
		req.Limit = fetchLimit
	}

	res := a.pipeline.Run(ctx, req)

	if fetchFormat == "json" {
		output, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
	} else {
		printResult(res)
	}

	if res.Status == pipeline.StatusError {
		return fmt.Errorf("fetch failed: %s", res.Message)
	}
	return nil
}

func printResult(res pipeline.Result) {
	switch res.Status {
	case pipeline.StatusExists:
		fmt.Printf("Already stored: %s\n", res.Path)
	case pipeline.StatusSuccess:
		fmt.Printf("Processed %d filing(s):\n", len(res.Paths))
		for _, p := range res.Paths {
			fmt.Printf("  %s\n", p)
		}
	default:
		fmt.Printf("Error: %s\n", res.Message)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
}
