package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/internal/elasticsearch"
)

var (
	searchLimit      int
	searchFormat     string
	searchTicker     string
	searchReportType string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed filings",
	Long: `Search the indexed filings.

Examples:
  # Basic search
  filingflow search "risk factors"

  # Restrict to one company and form
  filingflow search "revenue" --ticker AAPL --report-type 10-K --limit 5

  # List everything indexed for a ticker, as JSON
  filingflow search --ticker MSFT --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().StringVar(&searchTicker, "ticker", "", "Restrict to one ticker")
	searchCmd.Flags().StringVar(&searchReportType, "report-type", "", "Restrict to one form type")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	esClient, err := newESClient(&cfg)
	if err != nil {
		return err
	}

	q := elasticsearch.Query{
		Ticker:     searchTicker,
		ReportType: searchReportType,
		Limit:      searchLimit,
	}
	if len(args) == 1 {
		q.Text = args[0]
	}

	filings, err := esClient.Search(ctx, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(filings) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(filings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(filings))
	for i, f := range filings {
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("Title:   %s\n", f.Title)
		fmt.Printf("Filing:  %s %s %s\n", f.Ticker, f.ReportType, strings.TrimSpace(f.FilingDate+" "+f.FiscalQuarter))
		fmt.Printf("Path:    %s\n", f.Path)
		fmt.Printf("ID:      %s\n", f.ID)

		content := f.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Printf("Content:\n%s\n\n", content)
	}
	return nil
}
