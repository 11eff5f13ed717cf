package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/pkg/models"
)

var (
	processTicker     string
	processReportType string
)

var processCmd = &cobra.Command{
	Use:   "process <raw-file>...",
	Short: "Normalize raw filing files",
	Long: `Archive raw filing HTML files and write their decorated copies to the
canonical tree. Files whose canonical path already exists are skipped and left
in place.

Examples:
  filingflow process saved_data/sec-edgar-filings/AAPL/10-K/AAPL_10-K.html --ticker AAPL --report-type 10-K`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processTicker, "ticker", "", "Company ticker (required)")
	processCmd.Flags().StringVar(&processReportType, "report-type", "", "Form type (required)")
	processCmd.MarkFlagRequired("ticker")
	processCmd.MarkFlagRequired("report-type")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := GetConfig()

	l, err := openLedger(ctx, &cfg)
	if err != nil {
		return err
	}
	if l != nil {
		defer l.Close()
	}

	t := newTransformer(&cfg)
	for _, raw := range args {
		res, err := t.Process(raw, processTicker, processReportType)
		if l != nil {
			if res.Archive != nil {
				if err := l.RecordArchive(ctx, *res.Archive); err != nil {
					slog.Warn("failed to record archive move", "error", err)
				}
			}
			if res.Status.Terminal() {
				if err := l.RecordDocument(ctx, res.Document); err != nil {
					slog.Warn("failed to record document", "error", err)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("process %s: %w", raw, err)
		}

		switch res.Status {
		case models.StatusProcessed:
			fmt.Printf("processed  %s -> %s\n", raw, res.Path)
		case models.StatusSkippedDuplicate:
			fmt.Printf("skipped    %s (%s: %s)\n", raw, res.Reason, res.Path)
		default:
			fmt.Printf("error      %s: %s\n", raw, res.Reason)
		}
	}
	return nil
}
