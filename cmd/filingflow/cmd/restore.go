package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var restorePrefix string

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the canonical tree from the object mirror",
	Long: `Download mirrored filings from object storage into the canonical tree
(paths.output_dir). Filings already present on disk are left untouched.

Examples:
  filingflow restore
  filingflow restore --prefix AAPL/10-K`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restorePrefix, "prefix", "", "Restrict to a TICKER or TICKER/REPORT prefix")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if !cfg.Storage.Enabled {
		return fmt.Errorf("object mirror disabled - set storage.enabled")
	}

	engine, err := newEngine(ctx, &cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Restoring into: %s\n", cfg.Paths.OutputDir)

	result, err := engine.Restore(ctx, cfg.Paths.OutputDir, restorePrefix)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Printf("\nRestore complete:\n")
	fmt.Printf("  Restored: %d\n", len(result.Restored))
	fmt.Printf("  Already present: %d\n", result.Present)
	for _, doc := range result.Restored {
		fmt.Printf("    + %s (%s %s %s)\n", doc.CanonicalPath, doc.Ticker, doc.ReportType, doc.FilingDate)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	return nil
}
