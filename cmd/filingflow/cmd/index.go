package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Publish the canonical tree",
	Long: `Publish every filing in the canonical tree (paths.output_dir) to the
enabled sinks: the Elasticsearch index and/or the object storage mirror.

Use this command to rebuild the index or to publish filings processed while
the sinks were disabled.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	engine, err := newEngine(ctx, &cfg)
	if err != nil {
		return err
	}
	if engine == nil {
		return fmt.Errorf("no sink enabled - set elasticsearch.enabled or storage.enabled")
	}

	fmt.Printf("Publishing: %s\n", cfg.Paths.OutputDir)

	result, err := engine.IndexTree(ctx, cfg.Paths.OutputDir)
	if err != nil {
		return fmt.Errorf("publishing failed: %w", err)
	}

	fmt.Printf("\nPublishing complete:\n")
	fmt.Printf("  Filings: %d\n", result.Published)
	fmt.Printf("  Indexed: %d\n", result.Indexed)
	fmt.Printf("  Mirrored: %d\n", result.Mirrored)
	fmt.Printf("  Duration: %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	return nil
}
