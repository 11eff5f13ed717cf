package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/internal/reorg"
)

var reorganizeNoFlatten bool

var reorganizeCmd = &cobra.Command{
	Use:   "reorganize [provider-dir]",
	Short: "Rename and flatten the provider download tree",
	Long: `Rename known raw artifacts (primary-document.html, full-submission.txt)
after their ticker and report type, then move files up one directory and
remove directories left empty.

The directory defaults to paths.provider_dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReorganize,
}

func init() {
	rootCmd.AddCommand(reorganizeCmd)

	reorganizeCmd.Flags().BoolVar(&reorganizeNoFlatten, "no-flatten", false, "Only rename, skip flattening")
}

func runReorganize(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := cfg.Paths.ProviderDir
	if len(args) == 1 {
		dir = args[0]
	}

	r := reorg.New(slog.Default())
	renamed, err := r.RenameKnownArtifacts(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %d artifact(s)\n", len(renamed))
	for _, p := range renamed {
		fmt.Printf("  %s\n", p)
	}

	if reorganizeNoFlatten {
		return nil
	}
	if err := r.FlattenToParent(dir); err != nil {
		return err
	}
	fmt.Printf("Flattened %s\n", dir)
	return nil
}
