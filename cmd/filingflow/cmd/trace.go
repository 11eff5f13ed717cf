package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mfenderov/filingflow/internal/trace"
)

var (
	traceLogFile string
	traceFormat  string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Print the process trace",
	Long: `Rebuild the step tree of every pipeline run from the log file.

Examples:
  # Parent -> Child lines
  filingflow trace

  # Render with Graphviz
  filingflow trace --format dot | dot -Tsvg > trace.svg`,
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().StringVar(&traceLogFile, "log", "", "Log file (default is paths.log_file)")
	traceCmd.Flags().StringVar(&traceFormat, "format", trace.FormatText, "Output format: text, json, yaml or dot")
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	logFile := traceLogFile
	if logFile == "" {
		logFile = cfg.Paths.LogFile
	}

	t, err := trace.NewBuilder(nil, nil).BuildFile(logFile)
	if err != nil {
		return err
	}
	return trace.Write(os.Stdout, t, traceFormat)
}
