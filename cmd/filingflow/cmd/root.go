package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfenderov/filingflow/internal/config"
	"github.com/mfenderov/filingflow/internal/logging"
)

var (
	cfgFile   string
	verbose   bool
	cfg       config.Config
	logCloser io.Closer
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "filingflow",
	Short: "filingflow: SEC filing download and normalization",
	Long: `filingflow downloads SEC filings, normalizes them into a canonical
TICKER/REPORT/YEAR/(QUARTER|DATE) tree, archives the originals, and rebuilds
a step trace of every run from its own log file.

Commands:
  fetch       Download and normalize filings for a ticker
  process     Normalize one raw filing file
  reorganize  Rename and flatten the provider download tree
  trace       Print the process trace from the log file
  index       Publish the canonical tree to Elasticsearch / object storage
  search      Search indexed filings
  serve       Start the MCP server
  dashboard   Serve the trace and metrics over HTTP`,
	SilenceUsage: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	logger, closer, err := logging.Open(logging.Options{
		File:         cfg.Paths.LogFile,
		Console:      os.Stderr,
		ConsoleLevel: level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file %s unavailable, logging to stderr only: %v\n", cfg.Paths.LogFile, err)
		logger, closer, _ = logging.Open(logging.Options{Console: os.Stderr, ConsoleLevel: level})
	}
	logCloser = closer
	slog.SetDefault(logger)
}

func initConfig() {
	loaded, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		slog.Warn("config file error", "error", err)
	}
	cfg = loaded
}
