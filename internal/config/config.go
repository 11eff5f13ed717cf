package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// FILINGFLOW_PATHS_DATA_DIR -> paths.data_dir.
const EnvPrefix = "FILINGFLOW"

// Config holds all application configuration.
type Config struct {
	Paths         Paths         `mapstructure:"paths"`
	Provider      Provider      `mapstructure:"provider"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Storage       Storage       `mapstructure:"storage"`
	Ledger        Ledger        `mapstructure:"ledger"`
	Dashboard     Dashboard     `mapstructure:"dashboard"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Paths locates the on-disk trees. Empty sub-paths are derived from DataDir.
type Paths struct {
	DataDir     string `mapstructure:"data_dir"`
	ProviderDir string `mapstructure:"provider_dir"`
	ArchiveDir  string `mapstructure:"archive_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	LogFile     string `mapstructure:"log_file"`
}

// Provider holds EDGAR download configuration.
type Provider struct {
	BaseURL       string        `mapstructure:"base_url"`
	DataURL       string        `mapstructure:"data_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Delay         time.Duration `mapstructure:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Limit         int           `mapstructure:"limit"`
	IncludeAmends bool          `mapstructure:"include_amends"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Storage holds S3/MinIO mirror configuration.
type Storage struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Ledger holds the SQLite ledger location.
type Ledger struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Dashboard holds the trace dashboard server configuration.
type Dashboard struct {
	Addr string `mapstructure:"addr"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Paths: Paths{
			DataDir: "saved_data",
		},
		Provider: Provider{
			BaseURL:       "https://www.sec.gov",
			DataURL:       "https://data.sec.gov",
			UserAgent:     "filingflow admin@example.com",
			Delay:         200 * time.Millisecond, // SEC asks for at most 10 requests per second
			Timeout:       30 * time.Second,
			Limit:         1,
			IncludeAmends: true,
		},
		Elasticsearch: Elasticsearch{
			Enabled:   false,
			Addresses: []string{"http://localhost:9200"},
			Index:     "filingflow-filings",
		},
		Storage: Storage{
			Enabled:         false,
			Endpoint:        "localhost:9002",
			Bucket:          "filingflow",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Dashboard: Dashboard{
			Addr: ":8050",
		},
		MCP: MCP{
			Name:    "filingflow",
			Version: "1.0.0",
		},
	}
}

// Resolve fills derived paths from DataDir.
func (c *Config) Resolve() {
	p := &c.Paths
	if p.DataDir == "" {
		p.DataDir = "."
	}
	join := func(dst *string, name string) {
		if *dst == "" {
			*dst = filepath.Join(p.DataDir, name)
		}
	}
	join(&p.ProviderDir, "sec-edgar-filings")
	join(&p.ArchiveDir, "archived_html")
	join(&p.OutputDir, "filings")
	join(&p.LogFile, "logfile.log")
	join(&c.Ledger.Path, "ledger.db")
}

// boundEnv lists the nested keys that get an explicit environment binding.
var boundEnv = []string{
	"paths.data_dir",
	"paths.provider_dir",
	"paths.archive_dir",
	"paths.output_dir",
	"paths.log_file",
	"provider.user_agent",
	"provider.delay",
	"provider.limit",
	"provider.include_amends",
	"elasticsearch.enabled",
	"elasticsearch.addresses",
	"elasticsearch.index",
	"elasticsearch.username",
	"elasticsearch.password",
	"storage.enabled",
	"storage.endpoint",
	"storage.bucket",
	"storage.access_key_id",
	"storage.secret_access_key",
	"ledger.enabled",
	"ledger.path",
	"dashboard.addr",
	"mcp.name",
	"mcp.version",
}

// Load merges Defaults, the config file and environment overrides. An empty
// file searches ./config, /etc/filingflow and the working directory for
// config.yaml; not finding one is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	cfg := Defaults()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/filingflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	// Comma-separated addresses from the environment.
	if addrs := os.Getenv(EnvPrefix + "_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}

	cfg.Resolve()
	return cfg, nil
}
