package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opscart/capacity-forecaster/pkg/config"
	"github.com/opscart/capacity-forecaster/pkg/logger"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	// Global flags
	configPath string
	preset     string
	source     string
	promURL    string
	logLevel   string
	interval   time.Duration
	seed       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forecaster",
		Short: "Infrastructure capacity collector and forecaster",
		Long: `Collects CPU, RAM and storage utilization from Kubernetes, Prometheus or the
local host, keeps a bounded history and forecasts it with a trend line or a
diurnal model. Synthetic readings stand in whenever the source is unreachable.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default: ./configs/config.yaml or ./config.yaml)")
	flags.StringVar(&preset, "preset", "", "Preset: demo, dev, production")
	flags.StringVarP(&source, "source", "s", "", "Metric source: kubernetes, prometheus, host, offline")
	flags.StringVar(&promURL, "prometheus-url", "", "Prometheus URL (source=prometheus)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.DurationVar(&interval, "interval", 0, "Collection interval, e.g. 30s or 5m")
	flags.BoolVar(&seed, "seed-history", false, "Prefill a week of synthetic history on start")

	rootCmd.AddCommand(newServeCmd(), newCollectCmd(), newForecastCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers the preset and any explicitly set flags over the file
// and environment configuration, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyPreset(preset); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = source
	}
	if flags.Changed("prometheus-url") {
		cfg.PrometheusURL = promURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("interval") {
		cfg.CollectionInterval = interval
	}
	if flags.Changed("seed-history") {
		cfg.SeedHistory = seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfigAndLogger is the common prelude of every command
func loadConfigAndLogger(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
