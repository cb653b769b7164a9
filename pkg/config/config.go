package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/opscart/capacity-forecaster/pkg/alerting"
	"github.com/opscart/capacity-forecaster/pkg/datasource"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
)

// EnvPrefix namespaces environment overrides, e.g. FORECASTER_SOURCE
const EnvPrefix = "FORECASTER"

// Config holds application configuration
type Config struct {
	// Metric source
	Source        string                       `mapstructure:"source"` // kubernetes, prometheus, host, offline
	PrometheusURL string                       `mapstructure:"prometheus_url"`
	Queries       datasource.PrometheusQueries `mapstructure:"queries"`
	Kubeconfig    string                       `mapstructure:"kubeconfig"`
	DiskPath      string                       `mapstructure:"disk_path"`
	SourceTimeout time.Duration                `mapstructure:"source_timeout"`

	// Collection and history
	CollectionInterval time.Duration `mapstructure:"collection_interval"`
	HistoryCapacity    int           `mapstructure:"history_capacity"`
	SeedHistory        bool          `mapstructure:"seed_history"` // prefill a synthetic week on start

	// Forecasting
	HistoryWindow   int    `mapstructure:"history_window"` // points fed to the engine
	ForecastHorizon int    `mapstructure:"forecast_horizon"`
	ForecastModel   string `mapstructure:"forecast_model"` // default for cpu and ram

	// Server
	ListenAddr  string   `mapstructure:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	LogLevel    string   `mapstructure:"log_level"`

	Thresholds alerting.Thresholds `mapstructure:"thresholds"`
}

// NewConfig returns the built-in defaults without reading any file or
// environment variable.
func NewConfig() *Config {
	th := alerting.DefaultThresholds()
	return &Config{
		Source:             string(datasource.KindKubernetes),
		PrometheusURL:      "http://localhost:9090",
		Queries:            datasource.DefaultPrometheusQueries(),
		DiskPath:           "/",
		SourceTimeout:      30 * time.Second,
		CollectionInterval: 5 * time.Minute,
		HistoryCapacity:    1000,
		HistoryWindow:      168, // one week of hourly points
		ForecastHorizon:    24,
		ForecastModel:      string(forecast.ModelDiurnal),
		ListenAddr:         ":5000",
		CORSOrigins:        []string{"*"},
		LogLevel:           "info",
		Thresholds:         th,
	}
}

// Load reads configuration from, in decreasing priority:
//  1. command-line flags (applied by main after Load)
//  2. environment variables (FORECASTER_*, plus PROMETHEUS_URL)
//  3. a yaml file: path if given, otherwise ./configs/config.yaml or ./config.yaml when present
//  4. NewConfig defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, NewConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("prometheus_url", EnvPrefix+"_PROMETHEUS_URL", "PROMETHEUS_URL"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("cannot read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override nested
// fields during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source", d.Source)
	v.SetDefault("prometheus_url", d.PrometheusURL)
	v.SetDefault("queries.cpu", d.Queries.CPU)
	v.SetDefault("queries.ram", d.Queries.RAM)
	v.SetDefault("queries.storage", d.Queries.Storage)
	v.SetDefault("queries.hosts", d.Queries.Hosts)
	v.SetDefault("queries.instances", d.Queries.Instances)
	v.SetDefault("queries.volumes", d.Queries.Volumes)
	v.SetDefault("kubeconfig", d.Kubeconfig)
	v.SetDefault("disk_path", d.DiskPath)
	v.SetDefault("source_timeout", d.SourceTimeout)
	v.SetDefault("collection_interval", d.CollectionInterval)
	v.SetDefault("history_capacity", d.HistoryCapacity)
	v.SetDefault("seed_history", d.SeedHistory)
	v.SetDefault("history_window", d.HistoryWindow)
	v.SetDefault("forecast_horizon", d.ForecastHorizon)
	v.SetDefault("forecast_model", d.ForecastModel)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("cors_origins", d.CORSOrigins)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("thresholds.cpu.warning", d.Thresholds.CPU.Warning)
	v.SetDefault("thresholds.cpu.critical", d.Thresholds.CPU.Critical)
	v.SetDefault("thresholds.ram.warning", d.Thresholds.RAM.Warning)
	v.SetDefault("thresholds.ram.critical", d.Thresholds.RAM.Critical)
	v.SetDefault("thresholds.storage.warning", d.Thresholds.Storage.Warning)
	v.SetDefault("thresholds.storage.critical", d.Thresholds.Storage.Critical)
}

// UseDemoPreset switches to an offline, fast-ticking setup with a
// prefilled week of synthetic history.
func (c *Config) UseDemoPreset() {
	c.Source = string(datasource.KindOffline)
	c.CollectionInterval = 10 * time.Second
	c.SeedHistory = true
}

// UseDevPreset samples the local host every 30 seconds
func (c *Config) UseDevPreset() {
	c.Source = string(datasource.KindHost)
	c.CollectionInterval = 30 * time.Second
	c.LogLevel = "debug"
}

// UseProductionPreset restores the 5 minute cadence and full history
func (c *Config) UseProductionPreset() {
	c.CollectionInterval = 5 * time.Minute
	c.HistoryCapacity = 1000
	c.HistoryWindow = 168
	c.LogLevel = "info"
}

// ApplyPreset applies a named preset
func (c *Config) ApplyPreset(name string) error {
	switch strings.ToLower(name) {
	case "", "none":
	case "demo":
		c.UseDemoPreset()
	case "dev":
		c.UseDevPreset()
	case "production", "prod":
		c.UseProductionPreset()
	default:
		return fmt.Errorf("unknown preset %q (expected demo, dev or production)", name)
	}
	return nil
}

// DataSource returns the settings for datasource.New
func (c *Config) DataSource() datasource.Config {
	return datasource.Config{
		Kind:          datasource.Kind(strings.ToLower(c.Source)),
		PrometheusURL: c.PrometheusURL,
		Queries:       c.Queries,
		Kubeconfig:    c.Kubeconfig,
		DiskPath:      c.DiskPath,
		Timeout:       c.SourceTimeout,
	}
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if !slices.Contains(datasource.Kinds(), datasource.Kind(strings.ToLower(c.Source))) {
		return fmt.Errorf("source must be one of %v, got %q", datasource.Kinds(), c.Source)
	}
	if strings.EqualFold(c.Source, string(datasource.KindPrometheus)) && c.PrometheusURL == "" {
		return fmt.Errorf("PROMETHEUS_URL must be set when source is prometheus")
	}
	if c.CollectionInterval < time.Second {
		return fmt.Errorf("collection interval must be at least 1s, got %v", c.CollectionInterval)
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source timeout must be positive")
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("history capacity must be at least 1")
	}
	if c.HistoryWindow < 1 || c.HistoryWindow > c.HistoryCapacity {
		return fmt.Errorf("history window must be between 1 and history capacity (%d)", c.HistoryCapacity)
	}
	if c.ForecastHorizon < 1 || c.ForecastHorizon > forecast.MaxHorizon {
		return fmt.Errorf("forecast horizon must be between 1 and %d", forecast.MaxHorizon)
	}
	if _, err := forecast.ParseModel(c.ForecastModel); err != nil {
		return err
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return c.Thresholds.Validate()
}
