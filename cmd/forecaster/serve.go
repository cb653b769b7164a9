package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/api"
	"github.com/opscart/capacity-forecaster/pkg/collector"
	"github.com/opscart/capacity-forecaster/pkg/config"
	"github.com/opscart/capacity-forecaster/pkg/datasource"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/history"
	"github.com/opscart/capacity-forecaster/pkg/logger"
	"github.com/opscart/capacity-forecaster/pkg/synthetic"
)

const shutdownTimeout = 15 * time.Second

var listenAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collector loop and the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default :5000)")
	return cmd
}

// pipeline is the collector and history shared by every command
type pipeline struct {
	registry  *history.Registry
	generator *synthetic.Generator
	collector *collector.Collector
	source    datasource.MetricSource
}

func newPipeline(cfg *config.Config, log *logger.Logger) *pipeline {
	source, err := datasource.New(cfg.DataSource(), log.Logger)
	if err != nil {
		// unreachable configuration behaves like an outage
		log.Logger.Warn("metric source unavailable, continuing with synthetic data",
			zap.String("source", cfg.Source), zap.Error(err))
		source = datasource.NewOfflineSource()
	}

	registry := history.NewRegistry(cfg.HistoryCapacity)
	generator := synthetic.NewGenerator(nil)
	c := collector.New(source, generator, registry,
		collector.WithInterval(cfg.CollectionInterval),
		collector.WithSourceTimeout(cfg.SourceTimeout),
		collector.WithLogger(log.Logger))

	return &pipeline{registry: registry, generator: generator, collector: c, source: source}
}

// seedHistory backfills one synthetic week of hourly points ending now
func (p *pipeline) seedHistory(log *logger.Logger) error {
	count := min(synthetic.DefaultBackfillPoints, p.registry.Capacity())
	if err := p.generator.Backfill(p.registry, time.Now().Add(-time.Hour), count, time.Hour); err != nil {
		return err
	}
	log.Logger.Info("seeded synthetic history", zap.Int("points_per_metric", count))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Flush(log.Logger)

	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = listenAddr
	}

	p := newPipeline(cfg, log)
	if cfg.SeedHistory {
		if err := p.seedHistory(log); err != nil {
			return err
		}
	}

	model, err := forecast.ParseModel(cfg.ForecastModel)
	if err != nil {
		return err
	}

	srv := api.NewServer(p.registry, p.collector, api.Options{
		Version:        version,
		HistoryWindow:  cfg.HistoryWindow,
		DefaultHorizon: cfg.ForecastHorizon,
		DefaultModel:   model,
		Thresholds:     cfg.Thresholds,
		CORSOrigins:    cfg.CORSOrigins,
	}, log)
	httpServer := srv.NewHTTPServer(cfg.ListenAddr)

	p.collector.Start()
	log.Logger.Info("collector started",
		zap.String("source", p.source.Name()),
		zap.Duration("interval", cfg.CollectionInterval))

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info("HTTP server listening", zap.String("addr", cfg.ListenAddr), zap.String("version", version))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		log.Logger.Info("shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		log.Logger.Error("HTTP server failed", zap.Error(serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	p.collector.Stop()
	log.Logger.Info("collector stopped")
	return serveErr
}
