package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/alerting"
	"github.com/opscart/capacity-forecaster/pkg/analyzer"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/history"
	"github.com/opscart/capacity-forecaster/pkg/logger"
	"github.com/opscart/capacity-forecaster/pkg/models"
	"github.com/opscart/capacity-forecaster/pkg/reporter"
)

var (
	forecastMetric string
	forecastValues string
	forecastModel  string
	forecastHours  int
	forecastRounds int
	reportFormat   string
	reportOutput   string
)

func newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast collected or supplied history and print a report",
		Long: `Collects --rounds rounds (after the optional synthetic week from
--seed-history) and forecasts every metric. With --values the given series is
forecast instead, for --metric only.`,
		RunE: runForecast,
	}
	cmd.Flags().StringVarP(&forecastMetric, "metric", "m", "", "Limit the report to one metric: cpu, ram, storage")
	cmd.Flags().StringVar(&forecastValues, "values", "", "Comma separated history to forecast instead of collecting")
	cmd.Flags().StringVar(&forecastModel, "model", "", "Model for cpu and ram: trend, diurnal (default from config)")
	cmd.Flags().IntVar(&forecastHours, "hours", 0, "Forecast horizon in steps (default from config)")
	cmd.Flags().IntVarP(&forecastRounds, "rounds", "n", 1, "Collection rounds to run before forecasting")
	cmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "Report format: text, csv, html")
	cmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Flush(log.Logger)

	format, err := reporter.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	modelName := cfg.ForecastModel
	if forecastModel != "" {
		modelName = forecastModel
	}
	model, err := forecast.ParseModel(modelName)
	if err != nil {
		return err
	}

	horizon := cfg.ForecastHorizon
	if forecastHours != 0 {
		horizon = forecastHours
	}
	if horizon < 1 || horizon > forecast.MaxHorizon {
		return fmt.Errorf("--hours must be between 1 and %d", forecast.MaxHorizon)
	}

	selected := models.AllMetrics()
	if forecastMetric != "" {
		m, err := models.ParseMetric(forecastMetric)
		if err != nil {
			return err
		}
		selected = []models.Metric{m}
	}

	var (
		registry   *history.Registry
		sourceName string
	)
	if forecastValues != "" {
		if forecastMetric == "" {
			return fmt.Errorf("--values requires --metric")
		}
		values, err := parseValues(forecastValues)
		if err != nil {
			return err
		}
		registry = history.NewRegistry(max(len(values), 1))
		if err := appendValues(registry, selected[0], values, time.Now()); err != nil {
			return err
		}
		sourceName = "supplied values"
	} else {
		p := newPipeline(cfg, log)
		if cfg.SeedHistory {
			if err := p.seedHistory(log); err != nil {
				return err
			}
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		for i := 0; i < forecastRounds; i++ {
			p.collector.Collect(ctx)
		}
		registry = p.registry
		sourceName = p.source.Name()
	}

	reports := make([]*reporter.MetricReport, 0, len(selected))
	for _, metric := range selected {
		mr, err := buildMetricReport(registry, metric, model, horizon, cfg.HistoryWindow, cfg.Thresholds)
		if err != nil {
			return fmt.Errorf("%s: %w", metric, err)
		}
		log.Logger.Debug("forecast built",
			zap.String("metric", string(metric)),
			zap.String("model", string(mr.Model)),
			zap.Int("alerts", len(mr.Alerts)))
		reports = append(reports, mr)
	}

	rep := reporter.New(format)
	report := rep.Generate(sourceName, horizon, reports)

	var out io.Writer = os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := rep.Write(report, out); err != nil {
		return err
	}
	if reportOutput != "" {
		fmt.Printf("Report written to %s\n", reportOutput)
	}
	return nil
}

// buildMetricReport summarises, forecasts and alerts on one metric
func buildMetricReport(reg *history.Registry, metric models.Metric, model forecast.Model, horizon, window int, thresholds alerting.Thresholds) (*reporter.MetricReport, error) {
	points, err := reg.Tail(metric, window)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	now := time.Now()
	used, predictions, err := forecast.ForMetric(metric, model, values, horizon, now.Hour(), nil)
	if err != nil {
		return nil, err
	}

	mr := &reporter.MetricReport{
		Metric:      metric,
		Model:       used,
		Fallback:    forecast.Fallback(used, values),
		Predictions: predictions,
	}
	if len(points) > 0 {
		if mr.Summary, err = analyzer.Summarize(points); err != nil {
			return nil, err
		}
		latest := map[models.Metric]models.DataPoint{metric: points[len(points)-1]}
		mr.Alerts = append(mr.Alerts, alerting.Evaluate(latest, thresholds, now)...)
	}
	mr.Alerts = append(mr.Alerts, alerting.EvaluateForecast(metric, predictions, thresholds, now)...)
	return mr, nil
}

func parseValues(raw string) ([]float64, error) {
	fields := strings.Split(raw, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", f, err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("--values is empty")
	}
	return values, nil
}

// appendValues stores values as hourly real points ending at end
func appendValues(reg *history.Registry, metric models.Metric, values []float64, end time.Time) error {
	start := end.Add(-time.Duration(len(values)-1) * time.Hour)
	for i, v := range values {
		p := models.DataPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     v,
			Source:    models.SourceReal,
		}
		if err := reg.Append(metric, p); err != nil {
			return err
		}
	}
	return nil
}
