// Package alerting compares current and forecast values against per-metric
// warning and critical thresholds.
package alerting

import (
	"fmt"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// Level holds the two thresholds for one metric. A zero Critical disables
// alerting for that metric.
type Level struct {
	Warning  float64 `mapstructure:"warning" json:"warning"`
	Critical float64 `mapstructure:"critical" json:"critical"`
}

// Enabled reports whether the level raises any alerts
func (l Level) Enabled() bool {
	return l.Critical > 0
}

type Thresholds struct {
	CPU     Level `mapstructure:"cpu" json:"cpu"`
	RAM     Level `mapstructure:"ram" json:"ram"`
	Storage Level `mapstructure:"storage" json:"storage"`
}

// DefaultThresholds are cpu 70/85 and ram 75/90 percent; storage alerts
// are off until sized for the environment.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU: Level{Warning: 70, Critical: 85},
		RAM: Level{Warning: 75, Critical: 90},
	}
}

// For returns the level configured for metric
func (t Thresholds) For(metric models.Metric) Level {
	switch metric {
	case models.MetricCPU:
		return t.CPU
	case models.MetricRAM:
		return t.RAM
	case models.MetricStorage:
		return t.Storage
	}
	return Level{}
}

// Validate checks that every enabled level has warning below critical
func (t Thresholds) Validate() error {
	for _, m := range models.AllMetrics() {
		l := t.For(m)
		if !l.Enabled() {
			continue
		}
		if l.Warning < 0 || l.Warning >= l.Critical {
			return fmt.Errorf("%s thresholds: warning (%.1f) must be >= 0 and below critical (%.1f)", m, l.Warning, l.Critical)
		}
		if m.IsPercentage() && l.Critical > 100 {
			return fmt.Errorf("%s thresholds: critical (%.1f) cannot exceed 100%%", m, l.Critical)
		}
	}
	return nil
}

// classify returns the severity and threshold value v exceeds, if any.
// Critical wins over warning; comparisons are strict.
func (l Level) classify(v float64) (models.Severity, float64, bool) {
	if !l.Enabled() {
		return "", 0, false
	}
	if v > l.Critical {
		return models.SeverityCritical, l.Critical, true
	}
	if v > l.Warning {
		return models.SeverityWarning, l.Warning, true
	}
	return "", 0, false
}

// Evaluate raises at most one alert per metric for the latest values.
// Metrics are visited in collection order so output is stable.
func Evaluate(latest map[models.Metric]models.DataPoint, t Thresholds, now time.Time) []models.Alert {
	alerts := []models.Alert{}
	for _, m := range models.AllMetrics() {
		point, ok := latest[m]
		if !ok {
			continue
		}
		severity, threshold, raised := t.For(m).classify(point.Value)
		if !raised {
			continue
		}
		alerts = append(alerts, models.Alert{
			Severity:  severity,
			Metric:    m,
			Message:   message(severity, m, point.Value),
			Value:     point.Value,
			Threshold: threshold,
			RaisedAt:  now,
		})
	}
	return alerts
}

// EvaluateForecast raises a predictive alert for the first forecast step
// that crosses the critical threshold, or failing that the warning one.
func EvaluateForecast(metric models.Metric, predictions []float64, t Thresholds, now time.Time) []models.Alert {
	level := t.For(metric)
	firstWarning := -1

	for i, v := range predictions {
		severity, threshold, raised := level.classify(v)
		if !raised {
			continue
		}
		if severity == models.SeverityCritical {
			return []models.Alert{predicted(metric, severity, v, threshold, i+1, now)}
		}
		if firstWarning < 0 {
			firstWarning = i
		}
	}

	if firstWarning >= 0 {
		v := predictions[firstWarning]
		return []models.Alert{predicted(metric, models.SeverityWarning, v, level.Warning, firstWarning+1, now)}
	}
	return []models.Alert{}
}

func predicted(metric models.Metric, severity models.Severity, v, threshold float64, step int, now time.Time) models.Alert {
	return models.Alert{
		Severity:  severity,
		Metric:    metric,
		Message:   fmt.Sprintf("%s forecast in %d steps", message(severity, metric, v), step),
		Value:     v,
		Threshold: threshold,
		Predicted: true,
		StepsAway: step,
		RaisedAt:  now,
	}
}

func message(severity models.Severity, metric models.Metric, v float64) string {
	prefix := "High"
	if severity == models.SeverityCritical {
		prefix = "Critical"
	}
	if metric.IsPercentage() {
		return fmt.Sprintf("%s %s usage: %.1f%%", prefix, label(metric), v)
	}
	return fmt.Sprintf("%s %s usage: %.1f %s", prefix, label(metric), v, metric.Unit())
}

func label(metric models.Metric) string {
	switch metric {
	case models.MetricCPU:
		return "CPU"
	case models.MetricRAM:
		return "RAM"
	}
	return string(metric)
}
