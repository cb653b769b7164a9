package alerting

import (
	"testing"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func point(v float64) models.DataPoint {
	return models.DataPoint{Timestamp: now, Value: v, Source: models.SourceReal}
}

func TestEvaluateSeverities(t *testing.T) {
	tests := []struct {
		name      string
		cpu, ram  float64
		wantCount int
		wantCPU   models.Severity
	}{
		{"all quiet", 50, 50, 0, ""},
		{"cpu warning", 71, 50, 1, models.SeverityWarning},
		{"cpu critical", 86, 50, 1, models.SeverityCritical},
		{"threshold is exclusive", 70, 75, 0, ""},
		{"both raised", 90, 95, 2, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := map[models.Metric]models.DataPoint{
				models.MetricCPU: point(tt.cpu),
				models.MetricRAM: point(tt.ram),
			}
			alerts := Evaluate(latest, DefaultThresholds(), now)

			if len(alerts) != tt.wantCount {
				t.Fatalf("Expected %d alerts, got %d: %+v", tt.wantCount, len(alerts), alerts)
			}
			if tt.wantCPU != "" {
				if alerts[0].Metric != models.MetricCPU || alerts[0].Severity != tt.wantCPU {
					t.Errorf("Expected first alert cpu/%s, got %s/%s", tt.wantCPU, alerts[0].Metric, alerts[0].Severity)
				}
			}
		})
	}
}

func TestEvaluateCriticalCarriesThreshold(t *testing.T) {
	alerts := Evaluate(map[models.Metric]models.DataPoint{models.MetricRAM: point(91.5)}, DefaultThresholds(), now)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Threshold != 90 {
		t.Errorf("Expected threshold 90, got %.0f", a.Threshold)
	}
	if a.Message != "Critical RAM usage: 91.5%" {
		t.Errorf("Unexpected message %q", a.Message)
	}
	if a.Predicted {
		t.Error("Expected a current-value alert")
	}
}

func TestStorageAlertsDisabledByDefault(t *testing.T) {
	alerts := Evaluate(map[models.Metric]models.DataPoint{models.MetricStorage: point(1e6)}, DefaultThresholds(), now)
	if len(alerts) != 0 {
		t.Errorf("Expected no storage alerts by default, got %+v", alerts)
	}

	th := DefaultThresholds()
	th.Storage = Level{Warning: 800, Critical: 1000}
	alerts = Evaluate(map[models.Metric]models.DataPoint{models.MetricStorage: point(900)}, th, now)
	if len(alerts) != 1 || alerts[0].Message != "High storage usage: 900.0 GB" {
		t.Errorf("Expected one storage warning, got %+v", alerts)
	}
}

func TestEvaluateForecast(t *testing.T) {
	th := DefaultThresholds()

	alerts := EvaluateForecast(models.MetricCPU, []float64{60, 72, 80, 88, 95}, th, now)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 predictive alert, got %d", len(alerts))
	}
	if alerts[0].Severity != models.SeverityCritical || alerts[0].StepsAway != 4 {
		t.Errorf("Expected critical at step 4, got %s at %d", alerts[0].Severity, alerts[0].StepsAway)
	}
	if !alerts[0].Predicted {
		t.Error("Expected Predicted to be set")
	}

	alerts = EvaluateForecast(models.MetricCPU, []float64{60, 65, 72, 71}, th, now)
	if len(alerts) != 1 || alerts[0].Severity != models.SeverityWarning || alerts[0].StepsAway != 3 {
		t.Errorf("Expected warning at step 3, got %+v", alerts)
	}

	if alerts := EvaluateForecast(models.MetricCPU, []float64{10, 20}, th, now); len(alerts) != 0 {
		t.Errorf("Expected no alerts, got %+v", alerts)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}

	th := DefaultThresholds()
	th.CPU = Level{Warning: 90, Critical: 80}
	if err := th.Validate(); err == nil {
		t.Error("Expected error when warning exceeds critical")
	}

	th = DefaultThresholds()
	th.RAM = Level{Warning: 90, Critical: 120}
	if err := th.Validate(); err == nil {
		t.Error("Expected error for percentage threshold above 100")
	}
}
