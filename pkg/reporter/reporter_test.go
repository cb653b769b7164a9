package reporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/analyzer"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	points := []models.DataPoint{}
	for i, v := range []float64{40, 50, 60, 70} {
		points = append(points, models.DataPoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Value: v, Source: models.SourceReal})
	}
	summary, err := analyzer.Summarize(points)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	cpu := &MetricReport{
		Metric:      models.MetricCPU,
		Summary:     summary,
		Model:       forecast.ModelTrend,
		Predictions: []float64{80, 90, 100},
		Alerts: []models.Alert{
			{Severity: models.SeverityCritical, Metric: models.MetricCPU, Message: "Critical CPU usage: 90.0% forecast in 2 steps", Predicted: true, StepsAway: 2},
		},
	}
	storage := &MetricReport{
		Metric:      models.MetricStorage,
		Model:       forecast.ModelTrend,
		Fallback:    "insufficient_history",
		Predictions: []float64{50, 50, 50},
	}

	return New(FormatText).Generate("offline", 3, []*MetricReport{cpu, storage})
}

func TestGenerateCountsAlerts(t *testing.T) {
	report := sampleReport(t)

	if report.AlertCount != 1 || report.CriticalCount != 1 {
		t.Errorf("Expected 1 alert (1 critical), got %d (%d)", report.AlertCount, report.CriticalCount)
	}
	if report.Horizon != 3 {
		t.Errorf("Expected horizon 3, got %d", report.Horizon)
	}
}

func TestGenerateCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateCSV(sampleReport(t), &buf); err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}

	if rows[0][0] != "Metric" {
		t.Errorf("Expected header row, got %v", rows[0])
	}
	cpu := rows[1]
	if cpu[0] != "cpu" || cpu[2] != "4" || cpu[4] != "70.00" || cpu[9] != "increasing" {
		t.Errorf("Unexpected cpu row %v", cpu)
	}
	storage := rows[2]
	if storage[1] != "GB" || storage[2] != "0" || storage[11] != "insufficient_history" {
		t.Errorf("Unexpected storage row %v", storage)
	}

	// header + 2 metrics + title + column row + 6 steps; the reader skips the blank line
	if len(rows) != 11 {
		t.Errorf("Expected 11 rows, got %d", len(rows))
	}
	if last := rows[len(rows)-1]; last[0] != "3" || last[1] != "storage" || last[2] != "50.00" {
		t.Errorf("Unexpected last forecast row %v", last)
	}
}

func TestGenerateText(t *testing.T) {
	var buf bytes.Buffer
	if err := New(FormatText).Write(sampleReport(t), &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"[CPU] (percent)", "[STORAGE] (GB)", "trend via insufficient_history", "[CRITICAL]", "Alerts: 1 (1 critical)", "80.0 90.0 100.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text report to contain %q\n%s", want, out)
		}
	}
}

func TestGenerateHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := New(FormatHTML).Write(sampleReport(t), &buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "<h2>CPU <small>(percent)</small></h2>") {
		t.Errorf("Expected cpu section in HTML report")
	}
	if !strings.Contains(out, `class="CRITICAL"`) {
		t.Errorf("Expected critical alert styling in HTML report")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Errorf("Expected csv, got %s (%v)", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("Expected error for unknown format")
	}
}
