package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/analyzer"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatCSV  ReportFormat = "csv"
	FormatHTML ReportFormat = "html"
)

// ParseFormat converts a flag value into a ReportFormat
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(s)); f {
	case FormatText, FormatCSV, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (expected text, csv or html)", s)
}

// MetricReport is the analysis and forecast of one metric
type MetricReport struct {
	Metric      models.Metric
	Summary     *analyzer.Summary
	Model       forecast.Model
	Fallback    string
	Predictions []float64
	Alerts      []models.Alert
}

// Unit is the metric's unit label
func (m *MetricReport) Unit() string {
	return m.Metric.Unit()
}

// Report contains all data for generating reports
type Report struct {
	Source        string
	GeneratedAt   time.Time
	Horizon       int
	Metrics       []*MetricReport
	AlertCount    int
	CriticalCount int
}

// Reporter renders capacity reports
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// Generate assembles a report and computes its alert totals
func (r *Reporter) Generate(source string, horizon int, metrics []*MetricReport) *Report {
	report := &Report{
		Source:      source,
		GeneratedAt: time.Now(),
		Horizon:     horizon,
		Metrics:     metrics,
	}

	for _, m := range metrics {
		report.AlertCount += len(m.Alerts)
		for _, a := range m.Alerts {
			if a.Severity == models.SeverityCritical {
				report.CriticalCount++
			}
		}
	}
	return report
}

// Write renders report in the reporter's format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatHTML:
		return GenerateHTML(report, w)
	case FormatText, "":
		return GenerateText(report, w)
	}
	return fmt.Errorf("unsupported report format %q", r.format)
}
