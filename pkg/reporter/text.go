package reporter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// GenerateText writes a human readable report
func GenerateText(report *Report, writer io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Capacity report (%s source, %d step horizon)\n", report.Source, report.Horizon)
	fmt.Fprintf(&b, "Generated %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	for _, m := range report.Metrics {
		fmt.Fprintf(&b, "\n[%s] (%s)\n", strings.ToUpper(string(m.Metric)), m.Unit())

		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		if s := m.Summary; s != nil {
			fmt.Fprintf(tw, "  Points:\t%d (%d real, %d synthetic)\n", s.Count, s.RealCount, s.SyntheticCount)
			fmt.Fprintf(tw, "  Latest:\t%.2f\n", s.Latest)
			fmt.Fprintf(tw, "  Avg / P95 / Peak:\t%.2f / %.2f / %.2f\n", s.Percentiles.Average, s.Percentiles.P95, s.Percentiles.Peak)
			fmt.Fprintf(tw, "  Pattern:\t%s (cv %.2f), daily %s\n", s.Pattern.Type, s.Pattern.Variation, s.DailyPattern)
			fmt.Fprintf(tw, "  Trend:\t%s (%.3f/h, R² %.2f)\n", s.Trend.Direction, s.Trend.SlopePerHour, s.Trend.R2)
		} else {
			fmt.Fprintf(tw, "  Points:\t0\n")
		}
		model := string(m.Model)
		if m.Fallback != "" {
			model += " via " + m.Fallback
		}
		fmt.Fprintf(tw, "  Model:\t%s\n", model)
		if len(m.Predictions) > 0 {
			fmt.Fprintf(tw, "  Forecast:\t%s\n", previewPredictions(m.Predictions, 6))
			fmt.Fprintf(tw, "  Final step:\t%.2f\n", m.Predictions[len(m.Predictions)-1])
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, a := range m.Alerts {
			fmt.Fprintf(&b, "  [%s] %s\n", a.Severity, a.Message)
		}
	}

	b.WriteString("\n" + strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Alerts: %d (%d critical)\n", report.AlertCount, report.CriticalCount)

	_, err := io.WriteString(writer, b.String())
	return err
}

func previewPredictions(values []float64, n int) string {
	parts := make([]string, 0, n+1)
	for i, v := range values {
		if i == n {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%.1f", v))
	}
	return strings.Join(parts, " ")
}
