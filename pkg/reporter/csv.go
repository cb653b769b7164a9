package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// GenerateCSV writes one row per metric followed by one row per forecast step
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Metric",
		"Unit",
		"Points",
		"Real Points",
		"Latest",
		"Average",
		"P95",
		"Peak",
		"Pattern",
		"Trend",
		"Model",
		"Fallback",
		"Alerts",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, m := range report.Metrics {
		row := []string{string(m.Metric), m.Unit(), "0", "0", "", "", "", "", "", "", string(m.Model), m.Fallback, strconv.Itoa(len(m.Alerts))}
		if s := m.Summary; s != nil {
			row[2] = strconv.Itoa(s.Count)
			row[3] = strconv.Itoa(s.RealCount)
			row[4] = formatValue(s.Latest)
			row[5] = formatValue(s.Percentiles.Average)
			row[6] = formatValue(s.Percentiles.P95)
			row[7] = formatValue(s.Percentiles.Peak)
			row[8] = s.Pattern.Type
			row[9] = s.Trend.Direction
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	rows := [][]string{{}, {"FORECAST"}, {"Step", "Metric", "Predicted"}}
	for _, m := range report.Metrics {
		for i, v := range m.Predictions {
			rows = append(rows, []string{strconv.Itoa(i + 1), string(m.Metric), formatValue(v)})
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV forecast: %w", err)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
