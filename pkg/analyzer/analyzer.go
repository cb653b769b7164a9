// Package analyzer derives descriptive statistics from a metric history:
// percentiles, variability, the least squares trend and the daily shape.
package analyzer

import (
	"fmt"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// Summarize analyzes points in timestamp order
func Summarize(points []models.DataPoint) (*Summary, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no data points to summarize")
	}

	values := valuesOf(points)
	percentiles, err := CalculatePercentiles(values)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Count:        len(points),
		From:         points[0].Timestamp,
		To:           points[len(points)-1].Timestamp,
		Latest:       values[len(values)-1],
		Percentiles:  *percentiles,
		Pattern:      AnalyzeUsagePattern(values),
		Trend:        CalculateTrend(points),
		DailyPattern: DetectDailyPattern(points),
	}

	for _, p := range points {
		if p.Source == models.SourceReal {
			summary.RealCount++
		} else {
			summary.SyntheticCount++
		}
	}

	return summary, nil
}

func valuesOf(points []models.DataPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}
