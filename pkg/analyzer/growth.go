package analyzer

import (
	"math"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

// flatThreshold: total change across the window below this fraction of
// the mean is reported as flat
const flatThreshold = 0.02

// CalculateTrend fits a line through the points in order and converts the
// per-step slope to wall-clock rates using the average spacing.
func CalculateTrend(points []models.DataPoint) Trend {
	if len(points) < 2 {
		return Trend{Direction: DirectionInsufficient}
	}

	values := valuesOf(points)
	fit := forecast.LinearFit(values)
	n := len(values)

	trend := Trend{
		SlopePerStep: fit.Slope,
		R2:           fit.R2,
		Direction:    direction(fit.Slope*float64(n-1), fit.Mean),
	}

	span := points[n-1].Timestamp.Sub(points[0].Timestamp)
	if span <= 0 {
		trend.Predicted24h = fit.At(float64(n - 1))
		return trend
	}

	stepHours := span.Hours() / float64(n-1)
	trend.SlopePerHour = fit.Slope / stepHours
	trend.Predicted24h = fit.At(float64(n-1)) + trend.SlopePerHour*24
	if fit.Mean != 0 {
		trend.RatePerDay = trend.SlopePerHour * 24 / math.Abs(fit.Mean) * 100
	}
	return trend
}

func direction(change, mean float64) string {
	threshold := flatThreshold * math.Abs(mean)
	if threshold == 0 {
		threshold = flatThreshold
	}
	switch {
	case change > threshold:
		return DirectionIncreasing
	case change < -threshold:
		return DirectionDecreasing
	}
	return DirectionFlat
}

// DetectDailyPattern checks whether business hours run hotter than nights.
// Needs at least a day of hourly points.
func DetectDailyPattern(points []models.DataPoint) string {
	if len(points) < 24 || points[len(points)-1].Timestamp.Sub(points[0].Timestamp) < 23*time.Hour {
		return "insufficient-data"
	}

	hourly := make(map[int][]float64)
	for _, p := range points {
		hour := p.Timestamp.Hour()
		hourly[hour] = append(hourly[hour], p.Value)
	}

	hourlyMeans := make([]float64, 24)
	for hour := 0; hour < 24; hour++ {
		hourlyMeans[hour] = calculateAverage(hourly[hour])
	}

	businessHoursAvg := bandAverage(hourly, 9, 17)
	nightAvg := bandAverage(hourly, 0, 5)
	if nightAvg > 0 && businessHoursAvg > nightAvg*1.5 {
		return "business-hours"
	}

	if CoefficientOfVariation(hourlyMeans) < 0.15 {
		return "steady"
	}
	return "variable"
}

// bandAverage averages every value observed in hours from..to inclusive
func bandAverage(hourly map[int][]float64, from, to int) float64 {
	var all []float64
	for h := from; h <= to; h++ {
		all = append(all, hourly[h]...)
	}
	return calculateAverage(all)
}
