package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

var start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func hourly(values ...float64) []models.DataPoint {
	points := make([]models.DataPoint, len(values))
	for i, v := range values {
		points[i] = models.DataPoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     v,
			Source:    models.SourceReal,
		}
	}
	return points
}

func TestCalculateTrendGrowing(t *testing.T) {
	// 0.5 per hour on a base of 40
	values := make([]float64, 48)
	for i := range values {
		values[i] = 40 + 0.5*float64(i)
	}

	trend := CalculateTrend(hourly(values...))

	if trend.Direction != DirectionIncreasing {
		t.Errorf("Expected increasing, got %s", trend.Direction)
	}
	if math.Abs(trend.SlopePerHour-0.5) > 1e-9 {
		t.Errorf("Expected slope 0.5/h, got %.4f", trend.SlopePerHour)
	}
	if math.Abs(trend.R2-1) > 1e-9 {
		t.Errorf("Expected R2 1, got %.4f", trend.R2)
	}
	// last fitted value 63.5 plus 12 over the next day
	if math.Abs(trend.Predicted24h-75.5) > 1e-9 {
		t.Errorf("Expected 24h prediction 75.5, got %.2f", trend.Predicted24h)
	}
	if trend.RatePerDay <= 0 {
		t.Errorf("Expected positive daily rate, got %.2f", trend.RatePerDay)
	}
}

func TestCalculateTrendUsesSpacing(t *testing.T) {
	points := hourly(10, 20, 30)
	for i := range points {
		points[i].Timestamp = start.Add(time.Duration(i) * 5 * time.Minute)
	}

	trend := CalculateTrend(points)
	if math.Abs(trend.SlopePerHour-120) > 1e-9 {
		t.Errorf("Expected 120/h at 5 minute spacing, got %.2f", trend.SlopePerHour)
	}
}

func TestCalculateTrendSteady(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = 60 + float64(i%2)
	}

	trend := CalculateTrend(hourly(values...))
	if trend.Direction != DirectionFlat {
		t.Errorf("Expected flat, got %s (slope %.4f)", trend.Direction, trend.SlopePerStep)
	}
}

func TestCalculateTrendDecreasingAndShort(t *testing.T) {
	if trend := CalculateTrend(hourly(90, 80, 70, 60)); trend.Direction != DirectionDecreasing {
		t.Errorf("Expected decreasing, got %s", trend.Direction)
	}
	if trend := CalculateTrend(hourly(50)); trend.Direction != DirectionInsufficient {
		t.Errorf("Expected insufficient-data, got %s", trend.Direction)
	}
}

func TestDetectDailyPattern(t *testing.T) {
	values := make([]float64, 72)
	for i := range values {
		hour := i % 24
		if hour >= 9 && hour <= 17 {
			values[i] = 70
		} else {
			values[i] = 20
		}
	}
	if got := DetectDailyPattern(hourly(values...)); got != "business-hours" {
		t.Errorf("Expected business-hours, got %s", got)
	}

	flat := make([]float64, 48)
	for i := range flat {
		flat[i] = 40 + float64(i%3)
	}
	if got := DetectDailyPattern(hourly(flat...)); got != "steady" {
		t.Errorf("Expected steady, got %s", got)
	}

	if got := DetectDailyPattern(hourly(1, 2, 3)); got != "insufficient-data" {
		t.Errorf("Expected insufficient-data, got %s", got)
	}
}
