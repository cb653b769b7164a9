package analyzer

import (
	"fmt"
	"math"
	"sort"
)

// CalculatePercentiles computes P50, P90, P95, P99, and peak from values
func CalculatePercentiles(values []float64) (*Percentiles, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return &Percentiles{
		Average: calculateAverage(sorted),
		P50:     calculatePercentile(sorted, 50),
		P90:     calculatePercentile(sorted, 90),
		P95:     calculatePercentile(sorted, 95),
		P99:     calculatePercentile(sorted, 99),
		Peak:    sorted[len(sorted)-1],
		Min:     sorted[0],
	}, nil
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))
	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CoefficientOfVariation measures the relative variability.
// High CV (>0.5) = spiky, low CV (<0.2) = steady.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := calculateAverage(values)
	if mean == 0 {
		return 0
	}

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	stdDev := math.Sqrt(sumSquaredDiff / float64(len(values)))
	return stdDev / math.Abs(mean)
}

// AnalyzeUsagePattern determines if usage is steady or spiky
func AnalyzeUsagePattern(values []float64) UsagePattern {
	if len(values) < 10 {
		return UsagePattern{Type: "unknown"}
	}

	cv := CoefficientOfVariation(values)

	var patternType string
	var confidence float64

	switch {
	case cv < 0.15:
		patternType = "steady"
		confidence = 0.95
	case cv < 0.35:
		patternType = "moderate"
		confidence = 0.85
	case cv < 0.70:
		patternType = "spiky"
		confidence = 0.80
	default:
		patternType = "highly-variable"
		confidence = 0.75
	}

	return UsagePattern{
		Type:       patternType,
		Variation:  cv,
		Confidence: confidence,
	}
}
