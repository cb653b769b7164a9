package models

import (
	"fmt"
	"math"
	"strings"
)

// Metric identifies one tracked utilization signal
type Metric string

const (
	MetricCPU     Metric = "cpu"
	MetricRAM     Metric = "ram"
	MetricStorage Metric = "storage"
)

// AllMetrics returns the fixed set of tracked metrics in collection order
func AllMetrics() []Metric {
	return []Metric{MetricCPU, MetricRAM, MetricStorage}
}

// Valid reports whether m is one of the tracked metrics
func (m Metric) Valid() bool {
	switch m {
	case MetricCPU, MetricRAM, MetricStorage:
		return true
	}
	return false
}

// ParseMetric converts a user supplied name into a Metric
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown metric %q (expected cpu, ram or storage)", s)
	}
	return m, nil
}

// Range is a closed interval of acceptable values for a metric
type Range struct {
	Min float64
	Max float64
}

// PercentRange bounds utilization percentages
var PercentRange = Range{Min: 0, Max: 100}

// Clamp pulls v into the range
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v is a finite value inside the range
func (r Range) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// Range returns the valid value range for the metric.
// cpu and ram are percentages, storage is an absolute size in GB.
func (m Metric) Range() Range {
	if m == MetricStorage {
		return Range{Min: 0, Max: math.Inf(1)}
	}
	return PercentRange
}

// Unit returns the unit label used in API responses and reports
func (m Metric) Unit() string {
	if m == MetricStorage {
		return "GB"
	}
	return "percent"
}

// IsPercentage reports whether values of m are bounded percentages
func (m Metric) IsPercentage() bool {
	return m == MetricCPU || m == MetricRAM
}
