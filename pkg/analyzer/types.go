package analyzer

import "time"

// Summary describes a metric's recent history
type Summary struct {
	Count          int       `json:"count"`
	RealCount      int       `json:"real_count"`
	SyntheticCount int       `json:"synthetic_count"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Latest         float64   `json:"latest"`

	Percentiles  Percentiles  `json:"percentiles"`
	Pattern      UsagePattern `json:"pattern"`
	Trend        Trend        `json:"trend"`
	DailyPattern string       `json:"daily_pattern"` // business-hours, steady, variable, insufficient-data
}

// Percentiles contains statistical percentiles
type Percentiles struct {
	Average float64 `json:"average"`
	P50     float64 `json:"p50"`
	P90     float64 `json:"p90"`
	P95     float64 `json:"p95"`
	P99     float64 `json:"p99"`
	Peak    float64 `json:"peak"`
	Min     float64 `json:"min"`
}

// UsagePattern describes usage behavior
type UsagePattern struct {
	Type       string  `json:"type"`      // "steady", "moderate", "spiky", "highly-variable", "unknown"
	Variation  float64 `json:"variation"` // coefficient of variation
	Confidence float64 `json:"confidence"`
}

// Trend direction labels
const (
	DirectionIncreasing   = "increasing"
	DirectionDecreasing   = "decreasing"
	DirectionFlat         = "flat"
	DirectionInsufficient = "insufficient-data"
)

// Trend is the least squares line through the history
type Trend struct {
	SlopePerStep float64 `json:"slope_per_step"`
	SlopePerHour float64 `json:"slope_per_hour"`
	R2           float64 `json:"r2"`
	Direction    string  `json:"direction"`
	RatePerDay   float64 `json:"rate_per_day_percent"` // growth per day relative to the mean
	Predicted24h float64 `json:"predicted_24h"`
}
