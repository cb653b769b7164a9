package collector

import (
	"time"

	"github.com/opscart/capacity-forecaster/pkg/metrics"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

// Reading is the outcome of one metric within a round
type Reading struct {
	Metric models.Metric `json:"metric"`
	Value  float64       `json:"value"`
	Source models.Source `json:"source"`
	Error  string        `json:"error,omitempty"` // why the real reading was not used
}

// Round reports what a single collection round appended
type Round struct {
	ID         string        `json:"round_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Connected  bool          `json:"connected"`
	Readings   []Reading     `json:"readings"`
}

// Success reports whether at least one real reading was appended
func (r Round) Success() bool {
	for _, reading := range r.Readings {
		if reading.Source == models.SourceReal {
			return true
		}
	}
	return false
}

// Outcome classifies the round as real, partial or synthetic
func (r Round) Outcome() string {
	realCount := 0
	for _, reading := range r.Readings {
		if reading.Source == models.SourceReal {
			realCount++
		}
	}
	switch {
	case realCount == 0:
		return metrics.OutcomeSynthetic
	case realCount < len(r.Readings):
		return metrics.OutcomePartial
	}
	return metrics.OutcomeReal
}

// Reading returns the entry for metric, if the round produced one
func (r Round) Reading(metric models.Metric) (Reading, bool) {
	for _, reading := range r.Readings {
		if reading.Metric == metric {
			return reading, true
		}
	}
	return Reading{}, false
}
