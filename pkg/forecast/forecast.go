// Package forecast turns a short, bounded metric history into a
// multi-step projection. Every function is pure: callers pass a copy of
// the history and a random source, and no state is shared between calls.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// MaxHorizon caps the number of steps a single call may request
const MaxHorizon = 720

// NeutralDefault is projected when there is no history at all
const NeutralDefault = 50.0

var (
	// ErrInvalidHorizon is returned for horizons below 1 or above MaxHorizon
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
	// ErrInvalidHistory is returned when the history holds NaN or Inf
	ErrInvalidHistory = errors.New("invalid forecast history")
)

// RandSource supplies uniform values in [0,1). *rand.Rand satisfies it,
// so tests can pass a seeded PCG source.
type RandSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand returns a goroutine-safe source backed by math/rand/v2
func DefaultRand() RandSource {
	return globalRand{}
}

// Model selects a forecasting algorithm
type Model string

const (
	ModelTrend   Model = "trend"
	ModelDiurnal Model = "diurnal"
)

// ParseModel converts a query parameter into a Model
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(s))) {
	case ModelTrend, "linear":
		return ModelTrend, nil
	case ModelDiurnal, "sinusoidal", "sinusoidal_with_trend":
		return ModelDiurnal, nil
	}
	return "", fmt.Errorf("unknown forecast model %q (expected trend or diurnal)", s)
}

// Run dispatches to the selected model. nowHour is only used by the
// diurnal model; rng may be nil for the trend model.
func Run(model Model, history []float64, horizon, nowHour int, rng RandSource) ([]float64, error) {
	switch model {
	case ModelTrend:
		return TrendLine(history, horizon)
	case ModelDiurnal:
		return Diurnal(history, horizon, nowHour, rng)
	}
	return nil, fmt.Errorf("unknown forecast model %q", model)
}

func validate(history []float64, horizon int) error {
	if horizon < 1 || horizon > MaxHorizon {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidHorizon, horizon, MaxHorizon)
	}
	for i, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidHistory, i)
		}
	}
	return nil
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// jitter draws a value uniformly from [-magnitude, +magnitude]
func jitter(rng RandSource, magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * magnitude
}

// TrendLine extrapolates an OLS line fitted over the history and clamps
// every step to [0,100].
func TrendLine(history []float64, horizon int) ([]float64, error) {
	return TrendLineWithin(history, horizon, models.PercentRange)
}

// TrendLineWithin is TrendLine with a caller supplied clamp range, used
// for metrics that are not percentages.
func TrendLineWithin(history []float64, horizon int, bounds models.Range) ([]float64, error) {
	if err := validate(history, horizon); err != nil {
		return nil, err
	}

	if len(history) < 2 {
		if len(history) == 0 {
			return repeat(bounds.Clamp(NeutralDefault), horizon), nil
		}
		return repeat(bounds.Clamp(history[0]), horizon), nil
	}

	fit := LinearFit(history)
	if fit.Degenerate {
		return repeat(bounds.Clamp(fit.Mean), horizon), nil
	}

	n := len(history)
	predictions := make([]float64, horizon)
	for i := range predictions {
		predictions[i] = bounds.Clamp(fit.At(float64(n + i)))
	}
	return predictions, nil
}

// Fallback names the degraded path a model takes for this history, or ""
// when the full model applies. It is informational and never an error.
func Fallback(model Model, history []float64) string {
	switch {
	case model == ModelDiurnal && len(history) < minDiurnalHistory:
		return "daily_pattern"
	case model == ModelTrend && len(history) < 2:
		return "insufficient_history"
	case model == ModelTrend && LinearFit(history).Degenerate:
		return "degenerate_fit"
	}
	return ""
}

// ForMetric runs model for a tracked metric. Percentage metrics use the
// requested model; absolute sizes always use a trend line bounded by the
// metric's range. The model actually used is returned.
func ForMetric(metric models.Metric, model Model, history []float64, horizon, nowHour int, rng RandSource) (Model, []float64, error) {
	if !metric.IsPercentage() {
		predictions, err := TrendLineWithin(history, horizon, metric.Range())
		return ModelTrend, predictions, err
	}
	predictions, err := Run(model, history, horizon, nowHour, rng)
	return model, predictions, err
}
