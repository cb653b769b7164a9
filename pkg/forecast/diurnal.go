package forecast

import (
	"math"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

const (
	minDiurnalHistory = 4
	baselineWindow    = 24  // points averaged for the sinusoid amplitude
	trendWindow       = 6   // points used for the short-term slope
	maxTrendSlope     = 2.0 // units per step
	amplitudeFactor   = 0.4
	peakHour          = 14
	maxJitter         = 5.0
	jitterFactor      = 0.3
	maxStepFactor     = 0.3 // rate-of-change clamp relative to the current value
)

// Diurnal projects the history with a daily sinusoid (peaking at 14:00)
// layered over a clamped short-term trend. Adjacent steps never differ by
// more than 30% of the current value, plus rounding.
//
// Histories shorter than four points fall back to DailyPattern seeded
// with the last known value.
func Diurnal(history []float64, horizon, nowHour int, rng RandSource) ([]float64, error) {
	if err := validate(history, horizon); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = DefaultRand()
	}

	if len(history) < minDiurnalHistory {
		seed := NeutralDefault
		if len(history) > 0 {
			seed = history[len(history)-1]
		}
		return DailyPattern(seed, horizon, nowHour, rng), nil
	}

	currentValue := history[len(history)-1]
	baseline := mean(lastN(history, baselineWindow))

	trendSlope := 0.0
	if recent := lastN(history, trendWindow); len(recent) >= 2 {
		trendSlope = LinearFit(recent).Slope
	}
	trendSlope = math.Max(-maxTrendSlope, math.Min(maxTrendSlope, trendSlope))

	amplitude := amplitudeFactor * baseline
	maxStep := maxStepFactor * math.Abs(currentValue)

	predictions := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		hourOfDay := normalizeHour(nowHour + i)

		base := currentValue + trendSlope*float64(i)
		sinusoid := amplitude * math.Sin(2*math.Pi*float64(hourOfDay-peakHour)/24)

		raw := base + sinusoid
		raw += jitter(rng, math.Min(maxJitter, jitterFactor*math.Abs(raw)))

		if i > 0 {
			prev := predictions[i-1]
			if raw-prev > maxStep {
				raw = prev + maxStep
			} else if prev-raw > maxStep {
				raw = prev - maxStep
			}
		}

		predictions[i] = roundTenth(models.PercentRange.Clamp(raw))
	}

	return predictions, nil
}

func normalizeHour(h int) int {
	h %= 24
	if h < 0 {
		h += 24
	}
	return h
}
