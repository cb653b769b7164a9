package forecast

import "github.com/opscart/capacity-forecaster/pkg/models"

// dailyBand scales the current value for a slice of the day
type dailyBand struct {
	name   string
	from   int // first hour, inclusive
	to     int // last hour, inclusive
	factor float64
}

var dailyBands = []dailyBand{
	{name: "deep-night", from: 0, to: 5, factor: 0.65},
	{name: "early-morning", from: 6, to: 8, factor: 0.85},
	{name: "morning", from: 9, to: 11, factor: 1.2},
	{name: "lunch", from: 12, to: 13, factor: 1.1},
	{name: "afternoon-peak", from: 14, to: 17, factor: 1.4},
	{name: "evening", from: 18, to: 21, factor: 0.9},
	{name: "late-night", from: 22, to: 23, factor: 0.75},
}

const patternJitter = 3.0

// patternRange bounds the daily-pattern output
var patternRange = models.Range{Min: 5, Max: 95}

func bandFor(hour int) dailyBand {
	hour = normalizeHour(hour)
	for _, b := range dailyBands {
		if hour >= b.from && hour <= b.to {
			return b
		}
	}
	return dailyBands[0]
}

// DailyPattern projects current through a fixed daily load shape.
// It is the fallback when the history is too short for Diurnal.
func DailyPattern(current float64, horizon, nowHour int, rng RandSource) []float64 {
	if horizon < 1 {
		return []float64{}
	}
	if rng == nil {
		rng = DefaultRand()
	}

	predictions := make([]float64, horizon)
	for i := range predictions {
		band := bandFor(nowHour + i)
		v := current*band.factor + jitter(rng, patternJitter)
		predictions[i] = roundTenth(patternRange.Clamp(v))
	}
	return predictions
}
