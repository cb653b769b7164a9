// Package synthetic produces plausible metric readings when the real
// source is unreachable, so the history never starves and the service
// stays usable offline.
package synthetic

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// RandSource supplies uniform values in [0,1)
type RandSource interface {
	Float64() float64
}

type lockedGlobal struct{}

func (lockedGlobal) Float64() float64 { return rand.Float64() }

const (
	jitterMagnitude = 2.0
	// StorageSeedGB is used when there is no previous storage reading
	StorageSeedGB      = 500.0
	storageMinGrowthGB = 0.1
	storageMaxGrowthGB = 0.5
)

// band is one slice of the day with its own cpu and ram base ranges
type band struct {
	Name     string
	From, To int // inclusive hours
	CPU      [2]float64
	RAM      [2]float64
}

var bands = []band{
	{Name: "deep-night", From: 0, To: 5, CPU: [2]float64{10, 20}, RAM: [2]float64{30, 40}},
	{Name: "early-morning", From: 6, To: 8, CPU: [2]float64{20, 35}, RAM: [2]float64{35, 45}},
	{Name: "morning", From: 9, To: 11, CPU: [2]float64{40, 60}, RAM: [2]float64{50, 65}},
	{Name: "lunch", From: 12, To: 13, CPU: [2]float64{35, 50}, RAM: [2]float64{50, 60}},
	{Name: "afternoon-peak", From: 14, To: 17, CPU: [2]float64{55, 80}, RAM: [2]float64{60, 80}},
	{Name: "evening", From: 18, To: 21, CPU: [2]float64{30, 45}, RAM: [2]float64{45, 55}},
	{Name: "late-night", From: 22, To: 23, CPU: [2]float64{15, 25}, RAM: [2]float64{35, 45}},
}

// BandName returns the diurnal band an hour falls into
func BandName(hour int) string {
	return bandFor(hour).Name
}

func bandFor(hour int) band {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	for _, b := range bands {
		if hour >= b.From && hour <= b.To {
			return b
		}
	}
	return bands[0]
}

// Generator draws synthetic readings from diurnal bands
type Generator struct {
	rng RandSource
}

// NewGenerator creates a generator; a nil source uses math/rand/v2
func NewGenerator(rng RandSource) *Generator {
	if rng == nil {
		rng = lockedGlobal{}
	}
	return &Generator{rng: rng}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Reading produces one value for metric at the given instant. For storage,
// previous is the last stored value (hasPrevious false seeds at 500 GB) and
// the result grows by a small bounded increment instead of being resampled.
func (g *Generator) Reading(metric models.Metric, at time.Time, previous float64, hasPrevious bool) (float64, error) {
	b := bandFor(at.Hour())

	var v float64
	switch metric {
	case models.MetricCPU:
		v = g.uniform(b.CPU[0], b.CPU[1]) + g.uniform(-jitterMagnitude, jitterMagnitude)
	case models.MetricRAM:
		v = g.uniform(b.RAM[0], b.RAM[1]) + g.uniform(-jitterMagnitude, jitterMagnitude)
	case models.MetricStorage:
		base := StorageSeedGB
		if hasPrevious {
			base = previous
		}
		v = base + g.uniform(storageMinGrowthGB, storageMaxGrowthGB)
	default:
		return 0, fmt.Errorf("no synthetic model for metric %q", metric)
	}

	return metric.Range().Clamp(v), nil
}
