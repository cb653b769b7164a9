package synthetic

import (
	"fmt"
	"time"

	"github.com/opscart/capacity-forecaster/pkg/history"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

// DefaultBackfillPoints is one week of hourly readings
const DefaultBackfillPoints = 168

// Backfill appends count synthetic points per metric, spaced step apart and
// ending at end, so forecasts have a diurnal history to work with before
// the first real round.
func (g *Generator) Backfill(reg *history.Registry, end time.Time, count int, step time.Duration) error {
	if count < 1 {
		return nil
	}
	if step <= 0 {
		return fmt.Errorf("backfill step must be positive, got %v", step)
	}

	start := end.Add(-time.Duration(count-1) * step)
	for _, metric := range models.AllMetrics() {
		previous, hasPrevious, err := latestValue(reg, metric)
		if err != nil {
			return err
		}

		for i := 0; i < count; i++ {
			at := start.Add(time.Duration(i) * step)
			v, err := g.Reading(metric, at, previous, hasPrevious)
			if err != nil {
				return err
			}
			point := models.DataPoint{Timestamp: at, Value: v, Source: models.SourceSynthetic}
			if err := reg.Append(metric, point); err != nil {
				return err
			}
			previous, hasPrevious = v, true
		}
	}
	return nil
}

func latestValue(reg *history.Registry, metric models.Metric) (float64, bool, error) {
	p, ok, err := reg.Latest(metric)
	if err != nil || !ok {
		return 0, false, err
	}
	return p.Value, true, nil
}
