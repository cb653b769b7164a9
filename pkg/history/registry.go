// Package history holds the bounded, in-memory rolling history of every
// tracked metric. It is the only shared mutable state in the forecaster:
// the collector appends, HTTP handlers and the CLI read copies.
package history

import (
	"errors"
	"fmt"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// DefaultCapacity is the number of points retained per metric
const DefaultCapacity = 1000

// ErrUnknownMetric is returned when a caller names a metric that is not tracked
var ErrUnknownMetric = errors.New("unknown metric")

// Registry maps each tracked metric to its series.
// The map is built once in NewRegistry and never modified afterwards,
// so lookups need no lock; each series carries its own.
type Registry struct {
	series   map[models.Metric]*Series
	capacity int
}

// NewRegistry creates empty series for every tracked metric.
// A non-positive capacity falls back to DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	series := make(map[models.Metric]*Series, len(models.AllMetrics()))
	for _, m := range models.AllMetrics() {
		series[m] = newSeries(capacity)
	}

	return &Registry{
		series:   series,
		capacity: capacity,
	}
}

func (r *Registry) lookup(metric models.Metric) (*Series, error) {
	s, ok := r.series[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return s, nil
}

// Capacity returns the per-metric retention limit
func (r *Registry) Capacity() int {
	return r.capacity
}

// Append adds a point to the metric's series, evicting the oldest point
// once the series is at capacity.
func (r *Registry) Append(metric models.Metric, point models.DataPoint) error {
	s, err := r.lookup(metric)
	if err != nil {
		return err
	}
	s.append(point)
	return nil
}

// Snapshot returns a copy of the whole series, oldest first
func (r *Registry) Snapshot(metric models.Metric) ([]models.DataPoint, error) {
	s, err := r.lookup(metric)
	if err != nil {
		return nil, err
	}
	return s.tail(r.capacity), nil
}

// Latest returns the newest point; ok is false when nothing was collected yet
func (r *Registry) Latest(metric models.Metric) (point models.DataPoint, ok bool, err error) {
	s, err := r.lookup(metric)
	if err != nil {
		return models.DataPoint{}, false, err
	}
	point, ok = s.latest()
	return point, ok, nil
}

// Tail returns the last min(n, len) points, oldest first
func (r *Registry) Tail(metric models.Metric, n int) ([]models.DataPoint, error) {
	s, err := r.lookup(metric)
	if err != nil {
		return nil, err
	}
	return s.tail(n), nil
}

// Values returns the values of the last min(n, len) points, oldest first.
// This is the history slice handed to the forecasting engine.
func (r *Registry) Values(metric models.Metric, n int) ([]float64, error) {
	points, err := r.Tail(metric, n)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values, nil
}

// Len returns the number of points currently held for the metric
func (r *Registry) Len(metric models.Metric) (int, error) {
	s, err := r.lookup(metric)
	if err != nil {
		return 0, err
	}
	return s.len(), nil
}
