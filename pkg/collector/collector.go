// Package collector runs the periodic sampling loop. Each round asks the
// metric source for real readings, substitutes synthetic values for any
// metric that could not be read, and appends exactly one point per metric
// to the history registry.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/datasource"
	"github.com/opscart/capacity-forecaster/pkg/history"
	"github.com/opscart/capacity-forecaster/pkg/metrics"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

// DefaultInterval is the pause between the end of one round and the start
// of the next.
const DefaultInterval = 5 * time.Minute

// Generator produces fallback readings. *synthetic.Generator satisfies it.
type Generator interface {
	Reading(metric models.Metric, at time.Time, previous float64, hasPrevious bool) (float64, error)
}

type Collector struct {
	source    datasource.MetricSource
	generator Generator
	registry  *history.Registry

	interval      time.Duration
	sourceTimeout time.Duration
	log           *zap.Logger
	now           func() time.Time

	// roundMu serialises rounds from the loop and from CollectOnce
	roundMu sync.Mutex
	// lifecycle serialises Start and Stop
	lifecycle sync.Mutex

	mu        sync.RWMutex
	state     models.CollectorState
	running   bool
	connected bool
	lastRound *Round
	stopCh    chan struct{}
	doneCh    chan struct{}
}

type Option func(*Collector)

func WithInterval(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithSourceTimeout bounds each call to the metric source. Zero means the
// caller's context is the only limit.
func WithSourceTimeout(d time.Duration) Option {
	return func(c *Collector) {
		c.sourceTimeout = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for point timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

func New(source datasource.MetricSource, generator Generator, registry *history.Registry, opts ...Option) *Collector {
	c := &Collector{
		source:    source,
		generator: generator,
		registry:  registry,
		interval:  DefaultInterval,
		log:       zap.NewNop(),
		now:       time.Now,
		state:     models.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the background loop. The first round runs immediately.
// Calling Start on a running collector does nothing.
func (c *Collector) Start() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	stop, done := c.stopCh, c.doneCh
	c.mu.Unlock()

	c.log.Info("collector starting",
		zap.String("source", c.source.Name()),
		zap.Duration("interval", c.interval))

	go c.loop(stop, done)
}

// Stop ends the loop after any in-flight round has been committed and
// returns once the loop goroutine has exited. The collector can be
// started again afterwards.
func (c *Collector) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.RLock()
	running, stop, done := c.running, c.stopCh, c.doneCh
	c.mu.RUnlock()
	if !running {
		return
	}

	close(stop)
	<-done

	c.mu.Lock()
	c.running = false
	c.connected = false
	c.state = models.StateIdle
	c.mu.Unlock()

	c.log.Info("collector stopped")
}

func (c *Collector) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Collect(ctx)

	// re-armed after each round, so the interval runs from round end
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			// select picks randomly when both are ready
			select {
			case <-stop:
				return
			default:
			}
			c.Collect(ctx)
			timer.Reset(c.interval)
		}
	}
}

// CollectOnce runs one synchronous round and reports whether at least one
// real reading was appended.
func (c *Collector) CollectOnce(ctx context.Context) bool {
	return c.Collect(ctx).Success()
}

// Collect runs one synchronous round and returns its report. Rounds never
// overlap: a call made while the loop is mid-round waits for it.
func (c *Collector) Collect(ctx context.Context) Round {
	c.roundMu.Lock()
	defer c.roundMu.Unlock()

	started := time.Now()
	round := Round{
		ID:        uuid.NewString(),
		StartedAt: c.now(),
	}
	log := c.log.With(zap.String("round_id", round.ID))

	round.Connected = c.ensureConnected(ctx, log)

	var (
		utilization models.Utilization
		storage     models.StorageUsage
		utilErr     error
		storageErr  error
	)
	if round.Connected {
		utilization, utilErr = c.fetchUtilization(ctx)
		storage, storageErr = c.fetchStorage(ctx)
	} else {
		utilErr = fmt.Errorf("%w: not connected", datasource.ErrSourceUnavailable)
		storageErr = utilErr
	}

	for _, metric := range models.AllMetrics() {
		var value float64
		var annotations *models.Annotations
		err := utilErr

		switch metric {
		case models.MetricCPU:
			value = utilization.CPUPercent
			annotations = &models.Annotations{Hosts: models.IntPtr(utilization.Hosts), Instances: models.IntPtr(utilization.Instances)}
		case models.MetricRAM:
			value = utilization.RAMPercent
			annotations = &models.Annotations{Hosts: models.IntPtr(utilization.Hosts), Instances: models.IntPtr(utilization.Instances)}
		case models.MetricStorage:
			value = storage.TotalGB
			annotations = &models.Annotations{Volumes: models.IntPtr(storage.Volumes)}
			err = storageErr
		}
		if err == nil && !metric.Range().Contains(value) {
			err = fmt.Errorf("reading %v outside valid range for %s", value, metric)
		}

		reading, ok := c.commit(metric, round, value, annotations, err, log)
		if ok {
			round.Readings = append(round.Readings, reading)
		}
	}

	round.Duration = time.Since(started)
	round.DurationMS = round.Duration.Milliseconds()
	metrics.ObserveRound(round.Outcome(), round.Duration)

	c.mu.Lock()
	c.lastRound = &round
	c.mu.Unlock()

	log.Debug("round complete",
		zap.String("outcome", round.Outcome()),
		zap.Duration("duration", round.Duration))
	return round
}

// commit appends one point for metric: the real value when err is nil,
// otherwise a synthetic one.
func (c *Collector) commit(metric models.Metric, round Round, value float64, annotations *models.Annotations, err error, log *zap.Logger) (Reading, bool) {
	point := models.DataPoint{Timestamp: round.StartedAt, Value: value, Source: models.SourceReal}
	reading := Reading{Metric: metric}

	if err == nil {
		annotations.RoundID = round.ID
		point.Annotations = annotations
	} else {
		reading.Error = err.Error()
		metrics.RecordSourceFailure(string(metric))
		if round.Connected {
			log.Warn("falling back to synthetic reading", zap.String("metric", string(metric)), zap.Error(err))
		}

		synthetic, genErr := c.synthesize(metric, round.StartedAt)
		if genErr != nil {
			log.Error("synthetic generation failed", zap.String("metric", string(metric)), zap.Error(genErr))
			return reading, false
		}
		point.Value = synthetic
		point.Source = models.SourceSynthetic
		point.Annotations = &models.Annotations{RoundID: round.ID}
	}

	if appendErr := c.registry.Append(metric, point); appendErr != nil {
		log.Error("append failed", zap.String("metric", string(metric)), zap.Error(appendErr))
		return reading, false
	}

	reading.Value = point.Value
	reading.Source = point.Source
	metrics.RecordPoint(string(metric), string(point.Source), point.Value)
	return reading, true
}

func (c *Collector) synthesize(metric models.Metric, at time.Time) (float64, error) {
	previous, hasPrevious, err := c.registry.Latest(metric)
	if err != nil {
		return 0, err
	}
	return c.generator.Reading(metric, at, previous.Value, hasPrevious)
}

// ensureConnected moves idle -> connecting -> collecting on success and
// back to idle on failure. Once connected the state sticks until Stop.
func (c *Collector) ensureConnected(ctx context.Context, log *zap.Logger) bool {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return true
	}
	c.state = models.StateConnecting
	c.mu.Unlock()

	ctx, cancel := c.sourceContext(ctx)
	err := c.source.Connect(ctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = models.StateIdle
		log.Warn("metric source unreachable, using synthetic data",
			zap.String("source", c.source.Name()), zap.Error(err))
		return false
	}
	c.connected = true
	c.state = models.StateCollecting
	log.Info("connected to metric source", zap.String("source", c.source.Name()))
	return true
}

func (c *Collector) fetchUtilization(ctx context.Context) (models.Utilization, error) {
	ctx, cancel := c.sourceContext(ctx)
	defer cancel()
	return c.source.FetchUtilization(ctx)
}

func (c *Collector) fetchStorage(ctx context.Context) (models.StorageUsage, error) {
	ctx, cancel := c.sourceContext(ctx)
	defer cancel()
	return c.source.FetchStorage(ctx)
}

func (c *Collector) sourceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.sourceTimeout > 0 {
		return context.WithTimeout(ctx, c.sourceTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Collector) State() models.CollectorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Collector) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Collector) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastRound returns the report of the most recent round, if any
func (c *Collector) LastRound() (Round, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastRound == nil {
		return Round{}, false
	}
	return *c.lastRound, true
}

// SourceName names the configured metric source
func (c *Collector) SourceName() string {
	return c.source.Name()
}

// Interval is the pause between rounds
func (c *Collector) Interval() time.Duration {
	return c.interval
}
