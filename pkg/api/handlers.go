package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/alerting"
	"github.com/opscart/capacity-forecaster/pkg/analyzer"
	"github.com/opscart/capacity-forecaster/pkg/collector"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/metrics"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

const defaultHistoryLimit = 100

// sourceNone marks a metric with no points yet
const sourceNone = "none"

type HealthResponse struct {
	Status           string                `json:"status"`
	Service          string                `json:"service"`
	Version          string                `json:"version"`
	Timestamp        time.Time             `json:"timestamp"`
	Source           string                `json:"source"`
	Connected        bool                  `json:"connected"`
	CollectorState   models.CollectorState `json:"collector_state"`
	CollectorRunning bool                  `json:"collector_running"`
	MetricsCollected map[models.Metric]int `json:"metrics_collected"`
	LatestCPU        float64               `json:"latest_cpu"`
	LatestRAM        float64               `json:"latest_ram"`
	LastRoundID      string                `json:"last_round_id,omitempty"`
}

type CurrentValue struct {
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
	Source    string     `json:"source"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type ForecastResponse struct {
	Metric          models.Metric  `json:"metric"`
	Unit            string         `json:"unit"`
	Model           forecast.Model `json:"model"`
	Fallback        string         `json:"fallback,omitempty"`
	HistoricalCount int            `json:"historical_count"`
	ForecastHours   int            `json:"forecast_hours"`
	Predictions     []float64      `json:"predictions"`
	CurrentValue    float64        `json:"current_value"`
	DataSource      string         `json:"data_source"`
	Trend           string         `json:"trend"`
	Alerts          []models.Alert `json:"alerts"`
	Timestamp       time.Time      `json:"timestamp"`
}

type AlertsResponse struct {
	Alerts    []models.Alert `json:"alerts"`
	Count     int            `json:"count"`
	Timestamp time.Time      `json:"timestamp"`
}

type CollectResponse struct {
	Success bool            `json:"success"`
	Outcome string          `json:"outcome"`
	Round   collector.Round `json:"round"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:           "healthy",
		Service:          serviceName,
		Version:          s.opts.Version,
		Timestamp:        s.opts.Now(),
		Source:           s.collector.SourceName(),
		Connected:        s.collector.Connected(),
		CollectorState:   s.collector.State(),
		CollectorRunning: s.collector.Running(),
		MetricsCollected: make(map[models.Metric]int),
		LatestCPU:        s.latestValue(models.MetricCPU),
		LatestRAM:        s.latestValue(models.MetricRAM),
	}
	for _, m := range models.AllMetrics() {
		n, _ := s.registry.Len(m)
		resp.MetricsCollected[m] = n
	}
	if round, ok := s.collector.LastRound(); ok {
		resp.LastRoundID = round.ID
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	current := make(map[models.Metric]CurrentValue)
	for _, m := range models.AllMetrics() {
		cv := CurrentValue{Unit: m.Unit(), Source: sourceNone}
		if p, ok, _ := s.registry.Latest(m); ok {
			ts := p.Timestamp
			cv.Value = p.Value
			cv.Source = string(p.Source)
			cv.Timestamp = &ts
		}
		current[m] = cv
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":   current,
		"timestamp": s.opts.Now(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = min(n, s.registry.Capacity())
	}

	selected := models.AllMetrics()
	if raw := r.URL.Query().Get("metric"); raw != "" {
		m, err := models.ParseMetric(raw)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		selected = []models.Metric{m}
	}

	out := make(map[models.Metric][]models.DataPoint, len(selected))
	for _, m := range selected {
		points, err := s.registry.Tail(m, limit)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		out[m] = points
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"limit":   limit,
		"metrics": out,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	metric, ok := s.metricFromPath(w, r)
	if !ok {
		return
	}

	points, err := s.registry.Snapshot(metric)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if len(points) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no history for %s yet", metric))
		return
	}

	summary, err := analyzer.Summarize(points)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"metric":  metric,
		"unit":    metric.Unit(),
		"summary": summary,
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	metric, ok := s.metricFromPath(w, r)
	if !ok {
		return
	}

	hours := s.opts.DefaultHorizon
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > forecast.MaxHorizon {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("hours must be an integer between 1 and %d, got %q", forecast.MaxHorizon, raw))
			return
		}
		hours = n
	}

	model := s.opts.DefaultModel
	if raw := r.URL.Query().Get("model"); raw != "" {
		m, err := forecast.ParseModel(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		model = m
	}

	points, err := s.registry.Tail(metric, s.opts.HistoryWindow)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	model, predictions, err := forecast.ForMetric(metric, model, values, hours, s.opts.Now().Hour(), s.opts.Rand)
	if err != nil {
		s.requestLogger(r).Warn("forecast rejected", zap.String("metric", string(metric)), zap.Error(err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordForecast(string(model), string(metric))

	now := s.opts.Now()
	resp := ForecastResponse{
		Metric:          metric,
		Unit:            metric.Unit(),
		Model:           model,
		Fallback:        forecast.Fallback(model, values),
		HistoricalCount: len(values),
		ForecastHours:   hours,
		Predictions:     predictions,
		DataSource:      sourceNone,
		Trend:           trendLabel(predictions),
		Alerts:          alerting.EvaluateForecast(metric, predictions, s.opts.Thresholds, now),
		Timestamp:       now,
	}
	if n := len(points); n > 0 {
		resp.CurrentValue = points[n-1].Value
		resp.DataSource = string(points[n-1].Source)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	latest := make(map[models.Metric]models.DataPoint)
	for _, m := range models.AllMetrics() {
		if p, ok, _ := s.registry.Latest(m); ok {
			latest[m] = p
		}
	}

	now := s.opts.Now()
	alerts := alerting.Evaluate(latest, s.opts.Thresholds, now)
	respondJSON(w, http.StatusOK, AlertsResponse{
		Alerts:    alerts,
		Count:     len(alerts),
		Timestamp: now,
	})
}

func (s *Server) handleCollectNow(w http.ResponseWriter, r *http.Request) {
	round := s.collector.Collect(r.Context())
	s.requestLogger(r).Info("manual collection round",
		zap.String("round_id", round.ID),
		zap.String("outcome", round.Outcome()))

	respondJSON(w, http.StatusOK, CollectResponse{
		Success: round.Success(),
		Outcome: round.Outcome(),
		Round:   round,
	})
}

func (s *Server) metricFromPath(w http.ResponseWriter, r *http.Request) (models.Metric, bool) {
	metric, err := models.ParseMetric(mux.Vars(r)["metric"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return metric, true
}

func (s *Server) latestValue(metric models.Metric) float64 {
	p, ok, _ := s.registry.Latest(metric)
	if !ok {
		return 0
	}
	return p.Value
}

func trendLabel(predictions []float64) string {
	if len(predictions) < 2 {
		return "stable"
	}
	first, last := predictions[0], predictions[len(predictions)-1]
	switch {
	case last > first:
		return "increasing"
	case last < first:
		return "decreasing"
	}
	return "stable"
}
