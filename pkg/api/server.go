// Package api serves the collected history, forecasts and alerts over a
// small JSON HTTP interface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/alerting"
	"github.com/opscart/capacity-forecaster/pkg/collector"
	"github.com/opscart/capacity-forecaster/pkg/forecast"
	"github.com/opscart/capacity-forecaster/pkg/history"
	"github.com/opscart/capacity-forecaster/pkg/logger"
	"github.com/opscart/capacity-forecaster/pkg/models"
)

const serviceName = "capacity-forecaster"

// Collector is the part of *collector.Collector the handlers use
type Collector interface {
	Collect(ctx context.Context) collector.Round
	State() models.CollectorState
	Running() bool
	Connected() bool
	LastRound() (collector.Round, bool)
	SourceName() string
}

// Options tune the handlers
type Options struct {
	Version        string
	HistoryWindow  int            // points fed to the forecasting engine
	DefaultHorizon int            // steps when ?hours is absent
	DefaultModel   forecast.Model // for cpu and ram when ?model is absent
	Thresholds     alerting.Thresholds
	CORSOrigins    []string

	// Rand and Now default to math/rand/v2 and time.Now
	Rand forecast.RandSource
	Now  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = 168
	}
	if o.DefaultHorizon <= 0 {
		o.DefaultHorizon = 24
	}
	if o.DefaultModel == "" {
		o.DefaultModel = forecast.ModelDiurnal
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	if o.Rand == nil {
		o.Rand = forecast.DefaultRand()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Server struct {
	registry  *history.Registry
	collector Collector
	opts      Options
	log       *logger.Logger
}

func NewServer(registry *history.Registry, c Collector, opts Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		registry:  registry,
		collector: c,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// Router builds the routed handler wrapped in CORS and middleware
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(s.requestIDMiddleware, s.loggingMiddleware, s.recoveryMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/metrics/current", s.handleCurrent).Methods(http.MethodGet)
	api.HandleFunc("/metrics/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/metrics/{metric}/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/forecast/{metric}", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/debug/collect-now", s.handleCollectNow).Methods(http.MethodPost)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
	})
	return c.Handler(router)
}

// NewHTTPServer wraps the router with the timeouts used in production
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // collect-now waits for a full round
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), s.log)
}
