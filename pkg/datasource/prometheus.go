package datasource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// PrometheusQueries are PromQL instant queries. CPU, RAM and Storage are
// required; the count queries only feed annotations and may be empty.
type PrometheusQueries struct {
	CPU       string `mapstructure:"cpu"`
	RAM       string `mapstructure:"ram"`
	Storage   string `mapstructure:"storage"`
	Hosts     string `mapstructure:"hosts"`
	Instances string `mapstructure:"instances"`
	Volumes   string `mapstructure:"volumes"`
}

// DefaultPrometheusQueries target node_exporter and kube-state-metrics
func DefaultPrometheusQueries() PrometheusQueries {
	return PrometheusQueries{
		CPU:       `100 * (1 - avg(rate(node_cpu_seconds_total{mode="idle"}[5m])))`,
		RAM:       `100 * (1 - sum(node_memory_MemAvailable_bytes) / sum(node_memory_MemTotal_bytes))`,
		Storage:   `sum(kube_persistentvolume_capacity_bytes) / 1073741824`,
		Hosts:     `count(node_uname_info)`,
		Instances: `count(kube_pod_status_phase{phase="Running"} == 1)`,
		Volumes:   `count(kube_persistentvolume_capacity_bytes)`,
	}
}

// withDefaults fills empty required queries
func (q PrometheusQueries) withDefaults() PrometheusQueries {
	d := DefaultPrometheusQueries()
	if q.CPU == "" {
		q.CPU = d.CPU
	}
	if q.RAM == "" {
		q.RAM = d.RAM
	}
	if q.Storage == "" {
		q.Storage = d.Storage
	}
	return q
}

type PrometheusSource struct {
	client  v1.API
	url     string
	queries PrometheusQueries
	log     *zap.Logger
}

// NewPrometheusSource builds a client for url. A positive timeout bounds
// every HTTP request, independent of the caller's context.
func NewPrometheusSource(url string, queries PrometheusQueries, timeout time.Duration, log *zap.Logger) (*PrometheusSource, error) {
	if url == "" {
		return nil, fmt.Errorf("prometheus source requires a URL")
	}

	client, err := api.NewClient(api.Config{
		Address: url,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PrometheusSource{
		client:  v1.NewAPI(client),
		url:     url,
		queries: queries.withDefaults(),
		log:     log,
	}, nil
}

// Connect checks reachability with a trivial query
func (p *PrometheusSource) Connect(ctx context.Context) error {
	if _, _, err := p.client.Query(ctx, "up", time.Now()); err != nil {
		return unavailable("connect "+p.url, err)
	}
	return nil
}

func (p *PrometheusSource) FetchUtilization(ctx context.Context) (models.Utilization, error) {
	cpu, err := p.querySingle(ctx, p.queries.CPU)
	if err != nil {
		return models.Utilization{}, unavailable("cpu query", err)
	}

	ram, err := p.querySingle(ctx, p.queries.RAM)
	if err != nil {
		return models.Utilization{}, unavailable("ram query", err)
	}

	return models.Utilization{
		CPUPercent: cpu,
		RAMPercent: ram,
		Hosts:      p.queryCount(ctx, p.queries.Hosts),
		Instances:  p.queryCount(ctx, p.queries.Instances),
	}, nil
}

func (p *PrometheusSource) FetchStorage(ctx context.Context) (models.StorageUsage, error) {
	total, err := p.querySingle(ctx, p.queries.Storage)
	if err != nil {
		return models.StorageUsage{}, unavailable("storage query", err)
	}

	return models.StorageUsage{
		TotalGB: total,
		Volumes: p.queryCount(ctx, p.queries.Volumes),
	}, nil
}

func (p *PrometheusSource) Name() string {
	return "prometheus"
}

// querySingle runs an instant query and sums the resulting vector
func (p *PrometheusSource) querySingle(ctx context.Context, query string) (float64, error) {
	result, warnings, err := p.client.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}

	if len(warnings) > 0 {
		p.log.Warn("prometheus returned warnings", zap.String("query", query), zap.Strings("warnings", warnings))
	}

	switch v := result.(type) {
	case model.Vector:
		if len(v) == 0 {
			return 0, fmt.Errorf("no data for query: %s", query)
		}
		sum := 0.0
		for _, sample := range v {
			sum += float64(sample.Value)
		}
		return sum, nil
	case *model.Scalar:
		return float64(v.Value), nil
	}
	return 0, fmt.Errorf("unexpected result type %s for query: %s", result.Type(), query)
}

// queryCount is best effort; annotations are informational only
func (p *PrometheusSource) queryCount(ctx context.Context, query string) int {
	if query == "" {
		return 0
	}
	v, err := p.querySingle(ctx, query)
	if err != nil {
		p.log.Debug("count query failed", zap.String("query", query), zap.Error(err))
		return 0
	}
	return int(v)
}
