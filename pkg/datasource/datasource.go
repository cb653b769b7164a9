// Package datasource reads current infrastructure utilization from a
// monitoring backend. A failed read is reported as ErrSourceUnavailable;
// callers decide how to degrade.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// ErrSourceUnavailable wraps every transport or backend failure
var ErrSourceUnavailable = errors.New("metric source unavailable")

var errOffline = errors.New("offline mode")

// MetricSource is the contract the collector depends on
type MetricSource interface {
	// Connect establishes or verifies contact with the backend
	Connect(ctx context.Context) error
	FetchUtilization(ctx context.Context) (models.Utilization, error)
	FetchStorage(ctx context.Context) (models.StorageUsage, error)
	Name() string
}

// Kind selects a MetricSource implementation
type Kind string

const (
	KindKubernetes Kind = "kubernetes"
	KindPrometheus Kind = "prometheus"
	KindHost       Kind = "host"
	KindOffline    Kind = "offline"
)

// Kinds lists every supported source kind
func Kinds() []Kind {
	return []Kind{KindKubernetes, KindPrometheus, KindHost, KindOffline}
}

// Config carries the settings for every source kind
type Config struct {
	Kind          Kind
	PrometheusURL string
	Queries       PrometheusQueries
	Kubeconfig    string
	DiskPath      string
	Timeout       time.Duration // per request for HTTP backed sources
}

// New builds the source selected by cfg.Kind
func New(cfg Config, log *zap.Logger) (MetricSource, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch Kind(strings.ToLower(string(cfg.Kind))) {
	case KindPrometheus:
		return NewPrometheusSource(cfg.PrometheusURL, cfg.Queries, cfg.Timeout, log)
	case KindKubernetes:
		return NewKubernetesSourceFromKubeconfig(cfg.Kubeconfig, cfg.Timeout, log)
	case KindHost:
		return NewHostSource(cfg.DiskPath), nil
	case KindOffline:
		return NewOfflineSource(), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, op, err)
}

const bytesPerGB = 1024 * 1024 * 1024
