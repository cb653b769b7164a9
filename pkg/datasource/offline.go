package datasource

import (
	"context"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

// OfflineSource never answers, so every reading comes from the synthetic
// generator. Used for demos and air-gapped runs.
type OfflineSource struct{}

func NewOfflineSource() *OfflineSource {
	return &OfflineSource{}
}

func (o *OfflineSource) Connect(ctx context.Context) error {
	return unavailable("connect", errOffline)
}

func (o *OfflineSource) FetchUtilization(ctx context.Context) (models.Utilization, error) {
	return models.Utilization{}, unavailable("utilization", errOffline)
}

func (o *OfflineSource) FetchStorage(ctx context.Context) (models.StorageUsage, error) {
	return models.StorageUsage{}, unavailable("storage", errOffline)
}

func (o *OfflineSource) Name() string {
	return "offline"
}
