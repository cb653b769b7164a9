package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsKind(t *testing.T) {
	tests := []struct {
		cfg  Config
		name string
	}{
		{Config{Kind: KindOffline}, "offline"},
		{Config{Kind: "HOST", DiskPath: "/"}, "host"},
		{Config{Kind: KindPrometheus, PrometheusURL: "http://localhost:9090"}, "prometheus"},
	}

	for _, tt := range tests {
		src, err := New(tt.cfg, nil)
		require.NoError(t, err, "kind %s", tt.cfg.Kind)
		assert.Equal(t, tt.name, src.Name())
	}

	_, err := New(Config{Kind: "openstack"}, nil)
	assert.Error(t, err)
}

func TestOfflineSourceAlwaysUnavailable(t *testing.T) {
	src := NewOfflineSource()
	ctx := context.Background()

	assert.ErrorIs(t, src.Connect(ctx), ErrSourceUnavailable)

	_, err := src.FetchUtilization(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = src.FetchStorage(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
