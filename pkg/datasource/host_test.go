package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubHost() *HostSource {
	h := NewHostSource("/data")
	h.cpuPercent = func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		return []float64{23.5}, nil
	}
	h.virtualMemory = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 61.2}, nil
	}
	h.diskUsage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, Used: 3 * bytesPerGB}, nil
	}
	h.hostInfo = func(ctx context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{Procs: 212}, nil
	}
	return h
}

func TestHostSource(t *testing.T) {
	h := stubHost()
	ctx := context.Background()

	require.NoError(t, h.Connect(ctx))

	u, err := h.FetchUtilization(ctx)
	require.NoError(t, err)
	assert.Equal(t, 23.5, u.CPUPercent)
	assert.Equal(t, 61.2, u.RAMPercent)
	assert.Equal(t, 1, u.Hosts)
	assert.Equal(t, 212, u.Instances)

	s, err := h.FetchStorage(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, s.TotalGB, 1e-9)
}

func TestHostSourceFailures(t *testing.T) {
	h := stubHost()
	h.cpuPercent = func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		return nil, nil
	}
	h.diskUsage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return nil, errors.New("no such file or directory")
	}

	_, err := h.FetchUtilization(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = h.FetchStorage(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestHostSourceDefaultPath(t *testing.T) {
	assert.Equal(t, "/", NewHostSource("").diskPath)
}
