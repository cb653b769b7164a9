package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/opscart/capacity-forecaster/pkg/models"
)

const cpuSampleWindow = time.Second

// HostSource samples the machine the forecaster runs on. Storage is the
// used space of a single filesystem.
type HostSource struct {
	diskPath string

	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
}

func NewHostSource(diskPath string) *HostSource {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSource{
		diskPath:      diskPath,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		diskUsage:     disk.UsageWithContext,
		hostInfo:      host.InfoWithContext,
	}
}

func (h *HostSource) Connect(ctx context.Context) error {
	if _, err := h.virtualMemory(ctx); err != nil {
		return unavailable("read host memory", err)
	}
	return nil
}

func (h *HostSource) FetchUtilization(ctx context.Context) (models.Utilization, error) {
	cpuPercent, err := h.cpuPercent(ctx, cpuSampleWindow, false)
	if err != nil {
		return models.Utilization{}, unavailable("cpu percent", err)
	}
	if len(cpuPercent) == 0 {
		return models.Utilization{}, unavailable("cpu percent", fmt.Errorf("no samples"))
	}

	vmStat, err := h.virtualMemory(ctx)
	if err != nil {
		return models.Utilization{}, unavailable("virtual memory", err)
	}

	u := models.Utilization{
		CPUPercent: cpuPercent[0],
		RAMPercent: vmStat.UsedPercent,
		Hosts:      1,
	}
	if info, err := h.hostInfo(ctx); err == nil {
		u.Instances = int(info.Procs)
	}
	return u, nil
}

func (h *HostSource) FetchStorage(ctx context.Context) (models.StorageUsage, error) {
	usage, err := h.diskUsage(ctx, h.diskPath)
	if err != nil {
		return models.StorageUsage{}, unavailable("disk usage "+h.diskPath, err)
	}

	return models.StorageUsage{
		TotalGB: float64(usage.Used) / bytesPerGB,
		Volumes: 1,
	}, nil
}

func (h *HostSource) Name() string {
	return "host"
}
