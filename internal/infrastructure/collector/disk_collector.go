package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskUsage использование раздела
type DiskUsage struct {
	Percent float64
	TotalGB float64
	UsedGB  float64
	FreeGB  float64
}

// DiskCollector собирает метрики раздела, на котором лежит журнал агента
type DiskCollector struct {
	path string
}

// NewDiskCollector создает Disk collector для указанного пути ("/" по умолчанию)
func NewDiskCollector(path string) *DiskCollector {
	if path == "" {
		path = "/"
	}
	return &DiskCollector{path: path}
}

// Collect собирает Disk метрики
func (c *DiskCollector) Collect(ctx context.Context) (DiskUsage, error) {
	usage, err := disk.UsageWithContext(ctx, c.path)
	if err != nil {
		return DiskUsage{}, err
	}

	return DiskUsage{
		Percent: round2(usage.UsedPercent),
		TotalGB: toGB(usage.Total),
		UsedGB:  toGB(usage.Used),
		FreeGB:  toGB(usage.Free),
	}, nil
}
