package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryUsage использование оперативной памяти
type MemoryUsage struct {
	Percent float64
	TotalGB float64
	UsedGB  float64
}

// MemoryCollector собирает метрики памяти
type MemoryCollector struct{}

// NewMemoryCollector создает новый Memory collector
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Collect собирает Memory метрики
func (c *MemoryCollector) Collect(ctx context.Context) (MemoryUsage, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryUsage{}, err
	}

	return MemoryUsage{
		Percent: round2(vmStat.UsedPercent),
		TotalGB: toGB(vmStat.Total),
		UsedGB:  toGB(vmStat.Used),
	}, nil
}
