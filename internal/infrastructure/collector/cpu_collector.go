package collector

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUCollector измеряет загрузку CPU
type CPUCollector struct {
	sampleInterval time.Duration
}

// NewCPUCollector создает CPU collector; sampleInterval задает окно измерения
func NewCPUCollector(sampleInterval time.Duration) *CPUCollector {
	if sampleInterval <= 0 {
		sampleInterval = time.Second
	}
	return &CPUCollector{sampleInterval: sampleInterval}
}

// Collect возвращает общий процент загрузки CPU
func (c *CPUCollector) Collect(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, c.sampleInterval, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, errors.New("cpu: no samples")
	}
	return round2(percentages[0]), nil
}
