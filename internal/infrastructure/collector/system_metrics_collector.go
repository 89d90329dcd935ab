package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

// SystemMetricsCollector собирает загрузку ресурсов хоста.
// Реализует интерфейс port.ResourceProbe
type SystemMetricsCollector struct {
	cpuCollector     *CPUCollector
	memoryCollector  *MemoryCollector
	diskCollector    *DiskCollector
	networkCollector *NetworkCollector
}

// NewSystemMetricsCollector создает системный collector; diskPath раздел для метрик диска
func NewSystemMetricsCollector(diskPath string) *SystemMetricsCollector {
	return &SystemMetricsCollector{
		cpuCollector:     NewCPUCollector(time.Second),
		memoryCollector:  NewMemoryCollector(),
		diskCollector:    NewDiskCollector(diskPath),
		networkCollector: NewNetworkCollector(),
	}
}

// Resources собирает все метрики параллельно. Частичный сбой не прерывает сбор:
// неудавшиеся поля остаются нулевыми, ошибка возвращается только если не удалось ничего
func (c *SystemMetricsCollector) Resources(ctx context.Context) (dto.ResourceMetricsDTO, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		out  dto.ResourceMetricsDTO
		errs []error
	)

	run := func(name string, collect func() error) {
		defer wg.Done()
		if err := collect(); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			mu.Unlock()
		}
	}

	wg.Add(4)
	go run("cpu", func() error {
		percent, err := c.cpuCollector.Collect(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		out.CPUPercent = percent
		mu.Unlock()
		return nil
	})
	go run("memory", func() error {
		usage, err := c.memoryCollector.Collect(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		out.MemoryPercent, out.MemoryTotalGB, out.MemoryUsedGB = usage.Percent, usage.TotalGB, usage.UsedGB
		mu.Unlock()
		return nil
	})
	go run("disk", func() error {
		usage, err := c.diskCollector.Collect(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		out.DiskPercent, out.DiskTotalGB, out.DiskUsedGB, out.DiskFreeGB = usage.Percent, usage.TotalGB, usage.UsedGB, usage.FreeGB
		mu.Unlock()
		return nil
	})
	go run("network", func() error {
		rate, err := c.networkCollector.Collect(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		out.NetworkSentKBps, out.NetworkRecvKBps = rate.SentKBps, rate.RecvKBps
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if len(errs) == 4 {
		return dto.ResourceMetricsDTO{}, errors.Join(errs...)
	}
	if len(errs) > 0 {
		return out, &PartialError{Err: errors.Join(errs...)}
	}
	return out, nil
}

// PartialError означает, что часть метрик собрать не удалось, но результат пригоден
type PartialError struct {
	Err error
}

func (e *PartialError) Error() string {
	return "partial resource metrics: " + e.Err.Error()
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

func toGB(bytes uint64) float64 {
	return round2(float64(bytes) / 1024 / 1024 / 1024)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
