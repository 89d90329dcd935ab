package collector

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

// NetworkRate скорость сетевого обмена в KB/s
type NetworkRate struct {
	SentKBps float64
	RecvKBps float64
}

// NetworkCollector считает скорость между двумя последовательными вызовами.
// Первый вызов возвращает нули
type NetworkCollector struct {
	mu        sync.Mutex
	last      *net.IOCountersStat
	lastCheck time.Time
	now       func() time.Time
}

// NewNetworkCollector создает новый Network collector
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{now: time.Now}
}

// Collect собирает Network метрики
func (c *NetworkCollector) Collect(ctx context.Context) (NetworkRate, error) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetworkRate{}, err
	}
	if len(stats) == 0 {
		return NetworkRate{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := stats[0]
	now := c.now()
	rate := c.rate(current, now)

	c.last = &current
	c.lastCheck = now

	return rate, nil
}

func (c *NetworkCollector) rate(current net.IOCountersStat, now time.Time) NetworkRate {
	if c.last == nil {
		return NetworkRate{}
	}
	seconds := now.Sub(c.lastCheck).Seconds()
	// Счетчики могут сброситься при перезапуске интерфейса
	if seconds <= 0 || current.BytesSent < c.last.BytesSent || current.BytesRecv < c.last.BytesRecv {
		return NetworkRate{}
	}
	return NetworkRate{
		SentKBps: round2(float64(current.BytesSent-c.last.BytesSent) / seconds / 1024),
		RecvKBps: round2(float64(current.BytesRecv-c.last.BytesRecv) / seconds / 1024),
	}
}
