package collector

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

// HostCollector собирает сведения о хосте.
// Реализует интерфейс port.HostInfoProbe
type HostCollector struct {
	agentVersion string
}

// NewHostCollector создает HostCollector; agentVersion попадает в снимок как есть
func NewHostCollector(agentVersion string) *HostCollector {
	if agentVersion == "" {
		agentVersion = runtime.Version()
	}
	return &HostCollector{agentVersion: agentVersion}
}

// SystemInfo возвращает имя хоста, платформу и uptime
func (c *HostCollector) SystemInfo(ctx context.Context) (dto.SystemInfoDTO, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return dto.SystemInfoDTO{}, err
	}

	platform := info.Platform
	if platform == "" {
		platform = runtime.GOOS
	}

	return dto.SystemInfoDTO{
		Hostname:        info.Hostname,
		Platform:        platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		AgentVersion:    c.agentVersion,
		UptimeSeconds:   info.Uptime,
	}, nil
}
