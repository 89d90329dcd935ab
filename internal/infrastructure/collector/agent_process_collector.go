package collector

import (
	"context"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
)

// AgentProcessCollector находит процессы агентов по подстроке в командной строке.
// Реализует интерфейс port.AgentActivitySource
type AgentProcessCollector struct {
	pattern string
	selfPID int32
}

// NewAgentProcessCollector создает collector; pattern сравнивается без учета регистра
func NewAgentProcessCollector(pattern string) *AgentProcessCollector {
	return &AgentProcessCollector{
		pattern: strings.ToLower(strings.TrimSpace(pattern)),
		selfPID: int32(os.Getpid()),
	}
}

// Activity возвращает найденные процессы агентов. Процессы, завершившиеся во время
// обхода или недоступные по правам, пропускаются
func (c *AgentProcessCollector) Activity(ctx context.Context) ([]dto.AgentActivityDTO, error) {
	agents := make([]dto.AgentActivityDTO, 0)
	if c.pattern == "" {
		return agents, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range procs {
		if p.Pid == c.selfPID {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || !strings.Contains(strings.ToLower(cmdline), c.pattern) {
			continue
		}

		name, _ := p.NameWithContext(ctx)
		statuses, _ := p.StatusWithContext(ctx)
		cpuPercent, _ := p.CPUPercentWithContext(ctx)
		memPercent, _ := p.MemoryPercentWithContext(ctx)
		createdMs, _ := p.CreateTimeWithContext(ctx)

		agents = append(agents, dto.AgentActivityDTO{
			PID:           p.Pid,
			Name:          name,
			Status:        classifyStatus(statuses),
			CPUPercent:    round2(cpuPercent),
			MemoryPercent: memPercent,
			StartedAt:     time.UnixMilli(createdMs).UTC(),
			Cmdline:       truncate(cmdline, 200),
		})
	}

	return agents, nil
}

func classifyStatus(statuses []string) string {
	for _, s := range statuses {
		switch s {
		case process.Zombie:
			return dto.AgentStatusFailed
		case process.Stop, process.Idle, process.Wait:
			return dto.AgentStatusIdle
		}
	}
	return dto.AgentStatusActive
}

// truncate обрезает строку до max байт, не разрывая UTF-8 символ
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
