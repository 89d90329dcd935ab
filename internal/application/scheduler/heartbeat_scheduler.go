package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const (
	DefaultStopTimeout  = 5 * time.Second
	DefaultCycleTimeout = 2 * time.Minute
)

// CycleRunner выполняет один цикл heartbeat
type CycleRunner interface {
	Execute(ctx context.Context) usecase.CycleResult
}

// Config параметры планировщика
type Config struct {
	SwarmID      string
	MonitorURL   string
	GitHubRepo   string
	Interval     time.Duration
	StopTimeout  time.Duration
	CycleTimeout time.Duration
}

// HeartbeatScheduler повторяет цикл heartbeat в одной фоновой горутине.
// Состояния: Idle -> Running -> Idle
type HeartbeatScheduler struct {
	cycle CycleRunner
	cfg   Config
	log   *logger.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	statsMu          sync.RWMutex
	cycles           int64
	lastCycleAt      time.Time
	lastDelivered    bool
	deliveryFailures int64
}

// NewHeartbeatScheduler создает планировщик в состоянии Idle
func NewHeartbeatScheduler(cycle CycleRunner, cfg Config, log *logger.Logger) *HeartbeatScheduler {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}
	return &HeartbeatScheduler{
		cycle: cycle,
		cfg:   cfg,
		log:   log.With("component", "scheduler"),
	}
}

// Start запускает фоновый цикл; первый цикл выполняется сразу.
// Повторный вызов при работающем планировщике ничего не делает
func (s *HeartbeatScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("Heartbeat scheduler already running")
		return
	}

	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, s.stop, s.done)

	s.log.Info("Heartbeat scheduler started",
		"swarm_id", s.cfg.SwarmID,
		"interval", s.cfg.Interval.String(),
	)
}

// Stop останавливает планировщик и ждет завершения текущего цикла не дольше StopTimeout.
// Текущий цикл не прерывается
func (s *HeartbeatScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.log.Warn("Heartbeat scheduler is not running")
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	close(stop)
	s.mu.Unlock()

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.log.Info("Heartbeat scheduler stopped")
	case <-timer.C:
		s.log.Warn("Heartbeat scheduler did not stop in time", "timeout", s.cfg.StopTimeout.String())
	}
}

// IsRunning сообщает, работает ли планировщик
func (s *HeartbeatScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status возвращает состояние планировщика и итоги последнего цикла
func (s *HeartbeatScheduler) Status() dto.HeartbeatStatusDTO {
	status := dto.HeartbeatStatusDTO{
		Running:         s.IsRunning(),
		SwarmID:         s.cfg.SwarmID,
		MonitorURL:      s.cfg.MonitorURL,
		IntervalSeconds: s.cfg.Interval.Seconds(),
		GitHubRepo:      s.cfg.GitHubRepo,
	}

	s.statsMu.RLock()
	defer s.statsMu.RUnlock()

	status.Cycles = s.cycles
	status.LastDelivered = s.lastDelivered
	status.DeliveryFailures = s.deliveryFailures
	if !s.lastCycleAt.IsZero() {
		last := s.lastCycleAt
		status.LastCycleAt = &last
	}
	return status
}

func (s *HeartbeatScheduler) loop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		// Планировщик мог быть перезапущен, пока этот цикл дорабатывал
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()

	s.runCycle(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			s.log.Info("Heartbeat scheduler context cancelled")
			return
		}
	}
}

func (s *HeartbeatScheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Heartbeat cycle panicked", fmt.Errorf("%v", r))
		}
	}()

	// Отмена родительского контекста не прерывает начатый цикл, только CycleTimeout
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CycleTimeout)
	defer cancel()

	result := s.cycle.Execute(cycleCtx)
	s.record(result)
}

func (s *HeartbeatScheduler) record(result usecase.CycleResult) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.cycles++
	s.lastCycleAt = time.Now().UTC()
	s.lastDelivered = result.Delivered
	if !result.Delivered {
		s.deliveryFailures++
	}
}
