package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/delivery"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

type countingCycle struct {
	calls     atomic.Int32
	delivered bool
	panicOn   int32
	block     chan struct{}
}

func (c *countingCycle) Execute(_ context.Context) usecase.CycleResult {
	n := c.calls.Add(1)
	if c.panicOn != 0 && n == c.panicOn {
		panic("cycle exploded")
	}
	if c.block != nil {
		<-c.block
	}
	return usecase.CycleResult{Delivered: c.delivered}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newScheduler(cycle CycleRunner, interval time.Duration) *HeartbeatScheduler {
	return NewHeartbeatScheduler(cycle, Config{
		SwarmID:     "swarm-1",
		MonitorURL:  "http://monitor",
		Interval:    interval,
		StopTimeout: 200 * time.Millisecond,
	}, logger.New("error"))
}

func TestSchedulerRunsFirstCycleImmediately(t *testing.T) {
	cycle := &countingCycle{delivered: true}
	s := newScheduler(cycle, time.Hour)

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return cycle.calls.Load() == 1 })
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
}

func TestSchedulerRepeatsAndReportsStatus(t *testing.T) {
	cycle := &countingCycle{delivered: false}
	s := newScheduler(cycle, 10*time.Millisecond)

	s.Start(context.Background())
	waitFor(t, func() bool { return cycle.calls.Load() >= 3 })
	s.Stop()

	status := s.Status()
	if status.Running {
		t.Error("Running = true after Stop")
	}
	if status.Cycles < 3 || status.DeliveryFailures != status.Cycles {
		t.Errorf("status = %+v", status)
	}
	if status.LastCycleAt == nil || status.LastDelivered {
		t.Errorf("last cycle = %v delivered=%v", status.LastCycleAt, status.LastDelivered)
	}
	if status.SwarmID != "swarm-1" || status.IntervalSeconds != 0.01 {
		t.Errorf("static fields = %+v", status)
	}

	stopped := cycle.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if cycle.calls.Load() != stopped {
		t.Error("cycles continued after Stop")
	}
}

func TestSchedulerStartTwiceIsNoop(t *testing.T) {
	cycle := &countingCycle{}
	s := newScheduler(cycle, time.Hour)

	s.Start(context.Background())
	s.Start(context.Background())
	waitFor(t, func() bool { return cycle.calls.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if cycle.calls.Load() != 1 {
		t.Errorf("calls = %d, want a single loop", cycle.calls.Load())
	}
}

func TestSchedulerStopWhenIdle(t *testing.T) {
	s := newScheduler(&countingCycle{}, time.Hour)
	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true")
	}
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	cycle := &countingCycle{panicOn: 1, delivered: true}
	s := newScheduler(cycle, 10*time.Millisecond)

	s.Start(context.Background())
	waitFor(t, func() bool { return cycle.calls.Load() >= 3 })
	s.Stop()

	if s.Status().Cycles < 2 {
		t.Errorf("cycles after panic = %d", s.Status().Cycles)
	}
}

func TestSchedulerStopIsBounded(t *testing.T) {
	cycle := &countingCycle{block: make(chan struct{})}
	defer close(cycle.block)
	s := newScheduler(cycle, time.Hour)

	s.Start(context.Background())
	waitFor(t, func() bool { return cycle.calls.Load() == 1 })

	started := time.Now()
	s.Stop()
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("Stop() took %v, want bounded by StopTimeout", elapsed)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestSchedulerRestart(t *testing.T) {
	cycle := &countingCycle{}
	s := newScheduler(cycle, time.Hour)

	s.Start(context.Background())
	waitFor(t, func() bool { return cycle.calls.Load() == 1 })
	s.Stop()

	s.Start(context.Background())
	waitFor(t, func() bool { return cycle.calls.Load() == 2 })
	if !s.IsRunning() {
		t.Error("IsRunning() = false after restart")
	}
	s.Stop()
}

func TestSchedulerExitsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newScheduler(&countingCycle{}, time.Hour)

	s.Start(ctx)
	cancel()
	waitFor(t, func() bool { return !s.IsRunning() })
}

type deliveringCycle struct {
	client  *delivery.HTTPDeliveryClient
	started chan struct{}
}

func (c *deliveringCycle) Execute(ctx context.Context) usecase.CycleResult {
	close(c.started)
	return usecase.CycleResult{Delivered: c.client.Send(ctx, &dto.MetricsSnapshotDTO{SwarmID: "swarm-1"})}
}

func TestSchedulerParentCancelKeepsInFlightDelivery(t *testing.T) {
	var completed atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		completed.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cycle := &deliveringCycle{
		client: delivery.NewHTTPDeliveryClient(delivery.Config{
			Endpoint:   server.URL,
			MaxRetries: 1,
			Timeout:    5 * time.Second,
		}, nil, logger.New("error")),
		started: make(chan struct{}),
	}
	s := NewHeartbeatScheduler(cycle, Config{
		SwarmID:     "swarm-1",
		Interval:    time.Hour,
		StopTimeout: 2 * time.Second,
	}, logger.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	<-cycle.started
	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Stop()

	waitFor(t, func() bool { return s.Status().Cycles == 1 })
	if !s.Status().LastDelivered {
		t.Error("cancelling the parent context must not abort the in-flight delivery")
	}
	if completed.Load() != 1 {
		t.Errorf("collector completed %d requests, want 1", completed.Load())
	}
}
