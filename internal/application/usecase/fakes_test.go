package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type mockResourceProbe struct {
	res   dto.ResourceMetricsDTO
	err   error
	panic bool
}

func (m *mockResourceProbe) Resources(_ context.Context) (dto.ResourceMetricsDTO, error) {
	if m.panic {
		panic("probe exploded")
	}
	return m.res, m.err
}

type mockHostProbe struct {
	info dto.SystemInfoDTO
	err  error
}

func (m *mockHostProbe) SystemInfo(_ context.Context) (dto.SystemInfoDTO, error) {
	return m.info, m.err
}

type mockAgentSource struct {
	agents []dto.AgentActivityDTO
	err    error
}

func (m *mockAgentSource) Activity(_ context.Context) ([]dto.AgentActivityDTO, error) {
	return m.agents, m.err
}

type mockIssueProvider struct {
	repo   string
	issues []entity.Issue
	calls  int
	mu     sync.Mutex
}

func (m *mockIssueProvider) GetIssues(_ context.Context) []entity.Issue {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.issues
}

func (m *mockIssueProvider) Repository() string {
	return m.repo
}

type mockDelivery struct {
	ok    bool
	sent  []*dto.MetricsSnapshotDTO
	order *[]string
}

func (m *mockDelivery) Send(_ context.Context, snapshot *dto.MetricsSnapshotDTO) bool {
	m.sent = append(m.sent, snapshot)
	if m.order != nil {
		*m.order = append(*m.order, "deliver")
	}
	return m.ok
}

type mockSnapshotLog struct {
	appended []*dto.MetricsSnapshotDTO
	order    *[]string
	days     map[string][]dto.MetricsSnapshotDTO
	files    []port.SnapshotLogFile
	contents map[string][]byte
	readErr  error
}

func (m *mockSnapshotLog) Append(snapshot *dto.MetricsSnapshotDTO) {
	m.appended = append(m.appended, snapshot)
	if m.order != nil {
		*m.order = append(*m.order, "persist")
	}
}

func (m *mockSnapshotLog) ReadDay(day time.Time, limit int) ([]dto.MetricsSnapshotDTO, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	snaps, ok := m.days[day.Format("2006-01-02")]
	if !ok {
		return nil, port.ErrSnapshotsNotFound
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}
	return snaps, nil
}

func (m *mockSnapshotLog) Files() ([]port.SnapshotLogFile, error) {
	return m.files, nil
}

func (m *mockSnapshotLog) ReadFile(file port.SnapshotLogFile) ([]byte, error) {
	data, ok := m.contents[file.Path]
	if !ok {
		return nil, errors.New("missing file")
	}
	return data, nil
}

type mockNotifier struct {
	broadcasts int
}

func (m *mockNotifier) Broadcast(_ *dto.MetricsSnapshotDTO) { m.broadcasts++ }
func (m *mockNotifier) ClientCount() int                    { return 1 }

type mockEvents struct {
	published int
	err       error
}

func (m *mockEvents) PublishSnapshot(_ context.Context, _ *dto.MetricsSnapshotDTO) error {
	m.published++
	return m.err
}

func (m *mockEvents) Close() error { return nil }

type mockMetricsPublisher struct {
	batches [][]*entity.Metric
}

func (m *mockMetricsPublisher) PublishBatch(_ context.Context, metrics []*entity.Metric) error {
	m.batches = append(m.batches, metrics)
	return nil
}

func (m *mockMetricsPublisher) Flush(_ context.Context) error { return nil }

type mockArchiveStorage struct {
	existing map[string]bool
	put      map[string][]byte
	putErr   error
}

func (m *mockArchiveStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.put == nil {
		m.put = map[string][]byte{}
	}
	m.put[key] = body
	return nil
}

func (m *mockArchiveStorage) Exists(_ context.Context, key string) (bool, error) {
	return m.existing[key], nil
}

func testIssues() []entity.Issue {
	day := 24 * time.Hour
	closed := func(ago time.Duration) *time.Time {
		t := fixedNow.Add(-ago)
		return &t
	}
	old := fixedNow.Add(-30 * day)
	return []entity.Issue{
		{Number: 1, Title: "done", State: valueobject.IssueClosed, CreatedAt: old, UpdatedAt: old, ClosedAt: closed(2 * day)},
		{Number: 2, Title: "done too", State: valueobject.IssueClosed, CreatedAt: old, UpdatedAt: old, ClosedAt: closed(5 * day)},
		{Number: 3, Title: "stuck", State: valueobject.IssueOpen, Labels: []string{"blocked"}, CreatedAt: old, UpdatedAt: fixedNow.Add(-48 * time.Hour)},
		{Number: 4, Title: "urgent fix", State: valueobject.IssueOpen, Labels: []string{"P0"}, CreatedAt: old, UpdatedAt: fixedNow},
		{Number: 5, Title: "plain", State: valueobject.IssueOpen, CreatedAt: old, UpdatedAt: fixedNow},
	}
}
