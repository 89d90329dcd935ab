package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/application/usecase"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/delivery"
	wsInfra "github.com/dreschagin/swarm-heartbeat/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/swarm-heartbeat/internal/infrastructure/persistence/jsonl"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/handler"
	"github.com/dreschagin/swarm-heartbeat/internal/interfaces/http/middleware"
	"github.com/dreschagin/swarm-heartbeat/pkg/config"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const testAPIKey = "test-key"

type staticResources struct{}

func (staticResources) Resources(_ context.Context) (dto.ResourceMetricsDTO, error) {
	return dto.ResourceMetricsDTO{CPUPercent: 12.5, MemoryPercent: 40, DiskPercent: 55}, nil
}

type staticHost struct{}

func (staticHost) SystemInfo(_ context.Context) (dto.SystemInfoDTO, error) {
	return dto.SystemInfoDTO{Hostname: "node-1", Platform: "linux", AgentVersion: "test"}, nil
}

type staticAgents struct{}

func (staticAgents) Activity(_ context.Context) ([]dto.AgentActivityDTO, error) {
	return []dto.AgentActivityDTO{
		{PID: 10, Name: "agent-a", Status: dto.AgentStatusActive},
		{PID: 11, Name: "agent-b", Status: dto.AgentStatusIdle},
	}, nil
}

type staticIssues struct {
	repo   string
	issues []entity.Issue
}

func (s staticIssues) GetIssues(_ context.Context) []entity.Issue { return s.issues }
func (s staticIssues) Repository() string                         { return s.repo }

// collectorServer remote collector that accepts every snapshot
type collectorServer struct {
	mu     sync.Mutex
	bodies [][]byte
	apiKey string
}

func (c *collectorServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.apiKey = r.Header.Get("Authorization")
	c.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

type testEnv struct {
	server    *httptest.Server
	cycle     *usecase.RunHeartbeatCycleUseCase
	collector *collectorServer
	hub       *wsInfra.Hub
}

type envOptions struct {
	issues   *staticIssues
	security config.SecurityConfig
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	log := logger.New("error")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := prometheus.NewRegistry()
	telemetry := metrics.New(registry)

	remote := &collectorServer{}
	remoteServer := httptest.NewServer(remote)
	t.Cleanup(remoteServer.Close)

	hub := wsInfra.NewHub(log)
	go hub.Run(ctx)

	engine := service.NewProjectForecastEngine(7, service.DefaultInterventionThresholds())
	var issues port.IssueProvider
	if opts.issues != nil {
		issues = *opts.issues
	}

	collect := usecase.NewCollectMetricsUseCase("node-1", staticResources{}, staticHost{}, staticAgents{}, issues, engine, log)
	journal := jsonl.NewSnapshotLog(t.TempDir(), telemetry, log)
	sender := delivery.NewHTTPDeliveryClient(delivery.Config{
		Endpoint:   remoteServer.URL,
		APIKey:     "collector-key",
		RetryDelay: time.Millisecond,
	}, telemetry, log)
	cycle := usecase.NewRunHeartbeatCycleUseCase(collect, sender, journal, usecase.CycleSinks{Notifier: hub}, telemetry, log)

	security := opts.security
	if security.AllowedOrigins == nil {
		security.AllowedOrigins = []string{"https://dashboard.example.com"}
	}

	router := NewRouter(
		handler.NewHeartbeatAPIHandler("node-1", usecase.NewGetCurrentSnapshotUseCase(cycle, collect, log), nil, log),
		handler.NewProjectAPIHandler(
			usecase.NewGetProjectCompletionUseCase(issues, engine, log),
			usecase.NewListIssuesUseCase(issues, engine, log),
			usecase.NewGetAgentActivityUseCase(staticAgents{}, log),
			log,
		),
		handler.NewSnapshotAPIHandler(usecase.NewReadSnapshotHistoryUseCase(journal, log), log),
		handler.NewWebSocketHandler(hub, middleware.NewOriginPolicy(security.AllowedOrigins), log),
		telemetry,
		registry,
		security,
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	return &testEnv{server: server, cycle: cycle, collector: remote, hub: hub}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) get(t *testing.T, path string, header http.Header) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("GET %s: decode: %v", path, err)
	}
	return resp.StatusCode, body
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}

func TestE2ECycleWithoutGitHubRepository(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	result := env.cycle.Execute(context.Background())
	if !result.Delivered {
		t.Fatal("cycle must be delivered to the collector")
	}

	env.collector.mu.Lock()
	delivered := env.collector.bodies
	gotKey := env.collector.apiKey
	env.collector.mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("collector received %d snapshots, want 1", len(delivered))
	}
	if gotKey != "Bearer collector-key" {
		t.Errorf("collector Authorization = %q", gotKey)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(delivered[0], &wire); err != nil {
		t.Fatalf("delivered body: %v", err)
	}
	if string(wire["github"]) != `{"enabled":false}` {
		t.Errorf("github = %s, want {\"enabled\":false}", wire["github"])
	}

	status, body := env.get(t, "/api/v1/status", nil)
	if status != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, body = %+v", status, body)
	}
	snapshot := decode[dto.MetricsSnapshotDTO](t, body.Data)
	if snapshot.SwarmID != "node-1" || snapshot.Agents.Total != 2 || snapshot.Agents.Active != 1 {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if !snapshot.Timestamp.Equal(result.Snapshot.Timestamp) {
		t.Errorf("status must return the latest cycle snapshot")
	}

	status, body = env.get(t, "/project/completion", nil)
	if status != http.StatusOK {
		t.Fatalf("completion status = %d", status)
	}
	completion := decode[dto.ProjectCompletionDTO](t, body.Data)
	if completion.Enabled || completion.Project.TotalIssues != 0 {
		t.Errorf("completion = %+v, want disabled empty report", completion)
	}

	date := result.Snapshot.Timestamp.Format("2006-01-02")
	status, body = env.get(t, "/api/v1/snapshots?date="+date, nil)
	if status != http.StatusOK {
		t.Fatalf("snapshots status = %d (%s)", status, body.Error)
	}
	history := decode[dto.SnapshotHistoryDTO](t, body.Data)
	if history.Count != 1 || len(history.Snapshots) != 1 {
		t.Errorf("history = %+v, want one persisted snapshot", history)
	}

	status, _ = env.get(t, "/api/v1/snapshots?date=2001-01-01", nil)
	if status != http.StatusNotFound {
		t.Errorf("missing day status = %d, want 404", status)
	}
}

func TestE2EIssues(t *testing.T) {
	created := time.Now().UTC().Add(-72 * time.Hour)
	closed := created.Add(time.Hour)
	env := newTestEnv(t, envOptions{issues: &staticIssues{
		repo: "acme/widgets",
		issues: []entity.Issue{
			{Number: 1, Title: "ship it", State: valueobject.IssueOpen, Labels: []string{"critical"}, CreatedAt: created, UpdatedAt: created},
			{Number: 2, Title: "docs", State: valueobject.IssueOpen, CreatedAt: created, UpdatedAt: time.Now().UTC()},
			{Number: 3, Title: "done", State: valueobject.IssueClosed, CreatedAt: created, UpdatedAt: closed, ClosedAt: &closed},
		},
	}})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantTotal  int
		wantIssues int
	}{
		{name: "all", path: "/api/v1/project/issues", wantStatus: http.StatusOK, wantTotal: 3, wantIssues: 3},
		{name: "open", path: "/api/v1/project/issues?status=open", wantStatus: http.StatusOK, wantTotal: 2, wantIssues: 2},
		{name: "flagged", path: "/project/issues?flagged=true", wantStatus: http.StatusOK, wantTotal: 1, wantIssues: 1},
		{name: "paged", path: "/api/v1/project/issues?limit=1&offset=1", wantStatus: http.StatusOK, wantTotal: 3, wantIssues: 1},
		{name: "invalid status", path: "/api/v1/project/issues?status=merged", wantStatus: http.StatusBadRequest},
		{name: "invalid limit", path: "/api/v1/project/issues?limit=ten", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.get(t, tt.path, nil)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", status, tt.wantStatus, body.Error)
			}
			if status != http.StatusOK {
				if body.Success || body.Error == "" {
					t.Errorf("error envelope = %+v", body)
				}
				return
			}
			list := decode[dto.IssueListDTO](t, body.Data)
			if list.Total != tt.wantTotal || len(list.Issues) != tt.wantIssues {
				t.Errorf("total=%d issues=%d, want %d/%d", list.Total, len(list.Issues), tt.wantTotal, tt.wantIssues)
			}
			if list.FlaggedCount != 1 {
				t.Errorf("flagged_count = %d, want 1", list.FlaggedCount)
			}
		})
	}

	status, body := env.get(t, "/api/v1/project/completion", nil)
	if status != http.StatusOK {
		t.Fatalf("completion status = %d", status)
	}
	completion := decode[dto.ProjectCompletionDTO](t, body.Data)
	if !completion.Enabled || completion.Repository != "acme/widgets" || completion.Project.CompletedIssues != 1 {
		t.Errorf("completion = %+v", completion)
	}
}

func TestE2EAuth(t *testing.T) {
	env := newTestEnv(t, envOptions{security: config.SecurityConfig{AuthEnabled: true, APIKey: testAPIKey}})

	status, body := env.get(t, "/health", nil)
	if status != http.StatusOK || !body.Success {
		t.Fatalf("health must not require a key: %d", status)
	}
	health := decode[handler.HealthDTO](t, body.Data)
	if health.Status != "healthy" || health.SwarmID != "node-1" {
		t.Errorf("health = %+v", health)
	}

	status, body = env.get(t, "/api/v1/heartbeat", nil)
	if status != http.StatusUnauthorized || body.Success {
		t.Errorf("without key status = %d, want 401", status)
	}
	status, _ = env.get(t, "/api/v1/heartbeat", http.Header{"X-Api-Key": {"wrong"}})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", status)
	}

	accepted := []struct {
		name   string
		path   string
		header http.Header
	}{
		{"header", "/api/v1/heartbeat", http.Header{"X-Api-Key": {testAPIKey}}},
		{"bearer", "/api/v1/heartbeat", http.Header{"Authorization": {"Bearer " + testAPIKey}}},
		{"query", "/api/v1/heartbeat?api_key=" + testAPIKey, nil},
	}
	for _, tt := range accepted {
		status, body := env.get(t, tt.path, tt.header)
		if status != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", tt.name, status)
			continue
		}
		hb := decode[dto.HeartbeatStatusDTO](t, body.Data)
		if hb.SwarmID != "node-1" || hb.Running {
			t.Errorf("%s: heartbeat = %+v", tt.name, hb)
		}
	}
}

func TestE2EUnknownAPIRoute(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	status, body := env.get(t, "/api/v1/nope", nil)
	if status != http.StatusNotFound || body.Success || body.Error == "" {
		t.Errorf("status = %d, body = %+v", status, body)
	}
}

func TestE2ECORS(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	preflight := func(origin string) *http.Response {
		req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/v1/status", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("preflight: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	allowed := preflight("https://dashboard.example.com")
	if allowed.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", allowed.StatusCode)
	}
	if got := allowed.Header.Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	denied := preflight("https://evil.example.com")
	if got := denied.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin got Allow-Origin %q", got)
	}
}

func TestE2ERateLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{security: config.SecurityConfig{RateLimitRPS: 0.001, RateLimitBurst: 2}})

	for i := 0; i < 2; i++ {
		if status, _ := env.get(t, "/health", nil); status != http.StatusOK {
			t.Fatalf("request %d status = %d", i, status)
		}
	}
	status, body := env.get(t, "/health", nil)
	if status != http.StatusTooManyRequests || body.Success {
		t.Errorf("status = %d, want 429", status)
	}
}

func TestE2EWebSocketStream(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.cycle.Execute(context.Background())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsInfra.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != wsInfra.MessageTypeSnapshot || msg.Data == nil || msg.Data.SwarmID != "node-1" {
		t.Errorf("message = %+v", msg)
	}
}

func TestE2EMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.cycle.Execute(context.Background())

	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`heartbeat_cycles_total{delivered="true"} 1`,
		`heartbeat_delivery_attempts_total{outcome="success"} 1`,
		`heartbeat_snapshot_writes_total{status="ok"} 1`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("/metrics missing %s", want)
		}
	}
}
