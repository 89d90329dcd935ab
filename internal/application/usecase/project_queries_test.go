package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

func testEngine() *service.ProjectForecastEngine {
	return service.NewProjectForecastEngine(7, service.DefaultInterventionThresholds())
}

func TestGetProjectCompletionUseCase(t *testing.T) {
	issues := &mockIssueProvider{repo: "acme/widgets", issues: testIssues()}
	uc := NewGetProjectCompletionUseCase(issues, testEngine(), logger.New("error"))
	uc.now = func() time.Time { return fixedNow }

	res := uc.Execute(context.Background())

	if !res.Enabled || res.Repository != "acme/widgets" {
		t.Fatalf("unexpected header %+v", res)
	}
	if res.Project.TotalIssues != 5 || res.Project.CompletedIssues != 2 || res.Project.BlockedIssues != 1 {
		t.Errorf("completion = %+v", res.Project)
	}
	if res.Flagged != 2 {
		t.Errorf("Flagged = %d, want 2", res.Flagged)
	}
}

func TestGetProjectCompletionUseCase_Disabled(t *testing.T) {
	uc := NewGetProjectCompletionUseCase(nil, testEngine(), logger.New("error"))

	res := uc.Execute(context.Background())

	if res.Enabled {
		t.Error("Enabled = true without repository")
	}
	if res.Project.DaysRemaining != nil || res.Project.ConfidenceLevel != 0 {
		t.Errorf("forecast must be unknown: %+v", res.Project)
	}
	if res.Project.FlaggedIssues == nil {
		t.Error("flagged issues must be an empty list, not nil")
	}
}

func TestListIssuesUseCase(t *testing.T) {
	tests := []struct {
		name        string
		query       ListIssuesQuery
		wantNumbers []int
		wantTotal   int
		wantLimit   int
		wantHasMore bool
	}{
		{name: "defaults", query: ListIssuesQuery{}, wantNumbers: []int{1, 2, 3, 4, 5}, wantTotal: 5, wantLimit: 20},
		{name: "open only", query: ListIssuesQuery{Status: "open"}, wantNumbers: []int{3, 4, 5}, wantTotal: 3, wantLimit: 20},
		{name: "closed case insensitive", query: ListIssuesQuery{Status: "CLOSED"}, wantNumbers: []int{1, 2}, wantTotal: 2, wantLimit: 20},
		{name: "flagged", query: ListIssuesQuery{FlaggedOnly: true}, wantNumbers: []int{3, 4}, wantTotal: 2, wantLimit: 20},
		{name: "page", query: ListIssuesQuery{Limit: 2, Offset: 1}, wantNumbers: []int{2, 3}, wantTotal: 5, wantLimit: 2, wantHasMore: true},
		{name: "offset past end", query: ListIssuesQuery{Offset: 10}, wantNumbers: []int{}, wantTotal: 5, wantLimit: 20},
		{name: "last page", query: ListIssuesQuery{Limit: 2, Offset: 3}, wantNumbers: []int{4, 5}, wantTotal: 5, wantLimit: 2},
		{name: "huge offset", query: ListIssuesQuery{Offset: math.MaxInt - 5}, wantNumbers: []int{}, wantTotal: 5, wantLimit: 20},
		{name: "limit capped", query: ListIssuesQuery{Limit: 500}, wantNumbers: []int{1, 2, 3, 4, 5}, wantTotal: 5, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := &mockIssueProvider{repo: "acme/widgets", issues: testIssues()}
			uc := NewListIssuesUseCase(issues, testEngine(), logger.New("error"))
			uc.now = func() time.Time { return fixedNow }

			res, err := uc.Execute(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if res.FlaggedCount != 2 {
				t.Errorf("FlaggedCount = %d, want 2 for the whole project", res.FlaggedCount)
			}
			if res.Pagination.Limit != tt.wantLimit || res.Pagination.HasMore != tt.wantHasMore {
				t.Errorf("Pagination = %+v", res.Pagination)
			}
			if len(res.Issues) != len(tt.wantNumbers) {
				t.Fatalf("got %d issues, want %v", len(res.Issues), tt.wantNumbers)
			}
			for i, n := range tt.wantNumbers {
				if res.Issues[i].Number != n {
					t.Errorf("issue[%d] = %d, want %d", i, res.Issues[i].Number, n)
				}
			}
		})
	}
}

func TestListIssuesUseCase_MarksFlagged(t *testing.T) {
	uc := NewListIssuesUseCase(&mockIssueProvider{repo: "acme/widgets", issues: testIssues()}, testEngine(), logger.New("error"))
	uc.now = func() time.Time { return fixedNow }

	res, err := uc.Execute(context.Background(), ListIssuesQuery{Status: "open"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	flagged := map[int]bool{}
	for _, issue := range res.Issues {
		flagged[issue.Number] = issue.Flagged
	}
	if !flagged[3] || !flagged[4] || flagged[5] {
		t.Errorf("flagged markers = %v", flagged)
	}
}

func TestListIssuesUseCase_InvalidStatus(t *testing.T) {
	uc := NewListIssuesUseCase(nil, testEngine(), logger.New("error"))

	_, err := uc.Execute(context.Background(), ListIssuesQuery{Status: "merged"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestListIssuesUseCase_NoRepository(t *testing.T) {
	provider := &mockIssueProvider{issues: testIssues()}
	uc := NewListIssuesUseCase(provider, testEngine(), logger.New("error"))

	res, err := uc.Execute(context.Background(), ListIssuesQuery{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Total != 0 || len(res.Issues) != 0 || provider.calls != 0 {
		t.Errorf("expected empty list without fetch, got %+v (calls=%d)", res, provider.calls)
	}
}

func TestGetAgentActivityUseCase(t *testing.T) {
	source := &mockAgentSource{agents: []dto.AgentActivityDTO{
		{PID: 10, Name: "agent", Status: dto.AgentStatusActive},
		{PID: 11, Name: "agent", Status: dto.AgentStatusIdle},
	}}
	uc := NewGetAgentActivityUseCase(source, logger.New("error"))

	res, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(res.Agents) != 2 || res.Summary.Active != 1 || res.Summary.Idle != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	source.agents, source.err = nil, errors.New("boom")
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Error("expected error from failing source")
	}

	source.err = nil
	res, err = uc.Execute(context.Background())
	if err != nil || res.Agents == nil {
		t.Errorf("empty activity must be an empty list, got %+v, %v", res, err)
	}
}
