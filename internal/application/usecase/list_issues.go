package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const (
	DefaultIssuesLimit = 20
	MaxIssuesLimit     = 100
)

// ListIssuesQuery параметры выборки задач
type ListIssuesQuery struct {
	Status      string
	FlaggedOnly bool
	Limit       int
	Offset      int
}

// ListIssuesUseCase постраничный список задач с фильтрами
type ListIssuesUseCase struct {
	issues port.IssueProvider
	engine *service.ProjectForecastEngine
	now    func() time.Time
	logger *logger.Logger
}

// NewListIssuesUseCase создает новый use case. issues может быть nil
func NewListIssuesUseCase(
	issues port.IssueProvider,
	engine *service.ProjectForecastEngine,
	logger *logger.Logger,
) *ListIssuesUseCase {
	return &ListIssuesUseCase{
		issues: issues,
		engine: engine,
		now:    time.Now,
		logger: logger,
	}
}

// Execute выполняет выборку. flagged_count считается по всем задачам проекта, а не по странице
func (uc *ListIssuesUseCase) Execute(ctx context.Context, query ListIssuesQuery) (dto.IssueListDTO, error) {
	query, err := normalizeIssuesQuery(query)
	if err != nil {
		return dto.IssueListDTO{}, err
	}

	var all []entity.Issue
	if uc.issues != nil && uc.issues.Repository() != "" {
		all = uc.issues.GetIssues(ctx)
	}

	flags := uc.engine.Flag(all, uc.now().UTC())
	flagged := make(map[int]bool, len(flags))
	for _, f := range flags {
		flagged[f.Issue.Number] = true
	}

	filtered := make([]entity.Issue, 0, len(all))
	for _, issue := range all {
		if query.Status != "" && issue.State.String() != query.Status {
			continue
		}
		if query.FlaggedOnly && !flagged[issue.Number] {
			continue
		}
		filtered = append(filtered, issue)
	}

	total := len(filtered)
	start := min(query.Offset, total)
	end := min(start+query.Limit, total)

	page := make([]dto.IssueDTO, 0, end-start)
	for _, issue := range filtered[start:end] {
		page = append(page, dto.FromIssue(issue, flagged[issue.Number]))
	}

	return dto.IssueListDTO{
		Issues:       page,
		Total:        total,
		FlaggedCount: len(flags),
		Pagination: dto.PaginationDTO{
			Limit:   query.Limit,
			Offset:  query.Offset,
			HasMore: end < total,
		},
	}, nil
}

func normalizeIssuesQuery(query ListIssuesQuery) (ListIssuesQuery, error) {
	if query.Status != "" {
		state, err := valueobject.ParseIssueState(query.Status)
		if err != nil {
			return query, fmt.Errorf("%w: status must be open or closed", ErrInvalidQuery)
		}
		query.Status = state.String()
	}
	if query.Limit <= 0 {
		query.Limit = DefaultIssuesLimit
	}
	if query.Limit > MaxIssuesLimit {
		query.Limit = MaxIssuesLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return query, nil
}
