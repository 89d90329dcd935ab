package service

import (
	"errors"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// IssueValidator отбрасывает некорректные записи внешнего трекера (Domain Service)
type IssueValidator struct{}

// NewIssueValidator создает новый IssueValidator
func NewIssueValidator() *IssueValidator {
	return &IssueValidator{}
}

// Validate проверяет одну задачу
func (v *IssueValidator) Validate(issue entity.Issue) error {
	if issue.Number <= 0 {
		return errors.New("issue number must be positive")
	}

	if issue.State != valueobject.IssueOpen && issue.State != valueobject.IssueClosed {
		return errors.New("issue state must be open or closed")
	}

	if issue.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	// Закрытая задача без closed_at не участвует в расчете скорости, но остается валидной
	if issue.ClosedAt != nil && issue.ClosedAt.Before(issue.CreatedAt.Add(-time.Minute)) {
		return errors.New("closed_at cannot precede created_at")
	}

	if issue.Comments < 0 {
		return errors.New("comment count cannot be negative")
	}

	return nil
}

// Filter возвращает только валидные задачи и число отброшенных
func (v *IssueValidator) Filter(issues []entity.Issue) ([]entity.Issue, int) {
	valid := make([]entity.Issue, 0, len(issues))
	for _, issue := range issues {
		if err := v.Validate(issue); err != nil {
			continue
		}
		valid = append(valid, issue)
	}
	return valid, len(issues) - len(valid)
}
