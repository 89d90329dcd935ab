package port

import (
	"context"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
)

// IssueSource внешний трекер задач
type IssueSource interface {
	// FetchIssues возвращает все задачи репозитория, включая pull request'ы
	FetchIssues(ctx context.Context, repository string) ([]entity.Issue, error)
}

// IssueProvider кэширующий доступ к задачам настроенного репозитория.
// Никогда не возвращает ошибку: при сбое отдается последний удачный результат или пустой список
type IssueProvider interface {
	GetIssues(ctx context.Context) []entity.Issue
	Repository() string
}
