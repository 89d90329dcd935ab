package dto

import (
	"math"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/service"
)

const dateLayout = "2006-01-02"

// FromProjectReport конвертирует доменный отчет в DTO
func FromProjectReport(report service.ProjectReport) ProjectMetricsDTO {
	c := report.Completion
	out := ProjectMetricsDTO{
		CompletionPercentage: c.Percentage(),
		TotalIssues:          c.Total,
		CompletedIssues:      c.Completed,
		InProgressIssues:     c.InProgress,
		ReadyIssues:          c.Ready,
		BlockedIssues:        c.Blocked,
		Velocity: VelocityDTO{
			IssuesPerDay:        report.Velocity.IssuesPerDay(),
			DailyCounts:         report.Velocity.DailyCounts(),
			WindowDays:          report.Velocity.Days(),
			Trend:               report.Velocity.Trend().String(),
			TotalClosedInPeriod: report.Velocity.Total(),
		},
		ConfidenceLevel: report.Forecast.Confidence(),
		ConfidenceLabel: report.Forecast.ConfidenceLabel(),
		FlaggedIssues:   ToFlaggedIssueDTOs(report.Flags),
		LastUpdated:     report.GeneratedAt.UTC().Truncate(time.Second),
	}

	if date, ok := report.Forecast.EstimatedDate(); ok {
		formatted := date.UTC().Format(dateLayout)
		out.EstimatedCompletionDate = &formatted
	}
	if days, ok := report.Forecast.DaysRemaining(); ok {
		whole := int(math.Floor(days))
		out.DaysRemaining = &whole
	}

	return out
}

// ToFlaggedIssueDTOs конвертирует флаги; пустой вход дает пустой (не nil) слайс
func ToFlaggedIssueDTOs(flags []entity.InterventionFlag) []FlaggedIssueDTO {
	out := make([]FlaggedIssueDTO, 0, len(flags))
	for _, f := range flags {
		out = append(out, FlaggedIssueDTO{
			Number:                 f.Issue.Number,
			Title:                  f.Issue.Title,
			Status:                 f.Status(),
			Priority:               f.Priority.String(),
			FlaggedForIntervention: true,
			FlagPriority:           f.Priority.String(),
			FlagReason:             f.Reason(),
			GitHubURL:              f.Issue.URL,
			CreatedAt:              f.Issue.CreatedAt,
			UpdatedAt:              f.Issue.UpdatedAt,
		})
	}
	return out
}

// ProjectCompletionDTO ответ эндпоинта прогресса проекта
type ProjectCompletionDTO struct {
	Repository string            `json:"repository"`
	Enabled    bool              `json:"enabled"`
	Project    ProjectMetricsDTO `json:"project"`
	Flagged    int               `json:"flagged_count"`
}

// IssueDTO задача в постраничной выдаче
type IssueDTO struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Labels    []string  `json:"labels"`
	Comments  int       `json:"comments"`
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	GitHubURL string    `json:"github_url"`
}

// FromIssue конвертирует задачу в DTO
func FromIssue(issue entity.Issue, flagged bool) IssueDTO {
	labels := issue.Labels
	if labels == nil {
		labels = []string{}
	}
	return IssueDTO{
		Number:    issue.Number,
		Title:     issue.Title,
		Status:    issue.State.String(),
		Labels:    labels,
		Comments:  issue.Comments,
		Flagged:   flagged,
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
		GitHubURL: issue.URL,
	}
}

// IssueListDTO страница задач
type IssueListDTO struct {
	Issues       []IssueDTO    `json:"issues"`
	Total        int           `json:"total"`
	FlaggedCount int           `json:"flagged_count"`
	Pagination   PaginationDTO `json:"pagination"`
}

// PaginationDTO параметры страницы
type PaginationDTO struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// AgentActivityDTO процесс агента на хосте
type AgentActivityDTO struct {
	PID           int32     `json:"pid"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float32   `json:"memory_percent"`
	StartedAt     time.Time `json:"started_at"`
	Cmdline       string    `json:"cmdline,omitempty"`
}

// AgentActivityListDTO список процессов агентов со сводкой
type AgentActivityListDTO struct {
	Agents  []AgentActivityDTO `json:"agents"`
	Summary AgentSummaryDTO    `json:"summary"`
}

// HeartbeatStatusDTO состояние планировщика
type HeartbeatStatusDTO struct {
	Running          bool       `json:"running"`
	SwarmID          string     `json:"swarm_id"`
	MonitorURL       string     `json:"monitor_url"`
	IntervalSeconds  float64    `json:"interval_seconds"`
	GitHubRepo       string     `json:"github_repo"`
	Cycles           int64      `json:"cycles"`
	LastCycleAt      *time.Time `json:"last_cycle_at"`
	LastDelivered    bool       `json:"last_delivered"`
	DeliveryFailures int64      `json:"delivery_failures"`
}

// Статусы процессов агентов
const (
	AgentStatusActive = "active"
	AgentStatusIdle   = "idle"
	AgentStatusFailed = "failed"
)

// SummarizeAgents считает агентов по статусам
func SummarizeAgents(agents []AgentActivityDTO) AgentSummaryDTO {
	summary := AgentSummaryDTO{Total: len(agents)}
	for _, a := range agents {
		switch a.Status {
		case AgentStatusActive:
			summary.Active++
		case AgentStatusFailed:
			summary.Failed++
		default:
			summary.Idle++
		}
	}
	return summary
}
