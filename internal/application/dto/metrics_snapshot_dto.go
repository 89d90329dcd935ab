package dto

import (
	"encoding/json"
	"time"
)

// MetricsSnapshotDTO снимок состояния хоста и проекта за один цикл heartbeat.
// Создается один раз и дальше не меняется; передается по указателю только для чтения
type MetricsSnapshotDTO struct {
	SwarmID   string             `json:"swarm_id"`
	Timestamp time.Time          `json:"timestamp"`
	System    SystemInfoDTO      `json:"system"`
	Resources ResourceMetricsDTO `json:"resources"`
	Agents    AgentSummaryDTO    `json:"agents"`
	GitHub    GitHubSummaryDTO   `json:"github"`
	Project   ProjectMetricsDTO  `json:"project"`
}

// SystemInfoDTO сведения о хосте
type SystemInfoDTO struct {
	Hostname        string `json:"hostname"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	AgentVersion    string `json:"agent_version"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
}

// ResourceMetricsDTO загрузка ресурсов хоста на момент сбора
type ResourceMetricsDTO struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	MemoryTotalGB   float64 `json:"memory_total_gb"`
	MemoryUsedGB    float64 `json:"memory_used_gb"`
	DiskPercent     float64 `json:"disk_percent"`
	DiskTotalGB     float64 `json:"disk_total_gb"`
	DiskUsedGB      float64 `json:"disk_used_gb"`
	DiskFreeGB      float64 `json:"disk_free_gb"`
	NetworkSentKBps float64 `json:"network_sent_kbps"`
	NetworkRecvKBps float64 `json:"network_recv_kbps"`
}

// AgentSummaryDTO количество агентов по статусам
type AgentSummaryDTO struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Idle   int `json:"idle"`
	Failed int `json:"failed"`
}

// GitHubSummaryDTO сводка по репозиторию. Без репозитория сериализуется как {"enabled":false}
type GitHubSummaryDTO struct {
	Enabled       bool   `json:"enabled"`
	Repository    string `json:"repository,omitempty"`
	TotalIssues   int    `json:"total_issues"`
	OpenIssues    int    `json:"open_issues"`
	ClosedIssues  int    `json:"closed_issues"`
	FlaggedIssues int    `json:"flagged_issues"`
}

// MarshalJSON скрывает счетчики выключенной интеграции
func (g GitHubSummaryDTO) MarshalJSON() ([]byte, error) {
	if !g.Enabled {
		return []byte(`{"enabled":false}`), nil
	}
	type plain GitHubSummaryDTO
	return json.Marshal(plain(g))
}

// ProjectMetricsDTO прогресс, скорость и прогноз проекта
type ProjectMetricsDTO struct {
	CompletionPercentage    float64           `json:"completion_percentage"`
	TotalIssues             int               `json:"total_issues"`
	CompletedIssues         int               `json:"completed_issues"`
	InProgressIssues        int               `json:"in_progress_issues"`
	ReadyIssues             int               `json:"ready_issues"`
	BlockedIssues           int               `json:"blocked_issues"`
	Velocity                VelocityDTO       `json:"velocity_trend"`
	EstimatedCompletionDate *string           `json:"estimated_completion_date"`
	DaysRemaining           *int              `json:"days_remaining"`
	ConfidenceLevel         float64           `json:"confidence_level"`
	ConfidenceLabel         string            `json:"confidence_label"`
	FlaggedIssues           []FlaggedIssueDTO `json:"flagged_issues"`
	LastUpdated             time.Time         `json:"last_updated"`
}

// VelocityDTO скорость закрытия задач за окно
type VelocityDTO struct {
	IssuesPerDay        float64 `json:"issues_per_day"`
	DailyCounts         []int   `json:"last_7_days"`
	WindowDays          int     `json:"window_days"`
	Trend               string  `json:"trend"`
	TotalClosedInPeriod int     `json:"total_closed_in_period"`
}

// FlaggedIssueDTO задача, требующая вмешательства человека
type FlaggedIssueDTO struct {
	Number                 int       `json:"number"`
	Title                  string    `json:"title"`
	Status                 string    `json:"status"`
	Priority               string    `json:"priority"`
	FlaggedForIntervention bool      `json:"flagged_for_intervention"`
	FlagPriority           string    `json:"flag_priority"`
	FlagReason             string    `json:"flag_reason"`
	GitHubURL              string    `json:"github_url"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// SnapshotHistoryDTO снимки из локального журнала за сутки
type SnapshotHistoryDTO struct {
	Date      string               `json:"date"`
	Count     int                  `json:"count"`
	Snapshots []MetricsSnapshotDTO `json:"snapshots"`
}
