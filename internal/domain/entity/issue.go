package entity

import (
	"strings"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// Issue задача из внешнего трекера. Запись только для чтения:
// источник создает ее один раз, дальше она не меняется
type Issue struct {
	Number        int                    `json:"number"`
	Title         string                 `json:"title"`
	State         valueobject.IssueState `json:"state"`
	Labels        []string               `json:"labels"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	ClosedAt      *time.Time             `json:"closed_at,omitempty"`
	Comments      int                    `json:"comments"`
	URL           string                 `json:"html_url"`
	IsPullRequest bool                   `json:"is_pull_request,omitempty"`
}

// IsOpen сообщает, открыта ли задача
func (i Issue) IsOpen() bool {
	return i.State == valueobject.IssueOpen
}

// IsClosed сообщает, закрыта ли задача
func (i Issue) IsClosed() bool {
	return i.State == valueobject.IssueClosed
}

// HasLabel проверяет наличие метки без учета регистра
func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(strings.TrimSpace(l), label) {
			return true
		}
	}
	return false
}

// HasAnyLabel проверяет пересечение меток задачи с набором (без учета регистра)
func (i Issue) HasAnyLabel(set LabelSet) bool {
	for _, l := range i.Labels {
		if set.Contains(l) {
			return true
		}
	}
	return false
}

// LabelSet набор меток в нижнем регистре
type LabelSet map[string]struct{}

// NewLabelSet создает набор меток
func NewLabelSet(labels ...string) LabelSet {
	set := make(LabelSet, len(labels))
	for _, l := range labels {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return set
}

// Contains проверяет принадлежность метки набору без учета регистра
func (s LabelSet) Contains(label string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// Стандартные наборы меток
var (
	InProgressLabels = NewLabelSet("in progress", "in-progress", "wip")
	BlockedLabels    = NewLabelSet("blocked", "waiting", "on-hold")
	CriticalLabels   = NewLabelSet("critical", "urgent", "p0", "p1")
)
