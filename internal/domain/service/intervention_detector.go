package service

import (
	"fmt"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// InterventionThresholds пороги правил вмешательства
type InterventionThresholds struct {
	// BlockedAfterHours сколько часов без обновлений допустимо для заблокированной задачи
	BlockedAfterHours int
	// FailuresThreshold порог "неудачных попыток"; флаг ставится при comments > 2x
	FailuresThreshold int
}

// DefaultInterventionThresholds значения по умолчанию: 24 часа и 3 попытки
func DefaultInterventionThresholds() InterventionThresholds {
	return InterventionThresholds{BlockedAfterHours: 24, FailuresThreshold: 3}
}

// DetectInterventions отбирает открытые задачи, требующие внимания человека.
// Правила применяются независимо, приоритет берется максимальный
func DetectInterventions(
	issues []entity.Issue,
	thresholds InterventionThresholds,
	now time.Time,
) []entity.InterventionFlag {
	flags := make([]entity.InterventionFlag, 0)

	for _, issue := range issues {
		if !issue.IsOpen() {
			continue
		}
		if flag, ok := evaluate(issue, thresholds, now); ok {
			flags = append(flags, flag)
		}
	}

	return flags
}

func evaluate(issue entity.Issue, thresholds InterventionThresholds, now time.Time) (entity.InterventionFlag, bool) {
	flag := entity.InterventionFlag{Issue: issue, Priority: valueobject.PriorityLow}

	// Заблокирована дольше порога
	if issue.HasAnyLabel(entity.BlockedLabels) && !issue.UpdatedAt.IsZero() {
		hours := now.Sub(issue.UpdatedAt).Hours()
		if hours > float64(thresholds.BlockedAfterHours) {
			flag.Reasons = append(flag.Reasons, fmt.Sprintf("Blocked for %d hours", int(hours)))
			flag.Priority = flag.Priority.Max(valueobject.PriorityHigh)
		}
	}

	// Слишком длинное обсуждение
	if issue.Comments > thresholds.FailuresThreshold*2 {
		flag.Reasons = append(flag.Reasons, fmt.Sprintf("High comment count (%d)", issue.Comments))
		flag.Priority = flag.Priority.Max(valueobject.PriorityMedium)
	}

	if issue.HasAnyLabel(entity.CriticalLabels) {
		flag.Reasons = append(flag.Reasons, "High priority issue")
		flag.Priority = flag.Priority.Max(valueobject.PriorityCritical)
	}

	return flag, len(flag.Reasons) > 0
}
