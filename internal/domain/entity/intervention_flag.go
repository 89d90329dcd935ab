package entity

import (
	"strings"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// Статусы задачи в выдаче флагов
const (
	IssueStatusOpen    = "open"
	IssueStatusBlocked = "blocked"
)

// InterventionFlag отметка о том, что открытая задача требует внимания человека
type InterventionFlag struct {
	Issue    Issue
	Priority valueobject.FlagPriority
	Reasons  []string
}

// Reason возвращает все причины через "; "
func (f InterventionFlag) Reason() string {
	return strings.Join(f.Reasons, "; ")
}

// Status возвращает "blocked", если у задачи есть метка blocked, иначе "open"
func (f InterventionFlag) Status() string {
	if f.Issue.HasLabel("blocked") {
		return IssueStatusBlocked
	}
	return IssueStatusOpen
}
