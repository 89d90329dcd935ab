package valueobject

import (
	"fmt"
	"strings"
)

// IssueState состояние задачи во внешнем трекере
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// ParseIssueState разбирает состояние без учета регистра
func ParseIssueState(raw string) (IssueState, error) {
	switch IssueState(strings.ToLower(strings.TrimSpace(raw))) {
	case IssueOpen:
		return IssueOpen, nil
	case IssueClosed:
		return IssueClosed, nil
	default:
		return "", fmt.Errorf("unknown issue state %q", raw)
	}
}

func (s IssueState) String() string {
	return string(s)
}
