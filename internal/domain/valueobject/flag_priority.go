package valueobject

// FlagPriority приоритет флага вмешательства: low < medium < high < critical
type FlagPriority int

const (
	PriorityLow FlagPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p FlagPriority) String() string {
	switch p {
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "low"
	}
}

// Max возвращает более высокий из двух приоритетов
func (p FlagPriority) Max(other FlagPriority) FlagPriority {
	if other > p {
		return other
	}
	return p
}

// MarshalText сериализует приоритет его именем
func (p FlagPriority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText разбирает имя приоритета; неизвестные значения дают low
func (p *FlagPriority) UnmarshalText(text []byte) error {
	switch string(text) {
	case "medium":
		*p = PriorityMedium
	case "high":
		*p = PriorityHigh
	case "critical":
		*p = PriorityCritical
	default:
		*p = PriorityLow
	}
	return nil
}
