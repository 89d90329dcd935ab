package valueobject

// VelocityTrend направление изменения скорости закрытия задач
type VelocityTrend string

const (
	TrendIncreasing VelocityTrend = "increasing"
	TrendStable     VelocityTrend = "stable"
	TrendDecreasing VelocityTrend = "decreasing"
)

func (t VelocityTrend) String() string {
	return string(t)
}

// ClassifyTrend сравнивает закрытия второй половины окна с первой.
// Рост засчитывается строго выше 1.2x, падение строго ниже 0.8x.
// Сравнение ведется в целых числах, чтобы границы были точными.
func ClassifyTrend(firstHalf, secondHalf int) VelocityTrend {
	switch {
	case 5*secondHalf > 6*firstHalf:
		return TrendIncreasing
	case 5*secondHalf < 4*firstHalf:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// Confidence возвращает уверенность прогноза для данного тренда
func (t VelocityTrend) Confidence() float64 {
	switch t {
	case TrendIncreasing:
		return 0.85
	case TrendDecreasing:
		return 0.50
	default:
		return 0.75
	}
}
