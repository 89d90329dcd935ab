package valueobject

import "math"

// CompletionMetrics агрегированные счетчики прогресса проекта.
// Ready может быть отрицательным, если наборы меток пересекаются
type CompletionMetrics struct {
	Total      int
	Completed  int
	InProgress int
	Ready      int
	Blocked    int
}

// Remaining возвращает число незакрытых задач
func (c CompletionMetrics) Remaining() int {
	return c.Total - c.Completed
}

// Percentage возвращает процент закрытых задач, округленный до сотых
func (c CompletionMetrics) Percentage() float64 {
	if c.Total == 0 {
		return 0
	}
	return Round2(float64(c.Completed) / float64(c.Total) * 100)
}

// Round2 округляет до двух знаков после запятой
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
