package valueobject

import "errors"

// VelocityWindow число закрытых задач по суткам за последние N дней.
// Индекс 0 самый старый день, индекс N-1 последние сутки
type VelocityWindow struct {
	counts []int
}

// NewVelocityWindow создает окно из готовых счетчиков
func NewVelocityWindow(counts []int) (VelocityWindow, error) {
	if len(counts) == 0 {
		return VelocityWindow{}, errors.New("velocity window cannot be empty")
	}
	for _, c := range counts {
		if c < 0 {
			return VelocityWindow{}, errors.New("daily count cannot be negative")
		}
	}
	return VelocityWindow{counts: append([]int(nil), counts...)}, nil
}

// EmptyVelocityWindow возвращает окно из days нулевых счетчиков
func EmptyVelocityWindow(days int) VelocityWindow {
	if days < 1 {
		days = 1
	}
	return VelocityWindow{counts: make([]int, days)}
}

// Days возвращает длину окна
func (w VelocityWindow) Days() int {
	return len(w.counts)
}

// DailyCounts возвращает копию счетчиков
func (w VelocityWindow) DailyCounts() []int {
	return append([]int(nil), w.counts...)
}

// Total возвращает число закрытых задач за окно
func (w VelocityWindow) Total() int {
	total := 0
	for _, c := range w.counts {
		total += c
	}
	return total
}

// IssuesPerDay средняя скорость закрытия, округленная до сотых
func (w VelocityWindow) IssuesPerDay() float64 {
	if len(w.counts) == 0 {
		return 0
	}
	return Round2(float64(w.Total()) / float64(len(w.counts)))
}

// Trend сравнивает первую половину окна со второй; окна короче трех дней стабильны
func (w VelocityWindow) Trend() VelocityTrend {
	if len(w.counts) < 3 {
		return TrendStable
	}
	half := len(w.counts) / 2
	first, second := 0, 0
	for i, c := range w.counts {
		if i < half {
			first += c
		} else {
			second += c
		}
	}
	return ClassifyTrend(first, second)
}
