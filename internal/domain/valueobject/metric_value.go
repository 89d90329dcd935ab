package valueobject

import (
	"errors"
	"fmt"
	"math"
)

// Единицы измерения, которые понимают публикаторы метрик
const (
	UnitPercent      = "%"
	UnitCount        = "count"
	UnitIssuesPerDay = "issues/day"
)

// MetricValue представляет значение метрики с единицей измерения (Value Object)
type MetricValue struct {
	value float64
	unit  string
}

// NewMetricValue создает новый MetricValue с валидацией
func NewMetricValue(value float64, unit string) (MetricValue, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MetricValue{}, errors.New("value must be finite")
	}
	if unit == "" {
		return MetricValue{}, errors.New("unit cannot be empty")
	}
	if unit == UnitPercent && (value < 0 || value > 100) {
		return MetricValue{}, fmt.Errorf("percentage out of range: %.2f", value)
	}

	return MetricValue{value: value, unit: unit}, nil
}

// Raw возвращает числовое значение
func (mv MetricValue) Raw() float64 {
	return mv.value
}

// Unit возвращает единицу измерения
func (mv MetricValue) Unit() string {
	return mv.unit
}

func (mv MetricValue) String() string {
	return fmt.Sprintf("%.2f %s", mv.value, mv.unit)
}
