package valueobject

import "errors"

// MetricType группирует показатели снимка, публикуемые во внешние системы метрик
type MetricType string

const (
	Resource MetricType = "resource"
	Agents   MetricType = "agents"
	Project  MetricType = "project"
)

// Validate проверяет валидность типа метрики
func (mt MetricType) Validate() error {
	switch mt {
	case Resource, Agents, Project:
		return nil
	default:
		return errors.New("invalid metric type")
	}
}

func (mt MetricType) String() string {
	return string(mt)
}

// AllMetricTypes возвращает список всех допустимых типов метрик
func AllMetricTypes() []MetricType {
	return []MetricType{Resource, Agents, Project}
}
