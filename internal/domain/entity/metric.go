package entity

import (
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

// Metric отдельный показатель снимка, который уходит во внешние системы метрик
type Metric struct {
	metricType  valueobject.MetricType
	metricName  string
	value       valueobject.MetricValue
	collectedAt time.Time
}

// NewMetric создает новую метрику (Factory Method)
func NewMetric(
	metricType valueobject.MetricType,
	metricName string,
	value valueobject.MetricValue,
	collectedAt time.Time,
) (*Metric, error) {
	if err := metricType.Validate(); err != nil {
		return nil, err
	}
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	return &Metric{
		metricType:  metricType,
		metricName:  metricName,
		value:       value,
		collectedAt: collectedAt.UTC(),
	}, nil
}

// Type возвращает тип метрики
func (m *Metric) Type() valueobject.MetricType {
	return m.metricType
}

// Name возвращает имя метрики
func (m *Metric) Name() string {
	return m.metricName
}

// Value возвращает значение метрики
func (m *Metric) Value() valueobject.MetricValue {
	return m.value
}

// CollectedAt возвращает время сбора метрики
func (m *Metric) CollectedAt() time.Time {
	return m.collectedAt
}
