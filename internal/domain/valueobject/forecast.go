package valueobject

import "time"

// Метки уверенности прогноза
const (
	ConfidenceHigh    = "High"
	ConfidenceMedium  = "Medium"
	ConfidenceLow     = "Low"
	ConfidenceUnknown = "Unknown"
)

// Forecast результат прогноза: либо рассчитанный, либо Unknown (Value Object)
type Forecast struct {
	known         bool
	daysRemaining float64
	estimatedDate time.Time
	confidence    float64
}

// NewComputedForecast создает рассчитанный прогноз
func NewComputedForecast(daysRemaining float64, estimatedDate time.Time, confidence float64) Forecast {
	return Forecast{
		known:         true,
		daysRemaining: daysRemaining,
		estimatedDate: estimatedDate,
		confidence:    confidence,
	}
}

// UnknownForecast прогноз, который нельзя рассчитать
func UnknownForecast() Forecast {
	return Forecast{}
}

// IsKnown сообщает, был ли прогноз рассчитан
func (f Forecast) IsKnown() bool {
	return f.known
}

// DaysRemaining возвращает оставшиеся дни (дробные)
func (f Forecast) DaysRemaining() (float64, bool) {
	return f.daysRemaining, f.known
}

// EstimatedDate возвращает ожидаемую дату завершения
func (f Forecast) EstimatedDate() (time.Time, bool) {
	return f.estimatedDate, f.known
}

// Confidence возвращает уверенность 0..1; для Unknown всегда 0
func (f Forecast) Confidence() float64 {
	return f.confidence
}

// ConfidenceLabel переводит уверенность в метку
func (f Forecast) ConfidenceLabel() string {
	if !f.known {
		return ConfidenceUnknown
	}
	return LabelForConfidence(f.confidence)
}

// LabelForConfidence: > 0.80 High, > 0.60 Medium, иначе Low
func LabelForConfidence(confidence float64) string {
	switch {
	case confidence > 0.80:
		return ConfidenceHigh
	case confidence > 0.60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
