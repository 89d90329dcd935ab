package port

import "time"

// Telemetry счетчики работы агента (Prometheus)
type Telemetry interface {
	CycleCompleted(duration time.Duration, delivered bool)
	DeliveryAttempt(outcome string)
	IssueCacheLookup(hit bool)
	IssueFetch(err error)
	SnapshotPersisted(err error)
}

// Исходы попытки доставки
const (
	DeliveryOutcomeSuccess   = "success"
	DeliveryOutcomeHTTPError = "http_error"
	DeliveryOutcomeTransport = "transport_error"
	DeliveryOutcomeAborted   = "aborted"
)

// NopTelemetry ничего не считает
type NopTelemetry struct{}

func (NopTelemetry) CycleCompleted(time.Duration, bool) {}
func (NopTelemetry) DeliveryAttempt(string)             {}
func (NopTelemetry) IssueCacheLookup(bool)              {}
func (NopTelemetry) IssueFetch(error)                   {}
func (NopTelemetry) SnapshotPersisted(error)            {}
