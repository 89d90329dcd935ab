package valueobject

import (
	"errors"
	"time"
)

const day = 24 * time.Hour

// TimeRange представляет временной диапазон (Value Object)
// Иммутабельный объект
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, errors.New("start time must be before end time")
	}

	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("start and end times cannot be zero")
	}

	return TimeRange{
		start: start,
		end:   end,
	}, nil
}

// NewTrailingDays создает окно из days суток, заканчивающееся в end
func NewTrailingDays(end time.Time, days int) (TimeRange, error) {
	if days <= 0 {
		return TimeRange{}, errors.New("days must be positive")
	}
	return NewTimeRange(end.Add(-time.Duration(days)*day), end)
}

// Duration возвращает длительность диапазона
func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Days возвращает число целых суток в диапазоне
func (tr TimeRange) Days() int {
	return int(tr.Duration() / day)
}

// DayOffset возвращает число целых суток между t и концом диапазона.
// ok = false, если t лежит вне полуинтервала (start, end]
func (tr TimeRange) DayOffset(t time.Time) (offset int, ok bool) {
	if t.After(tr.end) || !t.After(tr.start) {
		return 0, false
	}
	offset = int(tr.end.Sub(t) / day)
	if offset >= tr.Days() {
		return 0, false
	}
	return offset, true
}
