package eivu

import "time"

// Metrics receives ingestion measurements.
type Metrics interface {
	ObserveTransition(event Event, result string, elapsed time.Duration)
	FoldersCreated(n int)
	RemoteDelete(status string)
}

// Transition results reported to Metrics.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultError     = "error"
)

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) ObserveTransition(Event, string, time.Duration) {}
func (NopMetrics) FoldersCreated(int)                            {}
func (NopMetrics) RemoteDelete(string)                           {}
