package db

import "time"

// Sink receives instrumentation from the pool, executor and transactor.
// Implementations must be safe for concurrent use and must not block or panic.
type Sink interface {
	// RecordOperation records one finished database operation.
	RecordOperation(operation string, d time.Duration, success bool)

	// SetActiveConnections reports the number of leased connections.
	SetActiveConnections(n int)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordOperation(string, time.Duration, bool) {}
func (NopSink) SetActiveConnections(int)                    {}

func sinkOrNop(s Sink) Sink {
	if s == nil {
		return NopSink{}
	}
	return s
}
