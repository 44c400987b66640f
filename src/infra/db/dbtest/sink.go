package dbtest

import (
	"sync"
	"time"
)

// Sample is one RecordOperation call.
type Sample struct {
	Operation string
	Duration  time.Duration
	Success   bool
}

// Sink records everything it receives. It implements db.Sink.
type Sink struct {
	mu      sync.Mutex
	samples []Sample
	active  []int
}

// RecordOperation implements db.Sink.
func (s *Sink) RecordOperation(operation string, d time.Duration, success bool) {
	s.mu.Lock()
	s.samples = append(s.samples, Sample{Operation: operation, Duration: d, Success: success})
	s.mu.Unlock()
}

// SetActiveConnections implements db.Sink.
func (s *Sink) SetActiveConnections(n int) {
	s.mu.Lock()
	s.active = append(s.active, n)
	s.mu.Unlock()
}

// Samples returns recorded samples in order.
func (s *Sink) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.samples...)
}

// SamplesFor returns the samples recorded for operation.
func (s *Sink) SamplesFor(operation string) []Sample {
	var out []Sample
	for _, smp := range s.Samples() {
		if smp.Operation == operation {
			out = append(out, smp)
		}
	}
	return out
}

// Active returns every active-connection value reported, in order.
func (s *Sink) Active() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.active...)
}

// LastActive returns the latest active-connection value, or -1.
func (s *Sink) LastActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) == 0 {
		return -1
	}
	return s.active[len(s.active)-1]
}
