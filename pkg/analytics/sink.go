package analytics

import (
	"log/slog"
	"sync"
	"time"
)

// Event is a single analytics event.
type Event struct {
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurredAt"`
	Props      map[string]any `json:"props,omitempty"`
}

// Sink is a bounded in-memory analytics event buffer. When the buffer is
// full the oldest events are dropped.
type Sink struct {
	mu     sync.Mutex
	events []Event
	max    int
	clock  func() time.Time
	logger *slog.Logger
}

// DefaultMaxEvents is the default buffer capacity.
const DefaultMaxEvents = 10000

// NewSink creates a new analytics sink. maxEvents <= 0 selects
// DefaultMaxEvents.
func NewSink(maxEvents int) *Sink {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Sink{
		max:    maxEvents,
		clock:  time.Now,
		logger: slog.Default().With("component", "analytics"),
	}
}

// Emit records an event. Never fails; analytics must not affect the
// operations that emit into it.
func (s *Sink) Emit(name string, props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, Event{Name: name, OccurredAt: s.clock(), Props: props})
	if len(s.events) > s.max {
		dropped := len(s.events) - s.max
		s.events = s.events[dropped:]
		s.logger.Debug("analytics buffer full, dropped oldest events", "dropped", dropped)
	}
}

// Snapshot returns a copy of the buffered events.
func (s *Sink) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ClearBefore drops events older than cutoff and returns how many were
// removed. This is the retention engine's analytics-event sweep.
func (s *Sink) ClearBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	removed := 0
	for _, ev := range s.events {
		if ev.OccurredAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return removed
}

// Len returns the number of buffered events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// SetClock overrides the time source (for testing).
func (s *Sink) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}
