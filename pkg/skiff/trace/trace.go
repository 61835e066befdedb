// Package trace records structured runtime events for later inspection.
// The in-memory tracer accumulates events and serializes them to JSON at
// the end of a run.
package trace

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event kinds emitted by the agent loop.
const (
	EventTurnStarted = "turn_started"
	EventModelCalled = "model_called"
	EventToolCalled  = "tool_called"
	EventToolResult  = "tool_result"
	EventCompaction  = "compaction"
	EventTerminated  = "terminated"
)

// Event is one traced occurrence.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Turn      int            `json:"turn,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Tracer receives runtime events. Implementations must tolerate
// concurrent calls.
type Tracer interface {
	Record(event Event)
}

// InMemory accumulates events and dumps them as JSON.
type InMemory struct {
	mu     sync.Mutex
	events []Event
}

// NewInMemory builds an empty in-memory tracer.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Record appends the event.
func (t *InMemory) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

// Events returns a copy of everything recorded so far.
func (t *InMemory) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// DumpTraces serializes the recorded events to indented JSON. Non-ASCII
// content is preserved as-is.
func (t *InMemory) DumpTraces() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return json.MarshalIndent(t.events, "", "  ")
}

// Slog mirrors events to a structured logger at debug level.
type Slog struct {
	logger *slog.Logger
}

// NewSlog builds a tracer writing to logger.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger.With("component", "trace")}
}

// Record logs the event.
func (t *Slog) Record(event Event) {
	t.logger.Debug("trace event", "kind", event.Kind, "turn", event.Turn, "fields", event.Fields)
}

// Multi fans events out to several tracers.
type Multi []Tracer

// Record forwards the event to every tracer.
func (m Multi) Record(event Event) {
	for _, t := range m {
		t.Record(event)
	}
}

// Nop discards all events.
type Nop struct{}

// Record does nothing.
func (Nop) Record(Event) {}
