package trace

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecordAndEvents(t *testing.T) {
	tr := NewInMemory()
	tr.Record(Event{Kind: EventTurnStarted, Turn: 1})
	tr.Record(Event{Kind: EventToolCalled, Turn: 1, Fields: map[string]any{"tool": "glob"}})

	events := tr.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventTurnStarted || events[1].Fields["tool"] != "glob" {
		t.Errorf("events wrong: %+v", events)
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp not backfilled")
	}
}

func TestInMemoryKeepsExplicitTimestamp(t *testing.T) {
	tr := NewInMemory()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.Record(Event{Kind: EventTerminated, Timestamp: ts})
	if got := tr.Events()[0].Timestamp; !got.Equal(ts) {
		t.Errorf("timestamp overwritten: %v", got)
	}
}

func TestInMemoryEventsReturnsCopy(t *testing.T) {
	tr := NewInMemory()
	tr.Record(Event{Kind: EventTurnStarted})
	events := tr.Events()
	events[0].Kind = "mutated"
	if tr.Events()[0].Kind != EventTurnStarted {
		t.Error("Events must not expose internal slice")
	}
}

func TestInMemoryDumpTraces(t *testing.T) {
	tr := NewInMemory()
	tr.Record(Event{Kind: EventModelCalled, Turn: 2, Fields: map[string]any{"tokens": 42}})

	data, err := tr.DumpTraces()
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["kind"] != EventModelCalled {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded[0]["turn"] != float64(2) {
		t.Errorf("turn = %v", decoded[0]["turn"])
	}
}

func TestInMemoryConcurrentRecord(t *testing.T) {
	tr := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tr.Record(Event{Kind: EventToolResult})
			}
		}()
	}
	wg.Wait()
	if got := len(tr.Events()); got != 200 {
		t.Fatalf("expected 200 events, got %d", got)
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewInMemory(), NewInMemory()
	m := Multi{a, b, Nop{}}
	m.Record(Event{Kind: EventCompaction})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("fan-out incomplete: %d / %d", len(a.Events()), len(b.Events()))
	}
}
