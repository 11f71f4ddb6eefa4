package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type memoryWriter struct {
	mu     sync.Mutex
	events []Event
	gate   chan struct{}
}

func (w *memoryWriter) WriteEvent(ctx context.Context, event Event) error {
	if w.gate != nil {
		<-w.gate
	}
	w.mu.Lock()
	w.events = append(w.events, event)
	w.mu.Unlock()
	return nil
}

func (w *memoryWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func TestAsyncSinkFlushesOnClose(t *testing.T) {
	writer := &memoryWriter{}
	sink := NewAsyncSink(writer, 16, zerolog.Nop())

	for i := 0; i < 5; i++ {
		sink.Record(Event{Kind: KindProviderCall, Provider: "yahoo", Symbol: "SPY"})
	}
	sink.Close()

	if got := writer.count(); got != 5 {
		t.Fatalf("expected 5 persisted events, got %d", got)
	}
	if sink.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", sink.Dropped())
	}
}

func TestAsyncSinkNeverBlocks(t *testing.T) {
	writer := &memoryWriter{gate: make(chan struct{})}
	sink := NewAsyncSink(writer, 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		// The writer is stalled behind the gate, so the buffer fills and
		// later events must be dropped rather than queued.
		for i := 0; i < 50; i++ {
			sink.Record(Event{Kind: KindLLMCall, Model: "gpt-4o"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled writer")
	}
	if sink.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(writer.gate)
	sink.Close()
}

func TestAsyncSinkStampsOccurredAt(t *testing.T) {
	writer := &memoryWriter{}
	sink := NewAsyncSink(writer, 4, zerolog.Nop())

	sink.Record(Event{Kind: KindEscalation, Symbol: "AAPL"})
	sink.Close()

	if got := writer.count(); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}
	if writer.events[0].OccurredAt.IsZero() {
		t.Fatal("expected an OccurredAt timestamp")
	}
}
