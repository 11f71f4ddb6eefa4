// Package telemetry records cost and usage events from external provider and
// LLM invocations. Recording is fire-and-forget: the hot path hands events to
// a background writer and never blocks or fails the pipeline.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Event kinds.
const (
	KindProviderCall = "provider_call"
	KindLLMCall      = "llm_call"
	KindEscalation   = "escalation"
)

// Event is one recorded external invocation.
type Event struct {
	Kind             string
	Provider         string
	Symbol           string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	Detail           string
	OccurredAt       time.Time
}

// Sink accepts events. Implementations must never block the caller.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(Event) {}

// Writer persists events; implemented by the Postgres store.
type Writer interface {
	WriteEvent(ctx context.Context, event Event) error
}

// AsyncSink buffers events on a channel drained by one background goroutine.
// When the buffer is full the event is dropped and counted; telemetry loss
// is acceptable, pipeline stalls are not.
type AsyncSink struct {
	ch      chan Event
	writer  Writer
	logger  zerolog.Logger
	dropped atomic.Int64
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAsyncSink starts the background writer goroutine.
func NewAsyncSink(writer Writer, buffer int, logger zerolog.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &AsyncSink{
		ch:     make(chan Event, buffer),
		writer: writer,
		logger: logger.With().Str("component", "telemetry_sink").Logger(),
	}
	s.wg.Add(1)
	go s.drain()
	return s
}

// Record enqueues an event without blocking.
func (s *AsyncSink) Record(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close flushes buffered events and stops the writer goroutine.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		close(s.ch)
	})
	s.wg.Wait()
}

func (s *AsyncSink) drain() {
	defer s.wg.Done()
	for event := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.writer.WriteEvent(ctx, event); err != nil {
			s.logger.Warn().Err(err).Str("kind", event.Kind).Msg("failed to persist telemetry event")
		}
		cancel()
	}
	if n := s.dropped.Load(); n > 0 {
		s.logger.Warn().Int64("dropped", n).Msg("telemetry events dropped due to full buffer")
	}
}

var (
	_ Sink = (*AsyncSink)(nil)
	_ Sink = NopSink{}
)
