package memory

import (
	"context"
	"sync"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

// Sink implements ports.EventSink in memory. Events are kept per
// execution so late subscribers replay the full ordered history, the
// same behavior the Redis Streams adapter provides.
type Sink struct {
	mu      sync.Mutex
	history map[string][]domain.LogEvent
	subs    map[string][]*subscriber
	closed  bool
}

// liveBuffer is the slack a subscriber gets beyond its replayed
// history. A consumer that falls this far behind is disconnected.
const liveBuffer = 256

type subscriber struct {
	ch   chan domain.LogEvent
	done bool
}

// NewSink creates a new in-memory event sink
func NewSink() *Sink {
	return &Sink{
		history: make(map[string][]domain.LogEvent),
		subs:    make(map[string][]*subscriber),
	}
}

// Publish appends one event and fans it out to live subscribers in
// emission order. Fan-out never blocks: a subscriber whose buffer is
// full is disconnected rather than allowed to stall publishers, the
// same producer/consumer decoupling the Redis Streams adapter gets
// from XAdd.
func (s *Sink) Publish(ctx context.Context, event domain.LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.history[event.ExecutionID] = append(s.history[event.ExecutionID], event)

	remaining := s.subs[event.ExecutionID][:0]
	for _, sub := range s.subs[event.ExecutionID] {
		if !sub.deliver(event) {
			sub.close()
			continue
		}
		if event.Terminal {
			sub.close()
			continue
		}
		remaining = append(remaining, sub)
	}
	s.subs[event.ExecutionID] = remaining

	return nil
}

// Subscribe replays the execution's history, then delivers live
// events. The channel closes after the terminal event or when ctx is
// cancelled. The buffer is sized to the full history so replay never
// blocks, no matter how late the subscriber arrives.
func (s *Sink) Subscribe(ctx context.Context, executionID string) (<-chan domain.LogEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.history[executionID]
	sub := &subscriber{
		ch: make(chan domain.LogEvent, len(history)+liveBuffer),
	}

	terminal := false
	for _, event := range history {
		sub.ch <- event
		if event.Terminal {
			terminal = true
			break
		}
	}

	if terminal {
		sub.close()
		return sub.ch, nil
	}

	s.subs[executionID] = append(s.subs[executionID], sub)

	go func() {
		<-ctx.Done()
		s.drop(executionID, sub)
	}()

	return sub.ch, nil
}

// Close closes the sink and all subscriber channels
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, subs := range s.subs {
		for _, sub := range subs {
			sub.close()
		}
	}
	s.subs = make(map[string][]*subscriber)

	return nil
}

// History returns a copy of the events recorded for an execution
func (s *Sink) History(executionID string) []domain.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.history[executionID]
	out := make([]domain.LogEvent, len(events))
	copy(out, events)
	return out
}

func (s *Sink) drop(executionID string, target *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subs[executionID]
	for i, sub := range subs {
		if sub == target {
			s.subs[executionID] = append(subs[:i], subs[i+1:]...)
			sub.close()
			return
		}
	}
}

// deliver sends one event without blocking. Returns false if the
// subscriber is gone or its buffer is full.
func (sub *subscriber) deliver(event domain.LogEvent) bool {
	if sub.done {
		return false
	}
	select {
	case sub.ch <- event:
		return true
	default:
		return false
	}
}

func (sub *subscriber) close() {
	if sub.done {
		return
	}
	sub.done = true
	close(sub.ch)
}
