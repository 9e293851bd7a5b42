package events

import (
	"context"
	"sync"
)

// MemoryPublisher keeps published events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event

	// Err, when set, is returned by every Publish call.
	Err error
}

var _ Publisher = (*MemoryPublisher)(nil)

func (m *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Types returns the types of the published events in order.
func (m *MemoryPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}

// Events returns a copy of the published events.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
