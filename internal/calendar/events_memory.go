package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryEvents is an in-process Events store for development and tests.
type MemoryEvents struct {
	mu     sync.RWMutex
	events map[string]Event
}

// NewMemoryEvents returns an empty store.
func NewMemoryEvents() *MemoryEvents {
	return &MemoryEvents{events: make(map[string]Event)}
}

// List returns events overlapping [from, to) ordered by start. A zero from
// or to leaves that side open.
func (m *MemoryEvents) List(_ context.Context, from, to time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, ev := range m.events {
		if !from.IsZero() && !ev.End.After(from) {
			continue
		}
		if !to.IsZero() && !ev.Start.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemoryEvents) Get(_ context.Context, id string) (Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return ev, nil
}

func (m *MemoryEvents) Insert(_ context.Context, ev Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *MemoryEvents) Update(_ context.Context, ev Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[ev.ID]; !ok {
		return Event{}, ErrNotFound
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *MemoryEvents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}
