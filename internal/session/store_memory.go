package session

import (
	"context"
	"errors"
	"sync"
)

// MemoryStateStore keeps state in a mutex-guarded map. Values are copied on
// the way in and out so callers never share a State.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]*State)}
}

func (m *MemoryStateStore) Get(_ context.Context, customerID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[customerID]
	if !ok {
		return nil, nil
	}
	return st.clone(), nil
}

func (m *MemoryStateStore) Set(_ context.Context, state *State) error {
	if state == nil || state.CustomerID == "" {
		return errors.New("session: state requires a customer id")
	}
	m.mu.Lock()
	m.states[state.CustomerID] = state.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStateStore) Delete(_ context.Context, customerID string) error {
	m.mu.Lock()
	delete(m.states, customerID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStateStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states), nil
}

func (s *State) clone() *State {
	out := *s
	if s.PendingAppointments != nil {
		out.PendingAppointments = append(out.PendingAppointments[:0:0], s.PendingAppointments...)
	}
	if s.SelectedAppointment != nil {
		appt := *s.SelectedAppointment
		out.SelectedAppointment = &appt
	}
	return &out
}
