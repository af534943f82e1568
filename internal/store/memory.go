package store

import (
	"context"
	"sync"

	"github.com/roach88/deployfin/internal/canon"
	"github.com/roach88/deployfin/internal/lifecycle"
)

// Memory is an in-process state store. It round-trips every save through
// the same canonical encoding as Store, so a state that survives Memory
// survives SQLite too.
type Memory struct {
	mu       sync.Mutex
	data     []byte
	checksum string
	saves    int
	failNext error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns the last saved state, or (nil, nil).
func (m *Memory) Load(_ context.Context) (*lifecycle.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	return unmarshalState(m.data, m.checksum)
}

// Save replaces the stored state.
func (m *Memory) Save(_ context.Context, st *lifecycle.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	data, err := marshalState(st)
	if err != nil {
		return err
	}
	m.data = data
	m.checksum = canon.Checksum(data)
	m.saves++
	return nil
}

// Saves returns how many saves have succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}

// FailNextSave makes the next Save return err without storing anything.
func (m *Memory) FailNextSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failNext = err
}
