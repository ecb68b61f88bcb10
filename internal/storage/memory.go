package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/pagebot/internal/apperr"
)

// Memory implements Provider in process memory. Saves are lost on exit.
type Memory struct {
	mu    sync.Mutex
	data  []byte
	saves int
	err   error
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{}
}

// Name implements Provider.
func (m *Memory) Name() string { return "memory" }

// Load returns a copy of the last saved content.
func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, fmt.Errorf("storage: memory: %w", apperr.ErrNotFound)
	}
	return append([]byte(nil), m.data...), nil
}

// Save stores a copy of content, or returns the error set by FailWith.
func (m *Memory) Save(_ context.Context, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = append([]byte(nil), content...)
	m.saves++
	return nil
}

// Saves returns how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailWith makes subsequent saves return err. A nil err restores normal saves.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
