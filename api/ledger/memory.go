// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/z5labs/drivethru/order"
)

// Memory is a [Ledger] which lives and dies with the process.
type Memory struct {
	now func() time.Time

	mu    sync.Mutex
	state *State
}

// MemoryOption configures a [Memory] ledger.
type MemoryOption func(*Memory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory returns an empty ledger.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:   time.Now,
		state: &State{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply implements [Ledger].
func (m *Memory) Apply(ctx context.Context, cmd Command) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Apply(cmd, m.now().UTC())
}

// History implements [Ledger].
func (m *Memory) History(ctx context.Context) ([]order.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.History(), nil
}

// Totals implements [Ledger].
func (m *Memory) Totals(ctx context.Context) (order.Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.Totals, nil
}
