// Package store implements the StatusStore and Outbox ports.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// Memory keeps statuses and outbox rows in process memory.
// State is lost on restart.
type Memory struct {
	mu       sync.Mutex
	statuses map[string]domain.TransactionStatus
	effects  map[string]domain.SideEffect
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		statuses: make(map[string]domain.TransactionStatus),
		effects:  make(map[string]domain.SideEffect),
	}
}

func (m *Memory) Advance(_ context.Context, id string, next domain.TransactionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !domain.CanAdvance(m.statuses[id], next) {
		return false, nil
	}
	m.statuses[id] = next
	return true, nil
}

func (m *Memory) Status(_ context.Context, id string) (domain.TransactionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[id], nil
}

func (m *Memory) Enqueue(_ context.Context, effect domain.SideEffect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.effects[effect.ID] = effect
	return nil
}

func (m *Memory) Due(_ context.Context, now time.Time, limit int) ([]domain.SideEffect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []domain.SideEffect
	for _, e := range m.effects {
		if !e.NextAttemptAt.After(now) {
			due = append(due, e)
		}
	}
	sortEffects(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *Memory) Complete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.effects, id)
	return nil
}

func (m *Memory) Reschedule(_ context.Context, id string, lastErr string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.effects[id]
	if !ok {
		return nil
	}
	e.Attempts++
	e.LastError = lastErr
	e.NextAttemptAt = next
	m.effects[id] = e
	return nil
}

func (m *Memory) Pending(_ context.Context) ([]domain.SideEffect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.SideEffect, 0, len(m.effects))
	for _, e := range m.effects {
		all = append(all, e)
	}
	sortEffects(all)
	return all, nil
}

func sortEffects(effects []domain.SideEffect) {
	sort.Slice(effects, func(i, j int) bool {
		if effects[i].NextAttemptAt.Equal(effects[j].NextAttemptAt) {
			return effects[i].CreatedAt.Before(effects[j].CreatedAt)
		}
		return effects[i].NextAttemptAt.Before(effects[j].NextAttemptAt)
	})
}
