package ledger

import (
	"context"
	"sync"

	"igbot/pkg/social"
)

// Memory is an in-process ledger; nothing survives the process
type Memory struct {
	mu    sync.RWMutex
	seen  map[social.MediaID]struct{}
	order []social.MediaID
}

// NewMemory creates a ledger preloaded with ids
func NewMemory(ids ...social.MediaID) *Memory {
	m := &Memory{seen: make(map[social.MediaID]struct{})}
	for _, id := range ids {
		m.add(id)
	}
	return m
}

func (m *Memory) add(id social.MediaID) bool {
	if _, ok := m.seen[id]; ok {
		return false
	}
	m.seen[id] = struct{}{}
	m.order = append(m.order, id)
	return true
}

func (m *Memory) Contains(_ context.Context, id social.MediaID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[id]
	return ok, nil
}

func (m *Memory) Insert(_ context.Context, id social.MediaID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(id)
	return nil
}

func (m *Memory) Load(_ context.Context) ([]social.MediaID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]social.MediaID(nil), m.order...), nil
}

func (m *Memory) Flush(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
