package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process ResponseStore used with the memory storage
// driver. Entries expire after ttl.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	vals map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	val     []byte
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, vals: map[string]memEntry{}, now: time.Now}
}

func (m *MemoryStore) Begin(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.vals[key]
	if !ok || now.After(e.expires) {
		m.vals[key] = memEntry{val: []byte(pendingMarker), expires: now.Add(m.ttl)}
		return nil, nil
	}
	if string(e.val) == pendingMarker {
		return nil, ErrInFlight
	}
	return e.val, nil
}

func (m *MemoryStore) Complete(_ context.Context, key string, response []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = memEntry{val: response, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}
