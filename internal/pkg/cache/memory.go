package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Cache for tests and for running without Redis.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	serviceName string
	items       map[string]memoryItem
}

type memoryItem struct {
	value   string
	expires time.Time
}

func NewMemory(serviceName string) *Memory {
	return &Memory{now: time.Now, serviceName: serviceName, items: map[string]memoryItem{}}
}

var _ Cache = (*Memory)(nil)

// SetClock replaces the time source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value, ttl)
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.put(key, value, ttl)
	return true, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, _ := m.live(key)
	return it.value, nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.serviceName, operation, key)
}

func (m *Memory) put(key string, value any, ttl time.Duration) {
	it := memoryItem{}
	switch v := value.(type) {
	case string:
		it.value = v
	case []byte:
		it.value = string(v)
	default:
		it.value = fmt.Sprint(v)
	}
	if ttl > 0 {
		it.expires = m.now().Add(ttl)
	}
	m.items[key] = it
}

func (m *Memory) live(key string) (memoryItem, bool) {
	it, ok := m.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !it.expires.IsZero() && !m.now().Before(it.expires) {
		delete(m.items, key)
		return memoryItem{}, false
	}
	return it, true
}
