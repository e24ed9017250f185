package cache

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// Manager is a TTL cache shared by query results and user sessions. Keys are
// namespaced by the caller ("query:", "session:").
type Manager struct {
	cache  *cache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats reports cache effectiveness
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Items  int    `json:"items"`
}

func NewManager(defaultTTL time.Duration) *Manager {
	return &Manager{
		cache: cache.New(defaultTTL, 10*time.Minute),
	}
}

func (m *Manager) Get(key string) (interface{}, bool) {
	v, ok := m.cache.Get(key)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

func (m *Manager) Set(key string, value interface{}, ttl time.Duration) {
	m.cache.Set(key, value, ttl)
}

// Add stores value only if key is absent and reports whether it did.
func (m *Manager) Add(key string, value interface{}, ttl time.Duration) bool {
	return m.cache.Add(key, value, ttl) == nil
}

func (m *Manager) Delete(key string) {
	m.cache.Delete(key)
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (m *Manager) DeletePrefix(prefix string) int {
	removed := 0
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
			removed++
		}
	}
	return removed
}

func (m *Manager) Flush() {
	m.cache.Flush()
}

// OnEvicted registers a callback run when an item expires or is deleted.
func (m *Manager) OnEvicted(f func(key string, value interface{})) {
	m.cache.OnEvicted(f)
}

func (m *Manager) Stats() Stats {
	return Stats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Items:  m.cache.ItemCount(),
	}
}

// Remember returns the cached value for key, computing and storing it with
// load on a miss. Errors are not cached.
func Remember[T any](m *Manager, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if v, ok := m.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	m.Set(key, v, ttl)
	return v, nil
}
