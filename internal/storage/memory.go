package storage

import (
	"strings"
	"sync"
	"time"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// MemoryCache implements Cache with an in-memory map
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*models.CachedResponse
	now     func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock creates a cache that reads time from now
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*models.CachedResponse),
		now:     now,
	}
}

// Get retrieves an entry; expired entries are reported as absent
func (m *MemoryCache) Get(key string) (*models.CachedResponse, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[key]
	if !exists || entry.Expired(m.now()) {
		return nil, false
	}

	return entry, true
}

// Put stores an entry, stamping StoredAt when unset
func (m *MemoryCache) Put(key string, resp *models.CachedResponse) {
	if resp.StoredAt.IsZero() {
		resp.StoredAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = resp
}

// Delete removes an entry
func (m *MemoryCache) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		return false
	}

	delete(m.entries, key)
	return true
}

// DeletePrefix removes all entries whose key starts with prefix
func (m *MemoryCache) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}

	return removed
}

// Purge drops expired entries
func (m *MemoryCache) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			removed++
		}
	}

	return removed
}

// Clear removes every entry
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*models.CachedResponse)
}

// Len returns the number of stored entries, expired or not
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Close closes the cache (no-op for memory cache)
func (m *MemoryCache) Close() error {
	return nil
}
