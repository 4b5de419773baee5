// Package cache holds the latest-rate cache backends.
package cache

import (
	"context"
	"sync"
	"time"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

var _ currency.RateCache = (*Memory)(nil)

type (
	// Memory drops expired entries lazily on read.
	Memory struct {
		lock    sync.RWMutex
		entries map[string]entry
		now     func() time.Time
	}

	entry struct {
		snapshot  currency.RateSnapshot
		expiresAt time.Time
	}
)

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (m *Memory) Get(_ context.Context, baseCurrency string) (currency.RateSnapshot, bool, error) {
	m.lock.RLock()
	e, ok := m.entries[baseCurrency]
	m.lock.RUnlock()

	if !ok {
		return currency.RateSnapshot{}, false, nil
	}

	if !m.now().Before(e.expiresAt) {
		m.lock.Lock()
		// another writer may have replaced the entry in between
		if current, ok := m.entries[baseCurrency]; ok && current.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, baseCurrency)
		}
		m.lock.Unlock()

		return currency.RateSnapshot{}, false, nil
	}

	return e.snapshot.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, baseCurrency string, snapshot currency.RateSnapshot, ttl time.Duration) error {
	e := entry{
		snapshot:  snapshot.Clone(),
		expiresAt: m.now().Add(ttl),
	}

	m.lock.Lock()
	m.entries[baseCurrency] = e
	m.lock.Unlock()

	return nil
}

func (m *Memory) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.entries)
}
