// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type mockEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// MockStore is an in-memory Store for testing. Time only moves through
// FastForward, and SetDown simulates an outage.
type MockStore struct {
	mu      sync.Mutex
	entries map[string]mockEntry
	now     time.Time
	down    bool
}

func NewMockStore() *MockStore {
	return &MockStore{
		entries: make(map[string]mockEntry),
		now:     time.Unix(1_700_000_000, 0),
	}
}

func (m *MockStore) FastForward(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *MockStore) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// Keys lists live keys.
func (m *MockStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.entries {
		if _, ok := m.lookup(k); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// lookup must be called with mu held.
func (m *MockStore) lookup(key string) (mockEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return mockEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now.Before(e.expiresAt) {
		delete(m.entries, key)
		return mockEntry{}, false
	}
	return e, true
}

func (m *MockStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now.Add(ttl)
}

func (m *MockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return "", ErrUnavailable
	}
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *MockStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrUnavailable
	}
	m.entries[key] = mockEntry{value: value, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *MockStore) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrWithTTL(ctx, key, 0)
}

func (m *MockStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return 0, ErrUnavailable
	}
	e, ok := m.lookup(key)
	var n int64
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	if e.expiresAt.IsZero() {
		e.expiresAt = m.expiry(ttl)
	}
	m.entries[key] = e
	return n, nil
}

func (m *MockStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrUnavailable
	}
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *MockStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrUnavailable
	}
	if e, ok := m.lookup(key); ok {
		e.expiresAt = m.expiry(ttl)
		m.entries[key] = e
	}
	return nil
}

func (m *MockStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return 0, ErrUnavailable
	}
	e, ok := m.lookup(key)
	if !ok {
		return 0, ErrMiss
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(m.now), nil
}

func (m *MockStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrUnavailable
	}
	return nil
}

func (m *MockStore) Close() error {
	return nil
}
