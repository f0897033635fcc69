// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the store is disabled, unreachable or timed out.
	// Callers degrade: the rate limiter allows, the todo cache misses.
	ErrUnavailable = errors.New("store unavailable")
	// ErrMiss means the key does not exist (or has expired).
	ErrMiss = errors.New("cache miss")
)

// Store defines the expiring key-value operations the API needs
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	// IncrWithTTL increments key and applies ttl when the key has no expiry,
	// which is always the case on the first hit of a window.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime of key, zero if it never expires.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
	Close() error
}
