// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"time"
)

// DisabledStore stands in when Redis is switched off or could not be reached
// at startup. Every call reports ErrUnavailable.
type DisabledStore struct{}

func NewDisabledStore() *DisabledStore {
	return &DisabledStore{}
}

func (DisabledStore) Get(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (DisabledStore) Set(context.Context, string, string, time.Duration) error {
	return ErrUnavailable
}

func (DisabledStore) Incr(context.Context, string) (int64, error) {
	return 0, ErrUnavailable
}

func (DisabledStore) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, ErrUnavailable
}

func (DisabledStore) Delete(context.Context, ...string) error {
	return ErrUnavailable
}

func (DisabledStore) Expire(context.Context, string, time.Duration) error {
	return ErrUnavailable
}

func (DisabledStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, ErrUnavailable
}

func (DisabledStore) Ping(context.Context) error {
	return ErrUnavailable
}

func (DisabledStore) Close() error {
	return nil
}
