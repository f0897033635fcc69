// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package ratelimit implements a fixed-window request counter on top of an
// expiring key-value store.
//
// Each (action, identifier) pair owns one counter. The first request in a
// window creates it with TTL equal to the window; later requests increment it
// without touching the TTL; the store's expiry resets it. A counter found
// without a TTL is given one, so a lost EXPIRE cannot lock a caller out. Because windows are
// fixed rather than sliding, a client can get up to twice the limit through
// across a window boundary. The read and the increment are separate store
// calls, so concurrent bursts from one identifier may slightly overshoot.
//
// The limiter fails open: when the store is disabled, unreachable or returns
// anything unexpected, the request is allowed.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/VA7DBI/todoAPI/cache"
	"github.com/VA7DBI/todoAPI/config"
	"github.com/VA7DBI/todoAPI/logging"
	"github.com/VA7DBI/todoAPI/metrics"
)

const (
	ActionLogin    = "login"
	ActionRegister = "register"
	ActionAPI      = "api"
)

// Policy is the number of requests allowed per window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one CheckAndIncrement call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is set on denials: the time left in the current window.
	RetryAfter time.Duration
	// FailOpen marks an allow that happened because the store failed.
	FailOpen bool
}

// DefaultPolicies mirrors the configuration defaults.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ActionLogin:    {Limit: 5, Window: 15 * time.Minute},
		ActionRegister: {Limit: 3, Window: time.Hour},
		ActionAPI:      {Limit: 100, Window: time.Minute},
	}
}

// PoliciesFromConfig builds the action table from the rate_limit section.
func PoliciesFromConfig(cfg *config.Config) map[string]Policy {
	return map[string]Policy{
		ActionLogin: {
			Limit:  cfg.RateLimit.LoginAttempts,
			Window: time.Duration(cfg.RateLimit.LoginWindowMinutes) * time.Minute,
		},
		ActionRegister: {
			Limit:  cfg.RateLimit.RegistrationAttempts,
			Window: time.Duration(cfg.RateLimit.RegistrationWindowHours) * time.Hour,
		},
		ActionAPI: {
			Limit:  cfg.RateLimit.PerMinute,
			Window: time.Minute,
		},
	}
}

type Limiter struct {
	store    cache.Store
	policies map[string]Policy
	enabled  bool
	log      logging.Logger
}

func NewLimiter(store cache.Store, policies map[string]Policy, enabled bool, log logging.Logger) *Limiter {
	table := make(map[string]Policy, len(policies)+1)
	for action, p := range policies {
		table[action] = p
	}
	if _, ok := table[ActionAPI]; !ok {
		table[ActionAPI] = DefaultPolicies()[ActionAPI]
	}
	return &Limiter{
		store:    store,
		policies: table,
		enabled:  enabled,
		log:      log,
	}
}

// New wires a Limiter from configuration.
func New(cfg *config.Config, store cache.Store, log logging.Logger) *Limiter {
	return NewLimiter(store, PoliciesFromConfig(cfg), cfg.RateLimit.Enabled, log)
}

// Policy resolves action to its policy; unknown actions get the api policy.
func (l *Limiter) Policy(action string) Policy {
	if p, ok := l.policies[action]; ok {
		return p
	}
	return l.policies[ActionAPI]
}

func (l *Limiter) Enabled() bool {
	return l.enabled
}

// Allow is CheckAndIncrement reduced to its verdict.
func (l *Limiter) Allow(ctx context.Context, identifier, action string) bool {
	return l.CheckAndIncrement(ctx, identifier, action).Allowed
}

// CheckAndIncrement denies without counting once the window's limit is
// reached, otherwise counts the request and allows it.
func (l *Limiter) CheckAndIncrement(ctx context.Context, identifier, action string) Decision {
	policy := l.Policy(action)
	if !l.enabled {
		return Decision{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit}
	}

	key := cache.RateLimitKey(identifier, action)

	count, err := l.currentCount(ctx, key)
	if err != nil {
		return l.failOpen(ctx, action, policy, err)
	}

	if count >= int64(policy.Limit) {
		metrics.RateLimitDecisions.WithLabelValues(action, "denied").Inc()
		return Decision{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			RetryAfter: l.retryAfter(ctx, key, policy),
		}
	}

	n, err := l.store.IncrWithTTL(ctx, key, policy.Window)
	if err != nil {
		return l.failOpen(ctx, action, policy, err)
	}

	metrics.RateLimitDecisions.WithLabelValues(action, "allowed").Inc()
	return Decision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: max(policy.Limit-int(n), 0),
	}
}

func (l *Limiter) currentCount(ctx context.Context, key string) (int64, error) {
	val, err := l.store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// retryAfter reports the time left in the window. A full counter with no
// expiry would deny forever, so it is given a fresh window here.
func (l *Limiter) retryAfter(ctx context.Context, key string, policy Policy) time.Duration {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return policy.Window
	}
	if ttl <= 0 {
		if err := l.store.Expire(ctx, key, policy.Window); err != nil {
			l.log.Warn(ctx, "could not re-arm rate limit window", "key", key, "error", err)
		}
		return policy.Window
	}
	return ttl
}

func (l *Limiter) failOpen(ctx context.Context, action string, policy Policy, err error) Decision {
	metrics.RateLimitDecisions.WithLabelValues(action, "fail_open").Inc()
	if errors.Is(err, cache.ErrUnavailable) {
		l.log.Debug(ctx, "rate limit store unavailable, allowing request", "action", action, "error", err)
	} else {
		l.log.Warn(ctx, "rate limit check failed, allowing request", "action", action, "error", err)
	}
	return Decision{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit, FailOpen: true}
}
