// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todoapi_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "todoapi_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.0, 10), // 5ms to ~2.5s
	}, []string{"method", "route"})

	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todoapi_rate_limit_decisions_total",
		Help: "Rate limiter outcomes by action",
	}, []string{"action", "decision"}) // allowed, denied, fail_open

	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todoapi_cache_operations_total",
		Help: "Todo cache lookups and writes",
	}, []string{"operation", "result"})

	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todoapi_auth_attempts_total",
		Help: "Registration, login and token checks by outcome",
	}, []string{"operation", "status"})
)
