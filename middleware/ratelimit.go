// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/ratelimit"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1/"

// SubjectResolver extracts the user id from a token without any I/O.
type SubjectResolver interface {
	Subject(token string) (int64, bool)
}

// RateLimit counts every /api/v1/ request against the caller. Authenticated
// callers are keyed by user id so they share one budget across addresses;
// everyone else is keyed by client IP.
func RateLimit(limiter *ratelimit.Limiter, subjects SubjectResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		action := actionFor(c.Request.Method, c.Request.URL.Path)
		if action == "" {
			c.Next()
			return
		}

		identifier := c.ClientIP()
		if token := extractToken(c); token != "" && subjects != nil {
			if id, ok := subjects.Subject(token); ok {
				identifier = strconv.FormatInt(id, 10)
			}
		}

		d := limiter.CheckAndIncrement(c.Request.Context(), identifier, action)
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, apperror.RateLimited(retryAfter))
			return
		}

		c.Next()
	}
}

// actionFor maps a request to a limiter action; "" means not limited.
func actionFor(method, path string) string {
	switch {
	case path == "/healthz" || path == "/readyz":
		return ""
	case method == http.MethodPost && path == apiPrefix+"auth/login":
		return ratelimit.ActionLogin
	case method == http.MethodPost && path == apiPrefix+"auth/register":
		return ratelimit.ActionRegister
	case strings.HasPrefix(path, apiPrefix):
		return ratelimit.ActionAPI
	}
	return ""
}
