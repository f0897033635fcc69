// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"net"
	"slices"
	"strings"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/gin-gonic/gin"
)

// TrustedHosts rejects requests whose Host header matches none of hosts with
// 400. An empty list or a "*" entry disables the check.
func TrustedHosts(hosts []string) gin.HandlerFunc {
	if len(hosts) == 0 || slices.Contains(hosts, "*") {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		host := hostname(c.Request.Host)
		for _, pattern := range hosts {
			if hostMatches(pattern, host) {
				c.Next()
				return
			}
		}
		AbortWithError(c, apperror.BadRequest("Invalid host header"))
	}
}

func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}

// hostMatches treats a leading "*." as any subdomain of the rest.
func hostMatches(pattern, host string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return len(host) > len(suffix) && strings.HasSuffix(strings.ToLower(host), strings.ToLower(suffix))
	}
	return strings.EqualFold(pattern, host)
}
