// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"context"
	"strings"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/models"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// Authenticator resolves a bearer token to the account it was issued for
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	authenticator Authenticator
}

func NewAuthMiddleware(a Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: a}
}

// BearerAuthMiddleware creates a new auth middleware handler
func BearerAuthMiddleware(a Authenticator) gin.HandlerFunc {
	return NewAuthMiddleware(a).Handler()
}

// Handler rejects the request with 401 unless it carries a valid token for an
// existing user, which is then available through CurrentUser.
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			AbortWithError(c, apperror.Unauthorized("Not authenticated"))
			return
		}

		user, err := m.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, apperror.Unauthorized("Could not validate credentials"))
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
