// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAuthenticator accepts tokens present in its map
type mockAuthenticator struct {
	users map[string]*models.User
}

func newMockAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{users: map[string]*models.User{
		"good-token": {ID: 7, Email: "user@example.com"},
	}}
}

func (m *mockAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	return nil, apperror.Unauthorized("Could not validate credentials")
}

func (m *mockAuthenticator) Subject(token string) (int64, bool) {
	if u, ok := m.users[token]; ok {
		return u.ID, true
	}
	return 0, false
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperror.BodyError {
	t.Helper()
	var body apperror.Body
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/test", BearerAuthMiddleware(newMockAuthenticator()), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":7}`, w.Body.String())
	})

	t.Run("LowercaseScheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "bearer good-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthorized, decodeError(t, w).Code)
	})

	t.Run("MissingAuthHeader", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, apperror.CodeUnauthorized, body.Code)
		assert.NotNil(t, body.Details)
	})

	t.Run("WrongScheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"BEARER abc", "abc"},
		{"Bearer", ""},
		{"Token abc", ""},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			c.Request.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, extractToken(c), "header %q", tt.header)
	}
}

func TestCurrentUserAbsent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentUser(c)
	assert.False(t, ok)
}
