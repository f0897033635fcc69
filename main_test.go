// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VA7DBI/todoAPI/cache"
	"github.com/VA7DBI/todoAPI/config"
	"github.com/VA7DBI/todoAPI/logging"
	"github.com/VA7DBI/todoAPI/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.Host = "localhost"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.PerMinute = 100
	cfg.RateLimit.LoginAttempts = 5
	cfg.RateLimit.LoginWindowMinutes = 15
	cfg.RateLimit.RegistrationAttempts = 3
	cfg.RateLimit.RegistrationWindowHours = 1
	return cfg
}

func mustRouter(t *testing.T, cfg *config.Config, api *API, limiter *ratelimit.Limiter) *gin.Engine {
	t.Helper()
	r, err := setupRouter(cfg, api, limiter)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestMainSetup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Server.Debug = true
	limiter := ratelimit.New(cfg, cache.NewDisabledStore(), logging.Nop())
	r := mustRouter(t, cfg, newTestAPI(), limiter)

	routeMap := make(map[string]bool)
	for _, route := range r.Routes() {
		routeMap[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/auth/me",
		"GET /api/v1/todos",
		"POST /api/v1/todos",
		"GET /api/v1/todos/:id",
		"PUT /api/v1/todos/:id",
		"DELETE /api/v1/todos/:id",
		"GET /healthz",
		"GET /readyz",
		"GET /metrics",
		"GET /swagger/*any",
	} {
		assert.True(t, routeMap[want], "Missing %s endpoint", want)
	}
}

func TestSwaggerOnlyInDebug(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	limiter := ratelimit.New(cfg, cache.NewDisabledStore(), logging.Nop())
	r := mustRouter(t, cfg, newTestAPI(), limiter)

	for _, route := range r.Routes() {
		assert.NotEqual(t, "/swagger/*any", route.Path)
		assert.NotEqual(t, "/metrics", route.Path)
	}
}

func TestSwaggerEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Server.Debug = true
	limiter := ratelimit.New(cfg, cache.NewDisabledStore(), logging.Nop())
	r := mustRouter(t, cfg, newTestAPI(), limiter)

	req := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Todo API"))

	var swaggerDoc map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &swaggerDoc)
	assert.NoError(t, err)

	assert.NotEmpty(t, swaggerDoc["swagger"])
	assert.NotEmpty(t, swaggerDoc["info"])

	paths := swaggerDoc["paths"].(map[string]interface{})
	for _, p := range []string{"/api/v1/auth/register", "/api/v1/auth/login", "/api/v1/todos", "/api/v1/todos/{id}", "/healthz", "/readyz"} {
		assert.Contains(t, paths, p)
	}

	login := paths["/api/v1/auth/login"].(map[string]interface{})["post"].(map[string]interface{})
	assert.NotEmpty(t, login["summary"])
	assert.NotEmpty(t, login["parameters"])
	assert.NotEmpty(t, login["responses"])

	req = httptest.NewRequest("GET", "/swagger/index.html", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "swagger-ui"))
}

func TestOpenStoreFallsBackWhenUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1
	cfg.Redis.Timeout = 1

	store := openStore(context.Background(), cfg, logging.Nop())
	_, ok := store.(*cache.DisabledStore)
	assert.True(t, ok)

	cfg.Redis.Enabled = false
	_, ok = openStore(context.Background(), cfg, logging.Nop()).(*cache.DisabledStore)
	assert.True(t, ok)
}

func TestRouterIgnoresSpoofedForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	limiter := ratelimit.New(cfg, cache.NewMockStore(), logging.Nop())
	r := mustRouter(t, cfg, newTestAPI(), limiter)

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("POST", "/api/v1/auth/login",
			strings.NewReader(`{"email":"a@example.com","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.RemoteAddr = "198.51.100.9:40000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusTooManyRequests {
			allowed++
		}
	}
	assert.Equal(t, cfg.RateLimit.LoginAttempts, allowed)
}

func TestSetupRouterRejectsBadTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"not-an-address"}
	limiter := ratelimit.New(cfg, cache.NewDisabledStore(), logging.Nop())

	_, err := setupRouter(cfg, newTestAPI(), limiter)
	assert.ErrorContains(t, err, "trusted_proxies")
}

func TestRouterRejectsUnknownHost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Server.AllowedHosts = []string{"localhost"}
	limiter := ratelimit.New(cfg, cache.NewDisabledStore(), logging.Nop())
	r := mustRouter(t, cfg, newTestAPI(), limiter)

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Host = "localhost:8000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/healthz", nil)
	req.Host = "attacker.example"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
