// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/cache"
	"github.com/VA7DBI/todoAPI/logging"
	"github.com/VA7DBI/todoAPI/metrics"
	"github.com/VA7DBI/todoAPI/models"
	"github.com/VA7DBI/todoAPI/repository"
)

const (
	ListCacheTTL = 60 * time.Second
	ItemCacheTTL = 300 * time.Second

	msgTodoNotFound = "Todo not found"
)

// TodoService is the owner-scoped CRUD layer. Reads go through the store
// first; any store problem is treated as a miss and never fails a request.
type TodoService struct {
	todos repository.TodoRepository
	store cache.Store
	log   logging.Logger
}

func NewTodoService(todos repository.TodoRepository, store cache.Store, log logging.Logger) *TodoService {
	return &TodoService{
		todos: todos,
		store: store,
		log:   log.With("component", "todos"),
	}
}

func (s *TodoService) List(ctx context.Context, userID int64) ([]models.Todo, error) {
	key := cache.UserTodosKey(userID)

	var cached []models.Todo
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	todos, err := s.todos.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "listing todos failed", "user_id", userID, "error", err)
		return nil, apperror.Internal()
	}

	s.writeCache(ctx, key, todos, ListCacheTTL)
	return todos, nil
}

func (s *TodoService) Get(ctx context.Context, userID, todoID int64) (*models.Todo, error) {
	key := cache.TodoKey(todoID)

	var cached models.Todo
	// Item keys are not namespaced by user, so ownership is checked again.
	if s.readCache(ctx, key, &cached) && cached.UserID == userID {
		return &cached, nil
	}

	todo, err := s.todos.GetByID(ctx, todoID, userID)
	if err != nil {
		return nil, s.repoError(ctx, "fetching todo failed", err)
	}

	s.writeCache(ctx, key, todo, ItemCacheTTL)
	return todo, nil
}

func (s *TodoService) Create(ctx context.Context, userID int64, req models.TodoCreate) (*models.Todo, error) {
	todo, err := s.todos.Create(ctx, userID, req.Title, req.Description)
	if err != nil {
		s.log.Error(ctx, "creating todo failed", "user_id", userID, "error", err)
		return nil, apperror.Internal()
	}

	s.invalidate(ctx, cache.UserTodosKey(userID))
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, userID, todoID int64, req models.TodoUpdate) (*models.Todo, error) {
	todo, err := s.todos.Update(ctx, todoID, userID, req.Changes())
	if err != nil {
		return nil, s.repoError(ctx, "updating todo failed", err)
	}

	s.invalidate(ctx, cache.TodoKey(todoID), cache.UserTodosKey(userID))
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, todoID int64) error {
	if err := s.todos.Delete(ctx, todoID, userID); err != nil {
		return s.repoError(ctx, "deleting todo failed", err)
	}

	s.invalidate(ctx, cache.TodoKey(todoID), cache.UserTodosKey(userID))
	return nil
}

func (s *TodoService) repoError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msgTodoNotFound)
	}
	s.log.Error(ctx, msg, "error", err)
	return apperror.Internal()
}

func (s *TodoService) readCache(ctx context.Context, key string, dst any) bool {
	raw, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrMiss):
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		return false
	default:
		s.logStoreError(ctx, "cache read failed", key, err)
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warn(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return false
	}

	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return true
}

func (s *TodoService) writeCache(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn(ctx, "encoding cache entry failed", "key", key, "error", err)
		return
	}
	if err := s.store.Set(ctx, key, string(data), ttl); err != nil {
		s.logStoreError(ctx, "cache write failed", key, err)
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return
	}
	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
}

func (s *TodoService) invalidate(ctx context.Context, keys ...string) {
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.logStoreError(ctx, "cache invalidation failed", "", err)
		metrics.CacheOperations.WithLabelValues("delete", "error").Inc()
		return
	}
	metrics.CacheOperations.WithLabelValues("delete", "ok").Inc()
}

// A disabled store fails every call; only real outages are worth a warning.
func (s *TodoService) logStoreError(ctx context.Context, msg, key string, err error) {
	if errors.Is(err, cache.ErrUnavailable) {
		s.log.Debug(ctx, msg, "key", key, "error", err)
		return
	}
	s.log.Warn(ctx, msg, "key", key, "error", err)
}
