// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/logging"
	"github.com/VA7DBI/todoAPI/middleware"
	"github.com/VA7DBI/todoAPI/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const readinessTimeout = 2 * time.Second

type authService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Subject(token string) (int64, bool)
}

type todoService interface {
	List(ctx context.Context, userID int64) ([]models.Todo, error)
	Get(ctx context.Context, userID, todoID int64) (*models.Todo, error)
	Create(ctx context.Context, userID int64, req models.TodoCreate) (*models.Todo, error)
	Update(ctx context.Context, userID, todoID int64, req models.TodoUpdate) (*models.Todo, error)
	Delete(ctx context.Context, userID, todoID int64) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// API holds the HTTP handlers
type API struct {
	auth  authService
	todos todoService
	db    pinger
	log   logging.Logger
}

// @Summary     Register a new user
// @Description Create an account. Passwords must satisfy the configured strength policy.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.RegisterRequest true "Credentials"
// @Success     201 {object} models.UserResponse
// @Failure     409 {object} apperror.Body
// @Failure     422 {object} apperror.Body
// @Failure     429 {object} apperror.Body
// @Router      /api/v1/auth/register [post]
func (a *API) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := a.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewUserResponse(user))
}

// @Summary     Log in
// @Description Exchange email and password for a bearer access token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.LoginRequest true "Credentials"
// @Success     200 {object} models.LoginResponse
// @Failure     401 {object} apperror.Body
// @Failure     429 {object} apperror.Body
// @Router      /api/v1/auth/login [post]
func (a *API) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := a.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary     Current user
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.UserResponse
// @Failure     401 {object} apperror.Body
// @Router      /api/v1/auth/me [get]
func (a *API) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortWithError(c, apperror.Unauthorized("Not authenticated"))
		return
	}
	c.JSON(http.StatusOK, models.NewUserResponse(user))
}

// @Summary     List todos
// @Description Newest first, only the caller's own items
// @Tags        todos
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Todo
// @Failure     401 {object} apperror.Body
// @Router      /api/v1/todos [get]
func (a *API) ListTodos(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortWithError(c, apperror.Unauthorized("Not authenticated"))
		return
	}

	todos, err := a.todos.List(c.Request.Context(), user.ID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// @Summary     Get a todo
// @Tags        todos
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Todo ID"
// @Success     200 {object} models.Todo
// @Failure     404 {object} apperror.Body
// @Router      /api/v1/todos/{id} [get]
func (a *API) GetTodo(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}

	todo, err := a.todos.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// @Summary     Create a todo
// @Tags        todos
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body models.TodoCreate true "New todo"
// @Success     201 {object} models.Todo
// @Failure     422 {object} apperror.Body
// @Router      /api/v1/todos [post]
func (a *API) CreateTodo(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortWithError(c, apperror.Unauthorized("Not authenticated"))
		return
	}

	var req models.TodoCreate
	if !bindJSON(c, &req) {
		return
	}

	todo, err := a.todos.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// @Summary     Update a todo
// @Description Only the fields present in the body are changed
// @Tags        todos
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "Todo ID"
// @Param       request body models.TodoUpdate true "Changes"
// @Success     200 {object} models.Todo
// @Failure     404 {object} apperror.Body
// @Failure     422 {object} apperror.Body
// @Router      /api/v1/todos/{id} [put]
func (a *API) UpdateTodo(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}

	var req models.TodoUpdate
	if !bindJSON(c, &req) {
		return
	}

	todo, err := a.todos.Update(c.Request.Context(), user.ID, id, req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// @Summary     Delete a todo
// @Tags        todos
// @Security    BearerAuth
// @Param       id path int true "Todo ID"
// @Success     204
// @Failure     404 {object} apperror.Body
// @Router      /api/v1/todos/{id} [delete]
func (a *API) DeleteTodo(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}

	if err := a.todos.Delete(c.Request.Context(), user.ID, id); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary     Liveness check
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /healthz [get]
func (a *API) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}

// @Summary     Readiness check
// @Description Reports 503 while the database is unreachable
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Failure     503 {object} models.HealthResponse
// @Router      /readyz [get]
func (a *API) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.log.Warn(ctx, "readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable", Reason: "database"})
		return
	}
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ready"})
}

func userAndID(c *gin.Context) (*models.User, int64, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.AbortWithError(c, apperror.Unauthorized("Not authenticated"))
		return nil, 0, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.AbortWithError(c, apperror.Validation("Invalid todo id", map[string]any{"field": "id"}))
		return nil, 0, false
	}
	return user, id, true
}

// bindJSON decodes the body and writes a 422 listing the failing fields, or a
// 400 when the body is not JSON at all.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+": failed "+fe.Tag())
		}
		middleware.AbortWithError(c, apperror.Validation("Request validation failed", map[string]any{"errors": fields}))
		return false
	}

	middleware.AbortWithError(c, apperror.BadRequest("Invalid request body"))
	return false
}
