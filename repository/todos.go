// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/VA7DBI/todoAPI/models"
)

// TodoRepository methods are scoped to one owner; a todo belonging to
// another user is reported as ErrNotFound.
type TodoRepository interface {
	GetByID(ctx context.Context, id, userID int64) (*models.Todo, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Todo, error)
	Create(ctx context.Context, userID int64, title string, description *string) (*models.Todo, error)
	Update(ctx context.Context, id, userID int64, changes models.TodoChanges) (*models.Todo, error)
	Delete(ctx context.Context, id, userID int64) error
}

type PostgresTodoRepository struct {
	db DBTX
}

func NewTodoRepository(db DBTX) *PostgresTodoRepository {
	return &PostgresTodoRepository{db: db}
}

const todoColumns = `id, user_id, title, description, completed, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*models.Todo, error) {
	t := &models.Todo{}
	var desc sql.NullString
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &desc, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	return t, nil
}

func rowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresTodoRepository) GetByID(ctx context.Context, id, userID int64) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTodo(row)
	if err != nil {
		return nil, rowErr(err)
	}
	return t, nil
}

// ListByUser returns the user's todos, newest first.
func (r *PostgresTodoRepository) ListByUser(ctx context.Context, userID int64) ([]models.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return todos, nil
}

func (r *PostgresTodoRepository) Create(ctx context.Context, userID int64, title string, description *string) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (user_id, title, description)
		 VALUES ($1, $2, $3)
		 RETURNING `+todoColumns,
		userID, title, description)
	t, err := scanTodo(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Update applies only the non-nil fields of changes.
func (r *PostgresTodoRepository) Update(ctx context.Context, id, userID int64, changes models.TodoChanges) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE todos SET
		   title = COALESCE($3, title),
		   description = COALESCE($4, description),
		   completed = COALESCE($5, completed),
		   updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+todoColumns,
		id, userID, changes.Title, changes.Description, changes.Completed)
	t, err := scanTodo(row)
	if err != nil {
		return nil, rowErr(err)
	}
	return t, nil
}

func (r *PostgresTodoRepository) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
