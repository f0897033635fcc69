// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userCols = []string{"id", "email", "password_hash", "created_at", "updated_at"}

func TestUserRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("GetByEmail", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "a@example.com", "$2a$hash", now, now))

		u, err := repo.GetByEmail(ctx, "a@example.com")
		assert.NoError(t, err)
		assert.Equal(t, int64(1), u.ID)
		assert.Equal(t, "$2a$hash", u.PasswordHash)
	})

	t.Run("GetByIDNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(int64(42)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Create", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("b@example.com", "hash").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "b@example.com", "hash", now, now))

		u, err := repo.Create(ctx, "b@example.com", "hash")
		assert.NoError(t, err)
		assert.Equal(t, int64(2), u.ID)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("b@example.com", "hash").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		_, err := repo.Create(ctx, "b@example.com", "hash")
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("CreateOtherError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("c@example.com", "hash").
			WillReturnError(sqlmock.ErrCancelled)

		_, err := repo.Create(ctx, "c@example.com", "hash")
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrDuplicateEmail))
	})

	t.Run("ExistsByEmail", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByEmail(ctx, "a@example.com")
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, _ := newMockDB(t)

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	t.Run("Success", func(t *testing.T) {
		var gotDir string
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			gotDir = dir
			return nil
		}
		assert.NoError(t, Migrate(context.Background(), db))
		assert.Equal(t, ".", gotDir)
	})

	t.Run("Error", func(t *testing.T) {
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			return errors.New("boom")
		}
		err := Migrate(context.Background(), db)
		assert.ErrorContains(t, err, "boom")
	})
}
