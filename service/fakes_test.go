// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/VA7DBI/todoAPI/models"
	"github.com/VA7DBI/todoAPI/repository"
)

var errDBDown = errors.New("connection refused")

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
	err    error
	// raceOnCreate makes Create report a unique violation, as if another
	// request inserted the same email after ExistsByEmail ran.
	raceOnCreate bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}}
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, email, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.raceOnCreate {
		return nil, repository.ErrDuplicateEmail
	}
	for _, u := range f.byID {
		if u.Email == email {
			return nil, repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	u := &models.User{ID: f.nextID, Email: email, PasswordHash: hash, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type fakeTodos struct {
	mu     sync.Mutex
	byID   map[int64]*models.Todo
	nextID int64
	calls  int
	err    error
}

func newFakeTodos() *fakeTodos {
	return &fakeTodos{byID: map[int64]*models.Todo{}}
}

func (f *fakeTodos) GetByID(_ context.Context, id, userID int64) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.byID[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTodos) ListByUser(_ context.Context, userID int64) ([]models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	todos := []models.Todo{}
	for _, t := range f.byID {
		if t.UserID == userID {
			todos = append(todos, *t)
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID > todos[j].ID })
	return todos, nil
}

func (f *fakeTodos) Create(_ context.Context, userID int64, title string, description *string) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	t := &models.Todo{ID: f.nextID, UserID: userID, Title: title, Description: description,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	f.byID[t.ID] = t
	c := *t
	return &c, nil
}

func (f *fakeTodos) Update(_ context.Context, id, userID int64, ch models.TodoChanges) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.byID[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if ch.Title != nil {
		t.Title = *ch.Title
	}
	if ch.Description != nil {
		t.Description = ch.Description
	}
	if ch.Completed != nil {
		t.Completed = *ch.Completed
	}
	c := *t
	return &c, nil
}

func (f *fakeTodos) Delete(_ context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	t, ok := f.byID[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}
