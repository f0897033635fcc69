// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package service

import (
	"context"
	"errors"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/auth"
	"github.com/VA7DBI/todoAPI/logging"
	"github.com/VA7DBI/todoAPI/metrics"
	"github.com/VA7DBI/todoAPI/models"
	"github.com/VA7DBI/todoAPI/repository"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "User with this email already exists"
	msgUnauthorized       = "Could not validate credentials"
)

type AuthService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	policy PasswordPolicy
	log    logging.Logger
}

func NewAuthService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager, policy PasswordPolicy, log logging.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		policy: policy,
		log:    log.With("component", "auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, s.fail("register", "invalid", err)
	}
	if err := s.policy.Validate(password); err != nil {
		return nil, s.fail("register", "invalid", err)
	}

	// Best effort; the unique index is what actually guards concurrent signups.
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		s.log.Error(ctx, "email lookup failed", "error", err)
		return nil, s.fail("register", "error", apperror.Internal())
	}
	if exists {
		return nil, s.fail("register", "conflict", apperror.Conflict(msgEmailTaken))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, s.fail("register", "error", apperror.Internal())
	}

	user, err := s.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, s.fail("register", "conflict", apperror.Conflict(msgEmailTaken))
		}
		s.log.Error(ctx, "user insert failed", "error", err)
		return nil, s.fail("register", "error", apperror.Internal())
	}

	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login never reveals whether the email exists: both failure paths cost one
// bcrypt comparison and return the same message.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error(ctx, "user lookup failed", "error", err)
			return nil, s.fail("login", "error", apperror.Internal())
		}
		s.hasher.VerifyDummy(password)
		return nil, s.fail("login", "failure", apperror.Unauthorized(msgInvalidCredentials))
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.fail("login", "failure", apperror.Unauthorized(msgInvalidCredentials))
	}

	token, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		s.log.Error(ctx, "token signing failed", "error", err)
		return nil, s.fail("login", "error", apperror.Internal())
	}

	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        models.NewUserResponse(user),
	}, nil
}

// Authenticate resolves a bearer token to its user. Every failure, including
// a deleted account, is a plain 401.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.DecodeAccessToken(token)
	if err != nil {
		return nil, s.fail("authenticate", "failure", apperror.Unauthorized(msgUnauthorized))
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, s.fail("authenticate", "failure", apperror.Unauthorized(msgUnauthorized))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn(ctx, "user lookup failed during authentication", "error", err)
		}
		return nil, s.fail("authenticate", "failure", apperror.Unauthorized(msgUnauthorized))
	}

	metrics.AuthAttempts.WithLabelValues("authenticate", "success").Inc()
	return user, nil
}

// Subject returns the user id carried by a valid token without touching the
// database.
func (s *AuthService) Subject(token string) (int64, bool) {
	claims, err := s.tokens.DecodeAccessToken(token)
	if err != nil {
		return 0, false
	}
	id, err := claims.UserID()
	return id, err == nil
}

func (s *AuthService) fail(operation, status string, err error) error {
	metrics.AuthAttempts.WithLabelValues(operation, status).Inc()
	return err
}
