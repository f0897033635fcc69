// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/VA7DBI/todoAPI/auth"
	"github.com/VA7DBI/todoAPI/config"
	"github.com/go-playground/validator/v10"
)

const specialCharacters = `!@#$%^&*(),.?":{}|<>`

var validate = validator.New()

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func PasswordPolicyFromConfig(cfg *config.Config) PasswordPolicy {
	return PasswordPolicy{
		MinLength:        cfg.Password.MinLength,
		RequireUppercase: cfg.Password.RequireUppercase,
		RequireLowercase: cfg.Password.RequireLowercase,
		RequireNumber:    cfg.Password.RequireNumber,
		RequireSpecial:   cfg.Password.RequireSpecial,
	}
}

// Check returns every rule the password breaks, or nil.
func (p PasswordPolicy) Check(password string) []string {
	var errs []string

	if len([]rune(password)) < p.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters", p.MinLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		errs = append(errs, fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if p.RequireUppercase && !strings.ContainsFunc(password, unicode.IsUpper) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !strings.ContainsFunc(password, unicode.IsLower) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if p.RequireNumber && !strings.ContainsFunc(password, unicode.IsDigit) {
		errs = append(errs, "Password must contain at least one number")
	}
	if p.RequireSpecial && !strings.ContainsAny(password, specialCharacters) {
		errs = append(errs, "Password must contain at least one special character")
	}

	return errs
}

func (p PasswordPolicy) Validate(password string) error {
	if errs := p.Check(password); len(errs) > 0 {
		return apperror.Validation("Password does not meet strength requirements",
			map[string]any{"errors": errs})
	}
	return nil
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return apperror.Validation("Invalid email format", map[string]any{"field": "email"})
	}
	return nil
}

// NormalizeEmail lowercases and trims so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
