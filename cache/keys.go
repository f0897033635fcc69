// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "strconv"

const (
	TodoPrefix      = "todo:"
	UserTodosPrefix = "user_todos:"
	RateLimitPrefix = "rate_limit:"
)

func TodoKey(todoID int64) string {
	return TodoPrefix + strconv.FormatInt(todoID, 10)
}

func UserTodosKey(userID int64) string {
	return UserTodosPrefix + strconv.FormatInt(userID, 10)
}

// RateLimitKey is namespaced by action first so one identifier gets an
// independent counter per action.
func RateLimitKey(identifier, action string) string {
	return RateLimitPrefix + action + ":" + identifier
}
