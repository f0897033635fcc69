// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"github.com/VA7DBI/todoAPI/apperror"
	"github.com/gin-gonic/gin"
)

// AbortWithError writes the error envelope and stops the handler chain.
// Errors that are not *apperror.Error are reported as INTERNAL_ERROR.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	c.AbortWithStatusJSON(appErr.Status, appErr.Body())
}
