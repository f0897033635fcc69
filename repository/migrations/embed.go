// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package migrations embeds the goose SQL migrations into the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
