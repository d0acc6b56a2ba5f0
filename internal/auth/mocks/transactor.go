// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"
	"sync"

	"github.com/holomush/keyward/internal/auth"
)

// InlineTransactor runs units of work directly with no transaction and
// records how many ran.
type InlineTransactor struct {
	mu    sync.Mutex
	calls int
}

var _ auth.Transactor = (*InlineTransactor)(nil)

// InTransaction calls fn with ctx and returns its error.
func (t *InlineTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(ctx)
}

// Calls returns the number of units of work run so far.
func (t *InlineTransactor) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
