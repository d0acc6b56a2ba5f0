// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "context"

// Transactor runs a unit of work.
//
// InTransaction begins a transaction, stores it in the context passed to fn,
// and commits if fn returns nil. Every other exit, including a panic, rolls
// back. Repository methods called with that context participate in the
// transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the storage dependencies of the Engine.
type Store struct {
	Transactor Transactor
	Users      UserRepository
	Sessions   SessionRepository
}
