// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the Keyward session engine.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - NewSession - creates a Session bound to a user with an optional expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Engine
//
// Engine coordinates every state transition: user creation, authentication,
// session issue, validation and revocation. Each operation runs as a single
// unit of work through a Transactor; the storage layer's unique constraints on
// username and token are the authoritative guard against concurrent duplicates.
//
// Read paths (GetUser, AuthenticateUser, ValidateSession) report absence through
// a boolean rather than an error. Only precondition violations on mutating
// operations surface as errors (ErrDuplicateUser, ErrUserNotFound, ErrUserInactive).
//
// # Tokens
//
// Session tokens are hex-encoded random bytes. By default the token itself is
// the storage lookup key; TokenStorageSHA256 stores only its SHA-256 digest.
package auth
