// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/samber/oops"
)

// MaxUsernameLength is the longest username accepted, in bytes.
const MaxUsernameLength = 255

// User represents an account that can own sessions.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated, active User. The ID is assigned by storage.
func NewUser(username, passwordHash string, now time.Time) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Non-empty and at most MaxUsernameLength bytes
// - No leading or trailing whitespace
// - No control characters
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d bytes", MaxUsernameLength)
	}
	if strings.TrimSpace(username) != username {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username cannot start or end with whitespace")
	}
	if strings.IndexFunc(username, unicode.IsControl) >= 0 {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username cannot contain control characters")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and assigns its ID.
	// Returns an error wrapping ErrAlreadyExists if the username is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]*User, error)

	// SetActive updates the active flag and UpdatedAt.
	SetActive(ctx context.Context, id int64, active bool, updatedAt time.Time) error

	// Delete removes a user and, through the foreign key, all of its sessions.
	Delete(ctx context.Context, id int64) error
}
