// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Repository sentinels. Storage implementations wrap these so the engine can
// interpret failures without depending on a driver.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an insert violates a uniqueness constraint.
	ErrAlreadyExists = errors.New("already exists")
)

// Engine errors surfaced to callers.
var (
	// ErrDuplicateUser is returned when creating a user whose username is taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrUserNotFound is returned when a session is requested for a missing user.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserInactive is returned when a session is requested for a disabled user.
	ErrUserInactive = errors.New("user is inactive")
)

// IsDuplicateUser reports whether err is a username collision.
func IsDuplicateUser(err error) bool {
	return errors.Is(err, ErrDuplicateUser)
}

// IsUserNotFound reports whether err is a missing-user precondition failure.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func duplicateUserError(username string) error {
	return oops.Code("USER_DUPLICATE").
		With("username", username).
		Wrapf(ErrDuplicateUser, "user %q already exists", username)
}

func userNotFoundError(userID int64) error {
	return oops.Code("USER_NOT_FOUND").
		With("user_id", userID).
		Wrapf(ErrUserNotFound, "user with id %d not found", userID)
}

func userInactiveError(userID int64) error {
	return oops.Code("USER_INACTIVE").
		With("user_id", userID).
		Wrapf(ErrUserInactive, "user with id %d is inactive", userID)
}
