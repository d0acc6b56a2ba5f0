// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/keyward/internal/auth"
)

// MockSessionRepository is a mock implementation of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

var _ auth.SessionRepository = (*MockSessionRepository)(nil)

// NewMockSessionRepository creates a MockSessionRepository whose expectations
// are asserted when the test finishes.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	args := m.Called(ctx, session)
	if fn, ok := args.Get(0).(func(context.Context, *auth.Session) error); ok {
		return fn(ctx, session)
	}
	return args.Error(0)
}

// GetByToken provides a mock function.
func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	args := m.Called(ctx, token)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

// List provides a mock function.
func (m *MockSessionRepository) List(ctx context.Context, filter auth.SessionFilter) ([]*auth.SessionInfo, error) {
	args := m.Called(ctx, filter)
	sessions, _ := args.Get(0).([]*auth.SessionInfo)
	return sessions, args.Error(1)
}

// Revoke provides a mock function.
func (m *MockSessionRepository) Revoke(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// RevokeByUser provides a mock function.
func (m *MockSessionRepository) RevokeByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
