// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/holomush/keyward/internal/auth"
)

// MockCredentialVerifier is a mock implementation of auth.CredentialVerifier.
type MockCredentialVerifier struct {
	mock.Mock
}

var _ auth.CredentialVerifier = (*MockCredentialVerifier)(nil)

// NewMockCredentialVerifier creates a MockCredentialVerifier whose
// expectations are asserted when the test finishes.
func NewMockCredentialVerifier(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockCredentialVerifier {
	m := &MockCredentialVerifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockCredentialVerifier) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockCredentialVerifier) Verify(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}
