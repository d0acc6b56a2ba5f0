// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/internal/store"
	"github.com/holomush/keyward/internal/telemetry"
)

// Deps contains injectable dependencies for all commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenBackend opens the configured storage backend.
	// Default: store.OpenBackend
	OpenBackend func(ctx context.Context, cfg store.BackendConfig) (*store.Backend, error)

	// Verifier hashes and checks passwords.
	// Default: auth.NewArgon2idHasher()
	Verifier auth.CredentialVerifier

	// SetupTelemetry installs trace export for the configured endpoint.
	// Default: telemetry.Setup
	SetupTelemetry func(ctx context.Context, service, version, endpoint string) (telemetry.ShutdownFunc, error)
}

// withDefaults returns a copy of d with nil fields filled in.
func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.OpenBackend == nil {
		out.OpenBackend = store.OpenBackend
	}
	if out.Verifier == nil {
		out.Verifier = auth.NewArgon2idHasher()
	}
	if out.SetupTelemetry == nil {
		out.SetupTelemetry = telemetry.Setup
	}
	return out
}
