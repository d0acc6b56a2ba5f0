// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Result labels for authentication and validation metrics.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInactive           = "inactive"
	ResultUnknown            = "unknown"
	ResultExpired            = "expired"
	ResultRevoked            = "revoked"
)

// Authentications counts authentication attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var Authentications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "keyward_authentications_total",
		Help: "Total number of authentication attempts by result",
	},
	[]string{"result"},
)

// SessionValidations counts token validations by result.
var SessionValidations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "keyward_session_validations_total",
		Help: "Total number of session token validations by result",
	},
	[]string{"result"},
)

// SessionsIssued counts newly issued sessions.
var SessionsIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "keyward_sessions_issued_total",
		Help: "Total number of sessions issued",
	},
)

// SessionsRevoked counts sessions transitioned to revoked.
var SessionsRevoked = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "keyward_sessions_revoked_total",
		Help: "Total number of sessions revoked",
	},
)

// TokenCollisions counts token unique-constraint collisions that forced a retry.
var TokenCollisions = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "keyward_session_token_collisions_total",
		Help: "Total number of session token collisions",
	},
)

// UsersCreated counts created users.
var UsersCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "keyward_users_created_total",
		Help: "Total number of users created",
	},
)

// UsersDeleted counts deleted users.
var UsersDeleted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "keyward_users_deleted_total",
		Help: "Total number of users deleted",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		Authentications,
		SessionValidations,
		SessionsIssued,
		SessionsRevoked,
		TokenCollisions,
		UsersCreated,
		UsersDeleted,
	)
}
