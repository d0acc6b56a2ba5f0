// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/internal/store"
)

// setupPostgresContainer starts a PostgreSQL container and returns its URL.
func setupPostgresContainer(ctx context.Context) (string, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("keyward_test"),
		postgres.WithUsername("keyward"),
		postgres.WithPassword("keyward"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}

	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return connStr, cleanup, nil
}

var _ = Describe("PostgreSQL backend", Ordered, func() {
	var (
		ctx     context.Context
		backend *store.Backend
		cleanup func()
	)

	BeforeAll(func() {
		ctx = context.Background()
		url, stop, err := setupPostgresContainer(ctx)
		Expect(err).NotTo(HaveOccurred())
		cleanup = stop

		backend, err = store.OpenBackend(ctx, store.BackendConfig{
			URL:            url,
			ConnectTimeout: 30 * time.Second,
			AutoMigrate:    true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(backend.Dialect).To(Equal(store.DialectPostgres))
	})

	AfterAll(func() {
		if backend != nil {
			Expect(backend.Close()).To(Succeed())
		}
		if cleanup != nil {
			cleanup()
		}
	})

	newUser := func(name string) *auth.User {
		user, err := auth.NewUser(name, "hash", time.Now().UTC())
		Expect(err).NotTo(HaveOccurred())
		Expect(backend.Users.Create(ctx, user)).To(Succeed())
		return user
	}

	Describe("users", func() {
		It("assigns IDs and enforces unique usernames", func() {
			user := newUser("schema-alice")
			Expect(user.ID).To(BeNumerically(">", 0))

			dup, err := auth.NewUser("schema-alice", "hash", time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			err = backend.Users.Create(ctx, dup)
			Expect(errors.Is(err, auth.ErrAlreadyExists)).To(BeTrue())
		})

		It("reports missing users as not found", func() {
			_, err := backend.Users.GetByID(ctx, 999999)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("sessions", func() {
		It("enforces unique tokens", func() {
			user := newUser("schema-bob")
			first, err := auth.NewSession(user.ID, "dup-token", time.Now().UTC(), time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.Sessions.Create(ctx, first)).To(Succeed())

			second, err := auth.NewSession(user.ID, "dup-token", time.Now().UTC(), time.Hour)
			Expect(err).NotTo(HaveOccurred())
			err = backend.Sessions.Create(ctx, second)
			Expect(errors.Is(err, auth.ErrAlreadyExists)).To(BeTrue())
		})

		It("rejects sessions for missing users", func() {
			session, err := auth.NewSession(999999, "orphan-token", time.Now().UTC(), 0)
			Expect(err).NotTo(HaveOccurred())
			err = backend.Sessions.Create(ctx, session)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("cascades user deletion to sessions", func() {
			user := newUser("schema-carol")
			session, err := auth.NewSession(user.ID, "carol-token", time.Now().UTC(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.Sessions.Create(ctx, session)).To(Succeed())

			Expect(backend.Users.Delete(ctx, user.ID)).To(Succeed())

			_, err = backend.Sessions.GetByToken(ctx, "carol-token")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})

		It("round-trips nullable expiry", func() {
			user := newUser("schema-dave")
			session, err := auth.NewSession(user.ID, "dave-token", time.Now().UTC(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.Sessions.Create(ctx, session)).To(Succeed())

			got, err := backend.Sessions.GetByToken(ctx, "dave-token")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ExpiresAt).To(BeNil())
			Expect(got.Revoked).To(BeFalse())
		})
	})
})
