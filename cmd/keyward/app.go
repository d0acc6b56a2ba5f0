// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/internal/config"
	"github.com/holomush/keyward/internal/logging"
	"github.com/holomush/keyward/internal/observability"
	"github.com/holomush/keyward/internal/store"
	"github.com/holomush/keyward/internal/telemetry"
	"github.com/holomush/keyward/pkg/errutil"
)

// app is the per-invocation wiring of configuration, storage and engine.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  *store.Backend
	engine   *auth.Engine
	shutdown telemetry.ShutdownFunc
}

// loadConfig reads the configuration named by the --config and --env-file
// flags, overlaid with any explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return config.Load(path, envFile, cmd.Flags())
}

// newLogger creates the command's logger on stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.Setup(serviceName, version, cfg.LogOptions(), cmd.ErrOrStderr())
}

// openApp loads configuration, opens storage and builds the engine.
// Callers must call close.
func openApp(cmd *cobra.Command, deps *Deps) (*app, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg)

	shutdown, err := deps.SetupTelemetry(ctx, serviceName, version, cfg.Telemetry.Endpoint)
	if err != nil {
		// Tracing is optional; keep going without it.
		errutil.Log(ctx, logger, slog.LevelWarn, "telemetry disabled", err)
		shutdown = func(context.Context) error { return nil }
	}

	backendCfg := cfg.BackendConfig()
	backendCfg.Logger = logger
	backend, err := deps.OpenBackend(ctx, backendCfg)
	if err != nil {
		_ = shutdown(ctx) //nolint:errcheck // open error takes precedence
		return nil, err
	}

	engine, err := auth.NewEngine(backend.Store, deps.Verifier, cfg.EngineConfig(), auth.WithLogger(logger))
	if err != nil {
		_ = backend.Close() //nolint:errcheck // engine error takes precedence
		_ = shutdown(ctx)   //nolint:errcheck // engine error takes precedence
		return nil, err
	}

	logger.DebugContext(ctx, "storage opened", "dialect", string(backend.Dialect))
	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		engine:   engine,
		shutdown: shutdown,
	}, nil
}

// close releases storage and flushes telemetry. Failures are logged.
func (a *app) close(ctx context.Context) {
	if err := a.backend.Close(); err != nil {
		errutil.Log(ctx, a.logger, slog.LevelWarn, "failed to close storage", err)
	}
	if err := a.shutdown(ctx); err != nil {
		errutil.Log(ctx, a.logger, slog.LevelWarn, "failed to flush telemetry", err)
	}
}

// withApp opens the app for the duration of fn and records the outcome to
// the metrics textfile when one is configured.
func withApp(cmd *cobra.Command, deps *Deps, fn func(a *app) error) error {
	a, err := openApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	recorder := observability.NewRecorder()
	err = fn(a)
	recorder.Finish(cmd.CommandPath(), a.engine.Now(), err)
	if writeErr := recorder.WriteTextfile(a.cfg.Metrics.Textfile); writeErr != nil {
		errutil.Log(cmd.Context(), a.logger, slog.LevelWarn, "failed to write metrics", writeErr)
	}
	return err
}
