// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/pkg/errutil"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	auth.UsersCreated.Inc()
	r.Finish("user create", time.Unix(1767225600, 0), nil)

	path := filepath.Join(t.TempDir(), "keyward.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "keyward_users_created_total")
	assert.Contains(t, text, `keyward_last_run_timestamp_seconds{command="user create"}`)
	assert.Contains(t, text, `keyward_last_run_success{command="user create"} 1`)
}

func TestRecorder_Failure(t *testing.T) {
	r := NewRecorder()
	r.Finish("session login", time.Now(), errors.New("invalid credentials"))

	expected := `
# HELP keyward_last_run_success Whether the command's last run succeeded (1) or failed (0)
# TYPE keyward_last_run_success gauge
keyward_last_run_success{command="session login"} 0
`
	require.NoError(t, testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "keyward_last_run_success"))
}

func TestRecorder_OutcomeReflectsLastRun(t *testing.T) {
	r := NewRecorder()
	r.Finish("session login", time.Now(), errors.New("invalid credentials"))
	r.Finish("session login", time.Now(), nil)

	expected := `
# HELP keyward_last_run_success Whether the command's last run succeeded (1) or failed (0)
# TYPE keyward_last_run_success gauge
keyward_last_run_success{command="session login"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "keyward_last_run_success"))
}

func TestRecorder_EmptyPathIsNoop(t *testing.T) {
	assert.NoError(t, NewRecorder().WriteTextfile(""))
}

func TestRecorder_WriteFailure(t *testing.T) {
	err := NewRecorder().WriteTextfile(filepath.Join(t.TempDir(), "missing", "keyward.prom"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "METRICS_WRITE_FAILED")
}
