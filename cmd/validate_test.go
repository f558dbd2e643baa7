// File: cmd/validate_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/talosconf/internal/config"
	"github.com/xkilldash9x/talosconf/internal/reporting"
)

func TestValidateCmd_RequiredArgs(t *testing.T) {
	out, err := executeCommand(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "Error: requires at least 1 arg(s), only received 0")
}

func TestValidateCmd_Fixtures(t *testing.T) {
	out, err := executeCommand(t, "validate", sacFixture, mpcFixture)
	require.NoError(t, err)
	assert.Equal(t,
		"ok    "+sacFixture+" (sac)\n"+
			"ok    "+mpcFixture+" (mpc-rl)\n"+
			"2 valid, 0 invalid\n",
		out)
}

func TestValidateCmd_InvalidDocument(t *testing.T) {
	bad := fixtureWith(t, sacFixture, "gamma: 0.99", "gamma: 1.5")

	out, err := executeCommand(t, "validate", sacFixture, bad)
	require.ErrorIs(t, err, errInvalidDocuments)
	assert.Contains(t, out, "ok    "+sacFixture)
	assert.Contains(t, out, "FAIL  "+bad+": ")
	assert.Contains(t, out, `"SAC.model_param.gamma"`)
	assert.Contains(t, out, "1 valid, 1 invalid")
	assert.NotContains(t, out, "Error:", "per-file failures are already reported")
	assert.NotContains(t, out, "Usage:")
}

func TestValidateCmd_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	out, err := executeCommand(t, "validate", missing)
	require.ErrorIs(t, err, errInvalidDocuments)
	assert.Contains(t, out, "FAIL  "+missing)
}

func TestValidateCmd_KindFlag(t *testing.T) {
	t.Run("forced kind must match", func(t *testing.T) {
		out, err := executeCommand(t, "validate", "--kind", "sac", mpcFixture)
		require.ErrorIs(t, err, errInvalidDocuments)
		assert.Contains(t, out, `"SAC"`)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := executeCommand(t, "validate", "--kind", "ppo", sacFixture)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid loader settings")
	})
}

func TestValidateCmd_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, err := executeCommand(t, "validate", "--format", "json", sacFixture, mpcFixture)
		require.NoError(t, err)

		var report reporting.Report
		require.NoError(t, jsoniter.Unmarshal([]byte(out), &report))
		assert.Equal(t, 2, report.Valid)
		assert.Equal(t, 0, report.Invalid)
		require.Len(t, report.Results, 2)
		assert.Equal(t, "mpc-rl", report.Results[1].Kind)
		assert.NotEmpty(t, report.RunID)
	})

	t.Run("sarif to file", func(t *testing.T) {
		bad := fixtureWith(t, sacFixture, "gamma: 0.99", "gamma: 1.5")
		output := filepath.Join(t.TempDir(), "report.sarif")

		out, err := executeCommand(t, "validate", "-f", "sarif", "-o", output, bad)
		require.ErrorIs(t, err, errInvalidDocuments)
		assert.Empty(t, out)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"TALOSCONF-RANGE"`)
		assert.Contains(t, string(data), `"2.1.0"`)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := executeCommand(t, "validate", "--format", "xml", sacFixture)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format: xml")
	})
}

func TestValidateCmd_CheckURDF(t *testing.T) {
	t.Run("search path flag", func(t *testing.T) {
		root := modelTree(t)
		out, err := executeCommand(t, "validate", "--check-urdf", "--search-path", root, sacFixture, mpcFixture)
		require.NoError(t, err)
		assert.Contains(t, out, "2 valid, 0 invalid")
	})

	t.Run("model path environment", func(t *testing.T) {
		root := modelTree(t)
		t.Setenv("TALOSCONF_MODEL_PATH", filepath.Join(root, "missing")+","+root)
		out, err := executeCommand(t, "validate", "--check-urdf", sacFixture)
		require.NoError(t, err)
		assert.Contains(t, out, "1 valid, 0 invalid")
	})

	t.Run("model not found", func(t *testing.T) {
		out, err := executeCommand(t, "validate", "--check-urdf", "--search-path", t.TempDir(), sacFixture)
		require.ErrorIs(t, err, errInvalidDocuments)
		assert.Contains(t, out, "robot model file not found")
	})

	t.Run("unknown joint", func(t *testing.T) {
		root := modelTree(t)
		bad := fixtureWith(t, sacFixture, "arm_left_1_joint", "arm_left_9_joint")
		out, err := executeCommand(t, "validate", "--check-urdf", "--search-path", root, bad)
		require.ErrorIs(t, err, errInvalidDocuments)
		assert.Contains(t, out, "arm_left_9_joint")
	})
}

func TestRunValidate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &syncBuffer{}
	err := runValidate(ctx, out, zap.NewNop(), config.NewDefaultConfig(), []string{sacFixture})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
