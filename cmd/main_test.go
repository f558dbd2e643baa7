// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/talosconf/internal/config"
	"github.com/xkilldash9x/talosconf/internal/observability"
)

const (
	sacFixture   = "../pkg/talosconfig/testdata/sac_her_talos.yaml"
	mpcFixture   = "../pkg/talosconfig/testdata/mpc_rl_talos.yaml"
	skeletonURDF = "../internal/robotdesc/testdata/talos_skeleton.urdf"
	skeletonSRDF = "../internal/robotdesc/testdata/talos_skeleton.srdf"
)

// resetForTest isolates a test from the user's settings and silences the global logger.
func resetForTest(t *testing.T) {
	t.Helper()

	// 1. Keep ~/.config/talosconf out of the picture.
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { homedir.DisableCache = false })

	// 2. Initialize the logger first so the command's own initialization is a no-op.
	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"}, zapcore.AddSync(io.Discard))
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs a pristine command tree and returns everything it printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)

	rootCmd := NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeFile writes content under a fresh temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fixtureWith returns a copy of a fixture with one substring replaced.
func fixtureWith(t *testing.T, fixture, old, replacement string) string {
	t.Helper()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	require.Contains(t, string(data), old)
	return writeFile(t, filepath.Base(fixture), strings.Replace(string(data), old, replacement, 1))
}

// modelTree lays out the skeleton robot model the way the fixtures address it.
func modelTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for src, dst := range map[string]string{
		skeletonURDF: filepath.Join(root, "talos_data", "robots", "talos_reduced.urdf"),
		skeletonSRDF: filepath.Join(root, "talos_data", "srdf", "talos.srdf"),
	} {
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		require.NoError(t, os.WriteFile(dst, data, 0o644))
	}
	return root
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
