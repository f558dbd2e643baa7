// internal/reporting/reporter_test.go
package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/talosconf/internal/robotdesc"
	"github.com/xkilldash9x/talosconf/pkg/talosconfig"
)

// mockWriteCloser captures output and can simulate I/O errors.
type mockWriteCloser struct {
	bytes.Buffer
	failWrite bool
	failClose bool
	closed    bool
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	if m.failWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

func (m *mockWriteCloser) Close() error {
	m.closed = true
	if m.failClose {
		return errors.New("simulated close error")
	}
	return nil
}

func validResult(file string) *Result {
	return &Result{RunID: "run-1", File: file, Kind: "sac", Valid: true}
}

func invalidResult(file string, err error) *Result {
	return NewResult("run-1", file, nil, err, time.Millisecond)
}

// -- Factory --

func TestNew_LoggerRequirement(t *testing.T) {
	r, err := New(FormatText, "stdout", "v0", nil)
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "logger cannot be nil")
}

func TestNew_Formats(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cases := map[string]any{
		FormatText:  &TextReporter{},
		FormatJSON:  &JSONReporter{},
		FormatSARIF: &SARIFReporter{},
	}
	for format, want := range cases {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "report."+format)
			r, err := New(format, path, "v0", logger)
			require.NoError(t, err)
			assert.IsType(t, want, r)
			assert.FileExists(t, path)
			assert.NoError(t, r.Close())
		})
	}
}

func TestNew_Stdout(t *testing.T) {
	for _, path := range []string{"", "stdout"} {
		r, err := New(FormatSARIF, path, "v0", zaptest.NewLogger(t))
		require.NoError(t, err)
		sr, ok := r.(*SARIFReporter)
		require.True(t, ok)
		nwc, ok := sr.writer.(*nopWriteCloser)
		require.True(t, ok, "stdout must be wrapped so Close does not close it")
		assert.Equal(t, os.Stdout, nwc.Writer)
	}
}

func TestNopCloser(t *testing.T) {
	var buf bytes.Buffer
	wc := NopCloser(&buf)
	r := NewTextReporter(wc)
	require.NoError(t, r.Write(validResult("sac.yaml")))
	require.NoError(t, r.Close())

	// The underlying writer stays usable after the reporter is closed.
	_, err := buf.WriteString("after close\n")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sac.yaml")
	assert.True(t, strings.HasSuffix(buf.String(), "after close\n"))
	assert.NoError(t, wc.Close())
}

func TestNew_Failures(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("unsupported format creates no file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xml")
		r, err := New("xml", path, "v0", logger)
		assert.Nil(t, r)
		assert.ErrorContains(t, err, "unsupported output format: xml")
		assert.NoFileExists(t, path)
	})

	t.Run("unwritable path", func(t *testing.T) {
		r, err := New(FormatJSON, t.TempDir(), "v0", logger)
		assert.Nil(t, r)
		assert.ErrorContains(t, err, "failed to create output file")
	})

	t.Run("writer is closed on unknown format", func(t *testing.T) {
		w := &mockWriteCloser{}
		_, err := NewWithWriter("xml", w, "v0", logger)
		assert.Error(t, err)
		assert.True(t, w.closed)
	})
}

// -- Classification --

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantClass ErrorClass
		wantKey   string
		wantLine  int
	}{
		{"nil", nil, ClassNone, "", 0},
		{"parse", &talosconfig.ParseError{Source: "a.yaml", Err: errors.New("bad")}, ClassParse, "", 0},
		{"missing", &talosconfig.MissingFieldError{Key: "training.name"}, ClassMissingField, "training.name", 0},
		{"type", &talosconfig.TypeMismatchError{Key: "SAC.model_param.gamma", Expected: "number", Line: 12}, ClassTypeMismatch, "SAC.model_param.gamma", 12},
		{"range", &talosconfig.RangeError{Key: "SAC.model_param.tau"}, ClassRange, "SAC.model_param.tau", 0},
		{"range with line", &talosconfig.RangeError{Key: "SAC.model_param.tau", Line: 18}, ClassRange, "SAC.model_param.tau", 18},
		{"enum", &talosconfig.InvalidEnumError{Key: "environment.targetType"}, ClassInvalidEnum, "environment.targetType", 0},
		{"enum with line", &talosconfig.InvalidEnumError{Key: "environment.targetType", Line: 40}, ClassInvalidEnum, "environment.targetType", 40},
		{"arity", &talosconfig.ArityMismatchError{Key: "OCP.control_weights.torso"}, ClassArityMismatch, "OCP.control_weights.torso", 0},
		{"arity with line", &talosconfig.ArityMismatchError{Key: "OCP.control_weights.torso", Line: 7}, ClassArityMismatch, "OCP.control_weights.torso", 7},
		{"conflict", &talosconfig.ConflictError{Key: "SAC", Other: "OCP"}, ClassConflict, "SAC", 0},
		{"wrapped model error", fmt.Errorf("check: %w", &robotdesc.ModelError{Name: "half_sitting"}), ClassRobotModel, "", 0},
		{"model not found", fmt.Errorf("resolve: %w", robotdesc.ErrNotFound), ClassRobotModel, "", 0},
		{"io", os.ErrPermission, ClassIO, "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class, key, line := Classify(tc.err)
			assert.Equal(t, tc.wantClass, class)
			assert.Equal(t, tc.wantKey, key)
			assert.Equal(t, tc.wantLine, line)
		})
	}
}

func TestNewResult(t *testing.T) {
	doc := &talosconfig.Document{OCP: &talosconfig.OCPConfig{}}
	ok := NewResult("run", "mpc.yaml", doc, nil, time.Second)
	assert.True(t, ok.Valid)
	assert.Equal(t, "mpc-rl", ok.Kind)
	assert.Empty(t, ok.Message)

	bad := NewResult("run", "sac.yaml", nil, &talosconfig.RangeError{Key: "SAC.model_param.gamma", Value: 0.0, Range: "(0, 1]"}, time.Second)
	assert.False(t, bad.Valid)
	assert.Equal(t, ClassRange, bad.Class)
	assert.Equal(t, "SAC.model_param.gamma", bad.Key)
	assert.Contains(t, bad.Message, "(0, 1]")

	valid, invalid := Summary([]*Result{ok, bad, ok})
	assert.Equal(t, 2, valid)
	assert.Equal(t, 1, invalid)
}

// -- Concurrent validation --

func TestValidateFiles(t *testing.T) {
	files := []string{"a.yaml", "b.yaml", "c.yaml", "d.yaml", "e.yaml"}
	var inFlight, maxInFlight atomic.Int32

	fn := func(ctx context.Context, path string) (*talosconfig.Document, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if path == "c.yaml" {
			return nil, &talosconfig.MissingFieldError{Key: "training"}
		}
		return &talosconfig.Document{}, nil
	}

	results, err := ValidateFiles(context.Background(), files, fn, 2)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	for i, r := range results {
		assert.Equal(t, files[i], r.File, "results keep input order")
		assert.Equal(t, results[0].RunID, r.RunID, "all results share a run ID")
	}
	assert.NotEmpty(t, results[0].RunID)
	assert.False(t, results[2].Valid)
	assert.Equal(t, ClassMissingField, results[2].Class)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestValidateFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	results, err := ValidateFiles(ctx, []string{"a.yaml"}, func(context.Context, string) (*talosconfig.Document, error) {
		called = true
		return nil, nil
	}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.False(t, called)
}

// -- Text and JSON output --

func TestTextReporter(t *testing.T) {
	w := &mockWriteCloser{}
	r := NewTextReporter(w)

	require.NoError(t, r.Write(validResult("sac.yaml")))
	require.NoError(t, r.Write(invalidResult("mpc.yaml", &talosconfig.MissingFieldError{Key: "OCP.horizon_length"})))
	require.NoError(t, r.Close())

	out := w.String()
	assert.Contains(t, out, "ok    sac.yaml (sac)\n")
	assert.Contains(t, out, `FAIL  mpc.yaml: missing required key "OCP.horizon_length"`)
	assert.Contains(t, out, "1 valid, 1 invalid\n")
	assert.True(t, w.closed)
}

func TestTextReporter_WriteError(t *testing.T) {
	r := NewTextReporter(&mockWriteCloser{failWrite: true})
	assert.ErrorContains(t, r.Write(validResult("a.yaml")), "simulated write error")
}

func TestJSONReporter(t *testing.T) {
	w := &mockWriteCloser{}
	r := NewJSONReporter(w, zaptest.NewLogger(t))

	require.NoError(t, r.Write(validResult("sac.yaml")))
	require.NoError(t, r.Write(invalidResult("mpc.yaml", &talosconfig.ConflictError{Key: "SAC", Other: "OCP"})))
	require.NoError(t, r.Close())

	var report Report
	require.NoError(t, json.Unmarshal(w.Bytes(), &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	require.Len(t, report.Results, 2)
	assert.Equal(t, ClassConflict, report.Results[1].Class)
	assert.Equal(t, "SAC", report.Results[1].Key)
}

func TestJSONReporter_EmptyAndFailures(t *testing.T) {
	w := &mockWriteCloser{}
	require.NoError(t, NewJSONReporter(w, zaptest.NewLogger(t)).Close())
	assert.JSONEq(t, `{"valid":0,"invalid":0,"results":[]}`, w.String())

	err := NewJSONReporter(&mockWriteCloser{failWrite: true}, zaptest.NewLogger(t)).Close()
	assert.ErrorContains(t, err, "failed to encode JSON output")

	err = NewJSONReporter(&mockWriteCloser{failClose: true}, zaptest.NewLogger(t)).Close()
	assert.ErrorContains(t, err, "failed to close output writer")
}
