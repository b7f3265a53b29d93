package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeRunner scripts one outcome per attempt and records the argv and
// env of every call.
type fakeRunner struct {
	outcomes []error
	calls    []fakeCall
}

type fakeCall struct {
	argv []string
	env  map[string]string
}

func (f *fakeRunner) Run(_ context.Context, argv []string, env map[string]string) error {
	f.calls = append(f.calls, fakeCall{argv: argv, env: env})
	if len(f.outcomes) == 0 {
		return nil
	}
	err := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return err
}

// TestParseBackend verifies parsing, case normalization and rejection.
func TestParseBackend(t *testing.T) {
	tests := []struct {
		input    string
		expected Backend
		hasError bool
	}{
		{"eglfs", BackendEGLFS, false},
		{"offscreen", BackendOffscreen, false},
		{"linuxfb", BackendLinuxFB, false},
		{"xcb", BackendXCB, false},
		{"EGLFS", BackendEGLFS, false},
		{" linuxfb ", BackendLinuxFB, false},
		{"wayland", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseBackend(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestParseBackends covers list parsing and the empty-list rejection.
func TestParseBackends(t *testing.T) {
	backends, err := ParseBackends([]string{"eglfs", "offscreen"})
	require.NoError(t, err)
	assert.Equal(t, []Backend{BackendEGLFS, BackendOffscreen}, backends)

	_, err = ParseBackends(nil)
	assert.Error(t, err)

	_, err = ParseBackends([]string{"eglfs", "bogus"})
	assert.Error(t, err)
}

// TestLaunch_FirstSucceeds verifies that a clean first exit stops the
// chain: exactly one attempt, no error.
func TestLaunch_FirstSucceeds(t *testing.T) {
	runner := &fakeRunner{outcomes: []error{nil}}
	l := New(runner, DefaultBackends(), 800, 600, zaptest.NewLogger(t))

	backend, err := l.Launch(context.Background(), []string{"stepmotor", "control"})
	require.NoError(t, err)
	assert.Equal(t, BackendEGLFS, backend)
	require.Len(t, runner.calls, 1)

	env := runner.calls[0].env
	assert.Equal(t, "eglfs", env[EnvPlatform])
	assert.Equal(t, "800", env[EnvPhysicalWidth])
	assert.Equal(t, "600", env[EnvPhysicalHeight])
}

// TestLaunch_FallsBack verifies the second candidate runs only after
// the first fails, and that each attempt gets its own platform value.
func TestLaunch_FallsBack(t *testing.T) {
	runner := &fakeRunner{outcomes: []error{errors.New("exit status 1"), nil}}
	l := New(runner, DefaultBackends(), 0, 0, zaptest.NewLogger(t))

	backend, err := l.Launch(context.Background(), []string{"stepmotor", "control"})
	require.NoError(t, err)
	assert.Equal(t, BackendOffscreen, backend)
	require.Len(t, runner.calls, 2)

	assert.Equal(t, "eglfs", runner.calls[0].env[EnvPlatform])
	assert.Equal(t, "offscreen", runner.calls[1].env[EnvPlatform])

	// Width/height of zero must not leak dimension variables.
	_, hasWidth := runner.calls[0].env[EnvPhysicalWidth]
	assert.False(t, hasWidth)
}

// TestLaunch_Exhausted verifies the bounded retry contract: one attempt
// per candidate, then an ExhaustedError listing all of them.
func TestLaunch_Exhausted(t *testing.T) {
	runner := &fakeRunner{outcomes: []error{
		errors.New("exit status 1"),
		errors.New("exit status 134"),
		errors.New("exit status 1"),
	}}
	l := New(runner, DefaultBackends(), 800, 600, zaptest.NewLogger(t))

	_, err := l.Launch(context.Background(), []string{"stepmotor", "control"})
	require.Error(t, err)
	require.Len(t, runner.calls, 3)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, BackendEGLFS, exhausted.Attempts[0].Backend)
	assert.Equal(t, BackendLinuxFB, exhausted.Attempts[2].Backend)
	assert.Contains(t, exhausted.Error(), "eglfs")
}

// TestLaunch_CanceledContext verifies cancellation stops the chain
// instead of retrying with the next backend.
func TestLaunch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	runner := &fakeRunner{outcomes: []error{errors.New("signal: killed")}}
	// Cancel as part of the first attempt failing.
	cancel()

	l := New(runner, DefaultBackends(), 0, 0, zaptest.NewLogger(t))
	_, err := l.Launch(ctx, []string{"stepmotor", "control"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, runner.calls, 1)
}

// TestRemediation pins down the guidance contract: non-empty, mentions
// the sysfs path and the platform override.
func TestRemediation(t *testing.T) {
	text := Remediation()
	assert.Contains(t, text, "/sys/class/gpio")
	assert.Contains(t, text, "QT_QPA_PLATFORM")
	assert.Contains(t, text, "reboot")
}

// TestMergeEnv verifies overrides shadow inherited values.
func TestMergeEnv(t *testing.T) {
	merged := mergeEnv([]string{"HOME=/root", "QT_QPA_PLATFORM=xcb"}, map[string]string{
		"QT_QPA_PLATFORM": "eglfs",
	})
	// Later entries win in os/exec.
	assert.Equal(t, []string{"HOME=/root", "QT_QPA_PLATFORM=xcb", "QT_QPA_PLATFORM=eglfs"}, merged)
}
