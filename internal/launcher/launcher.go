package launcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment variables understood by the launched UI toolkit.
const (
	// EnvPlatform selects the display backend.
	EnvPlatform = "QT_QPA_PLATFORM"

	// EnvPhysicalWidth and EnvPhysicalHeight describe the display's
	// physical dimensions for backends that cannot query them (eglfs).
	EnvPhysicalWidth  = "QT_QPA_EGLFS_PHYSICAL_WIDTH"
	EnvPhysicalHeight = "QT_QPA_EGLFS_PHYSICAL_HEIGHT"
)

// Attempt records the outcome of launching with one backend.
type Attempt struct {
	// Backend is the display backend of this attempt.
	Backend Backend

	// Err is the launch failure, nil for the successful attempt.
	Err error
}

// ExhaustedError is returned when every backend candidate failed.
type ExhaustedError struct {
	// Attempts holds one entry per tried backend, in order.
	Attempts []Attempt
}

// Error lists the failed backends and their errors.
func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%v)", a.Backend, a.Err)
	}
	return "all display backends failed: " + strings.Join(parts, ", ")
}

// Launcher tries display backend candidates in order until the child
// process exits zero.
type Launcher struct {
	runner   Runner
	log      *zap.Logger
	backends []Backend
	width    int
	height   int
}

// New creates a Launcher. backends must not be empty; width and height
// of 0 suppress the physical-dimension variables.
func New(runner Runner, backends []Backend, width, height int, log *zap.Logger) *Launcher {
	return &Launcher{
		runner:   runner,
		log:      log,
		backends: backends,
		width:    width,
		height:   height,
	}
}

// Launch runs argv once per backend candidate, in order, and stops at
// the first attempt that exits zero, returning its backend. No further
// attempts are made after a success. When every candidate fails, the
// returned error is an *ExhaustedError carrying all attempts.
//
// A canceled context stops the chain immediately: a child killed by
// cancellation must not trigger a retry on the next backend.
func (l *Launcher) Launch(ctx context.Context, argv []string) (Backend, error) {
	if len(l.backends) == 0 {
		return "", fmt.Errorf("no display backends configured")
	}

	var attempts []Attempt
	for _, backend := range l.backends {
		env := l.envFor(backend)
		l.log.Info("launching",
			zap.String("backend", backend.String()),
			zap.Strings("argv", argv),
		)

		err := l.runner.Run(ctx, argv, env)
		if err == nil {
			l.log.Info("launch succeeded", zap.String("backend", backend.String()))
			return backend, nil
		}

		attempts = append(attempts, Attempt{Backend: backend, Err: err})
		l.log.Warn("launch attempt failed",
			zap.String("backend", backend.String()),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", &ExhaustedError{Attempts: attempts}
}

// envFor builds the child environment overrides for one backend.
func (l *Launcher) envFor(backend Backend) map[string]string {
	env := map[string]string{
		EnvPlatform: backend.String(),
	}
	if l.width > 0 && l.height > 0 {
		env[EnvPhysicalWidth] = strconv.Itoa(l.width)
		env[EnvPhysicalHeight] = strconv.Itoa(l.height)
	}
	return env
}

// Remediation returns the guidance text printed once when every backend
// candidate has failed.
func Remediation() string {
	return `All display backends failed to start the control UI.

Things to try:
  1. Install the display platform plugins:
       sudo apt-get install qt5-default libqt5gui5
  2. If a desktop is running, launch into it:
       export QT_QPA_PLATFORM=xcb   (and check that DISPLAY is set, e.g. :0)
  3. Check for stale GPIO exports from a previous run:
       ls /sys/class/gpio/
  4. Make sure your user may access the GPIO character device:
       sudo usermod -aG gpio $USER   (log out and back in afterwards)
  5. Reboot the Raspberry Pi:
       sudo reboot`
}
