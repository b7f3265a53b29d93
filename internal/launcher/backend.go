// Package launcher starts the control UI child process, trying display
// backend candidates in order until one exits cleanly.
//
// A display backend is handed to the child purely through environment
// variables (QT_QPA_PLATFORM and friends); the launcher never renders
// anything itself. On headless rigs the chain eglfs → offscreen →
// linuxfb finds whichever backend the installed toolkit can bring up.
package launcher

import (
	"fmt"
	"strings"
)

// Backend identifies a display backend candidate.
type Backend string

const (
	// BackendEGLFS renders fullscreen via EGL, the usual choice on a
	// Pi without a desktop environment.
	BackendEGLFS Backend = "eglfs"

	// BackendOffscreen renders to nothing; useful when only the motor
	// sequence matters.
	BackendOffscreen Backend = "offscreen"

	// BackendLinuxFB renders to the legacy framebuffer device.
	BackendLinuxFB Backend = "linuxfb"

	// BackendXCB renders into an X11 window (desktop Pi images).
	BackendXCB Backend = "xcb"
)

// String returns the string representation of Backend.
func (b Backend) String() string {
	return string(b)
}

// IsValid checks whether the Backend value is one of the predefined
// valid backends.
func (b Backend) IsValid() bool {
	switch b {
	case BackendEGLFS, BackendOffscreen, BackendLinuxFB, BackendXCB:
		return true
	default:
		return false
	}
}

// ParseBackend converts a string to a Backend.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", fmt.Errorf("invalid display backend: %q (valid: eglfs, offscreen, linuxfb, xcb)", s)
	}
	return b, nil
}

// ParseBackends converts a list of strings, rejecting empty lists.
func ParseBackends(names []string) ([]Backend, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no display backends configured")
	}
	backends := make([]Backend, len(names))
	for i, name := range names {
		b, err := ParseBackend(name)
		if err != nil {
			return nil, err
		}
		backends[i] = b
	}
	return backends, nil
}

// DefaultBackends is the standard fallback chain for a headless Pi.
func DefaultBackends() []Backend {
	return []Backend{BackendEGLFS, BackendOffscreen, BackendLinuxFB}
}
