// Package cli — launch.go implements the "stepmotor launch" command.
//
// Launch is the boot-time entry point for the rig: it runs the GPIO
// pre-flight checks (privileges, stale sysfs exports), then starts the
// control UI as a child process, trying display backends in order until
// one comes up. When every backend fails it prints remediation guidance
// once and exits with a dedicated code so init scripts can tell launch
// failures from sequence failures.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sayedtaban/stepmotor/internal/gpio"
	"github.com/sayedtaban/stepmotor/internal/launcher"
	"github.com/sayedtaban/stepmotor/internal/model"
)

// launchFlags holds the flag values for the launch command.
type launchFlags struct {
	// backends overrides the profile's display backend candidates.
	backends []string

	// sysfsRoot is the sysfs GPIO directory checked for stale exports.
	// Overridable for tests.
	sysfsRoot string
}

// NewLaunchCommand creates the "launch" cobra command.
func NewLaunchCommand() *cobra.Command {
	flags := &launchFlags{}

	cmd := &cobra.Command{
		Use:   "launch [-- command args...]",
		Short: "Pre-flight check the GPIO pins and start the control UI",
		Long: `Run the GPIO pre-flight checks, then start the control UI, trying each
display backend in order until one succeeds.

By default the launched command is this binary's own "control" command.
An alternative command can be given after "--".

Examples:
  stepmotor launch
  stepmotor launch --backends eglfs,xcb
  stepmotor launch -- /usr/local/bin/motor-gui`,

		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, flags, args)
		},
	}

	cmd.Flags().StringSliceVar(&flags.backends, "backends", nil,
		"Display backends to try in order (default: from profile)")
	cmd.Flags().StringVar(&flags.sysfsRoot, "sysfs", gpio.DefaultSysfsRoot,
		"Sysfs GPIO root checked for stale exports")

	return cmd
}

// runLaunch is the main logic function for the launch command.
func runLaunch(cmd *cobra.Command, flags *launchFlags, args []string) error {
	log := newLogger()
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Step 1: privilege check. The character device usually works for
	// members of the gpio group, so a non-root euid is a warning, not
	// a hard stop.
	if euid := os.Geteuid(); euid != 0 {
		fmt.Fprintf(out, "Warning: not running as root (euid %d); GPIO access may require the gpio group or sudo\n", euid)
	}

	// Step 2: stale sysfs exports left behind by a crashed run keep
	// pins busy. One line per affected pin.
	for _, pin := range gpio.StaleExports(flags.sysfsRoot, cfg.Plan.Pins()) {
		fmt.Fprintf(out, "Warning: GPIO %d is still exported under %s (echo %d > %s/unexport to release)\n",
			pin, flags.sysfsRoot, pin, flags.sysfsRoot)
	}

	// Step 3: resolve the backend chain, flag overriding profile.
	names := cfg.Display.Backends
	if len(flags.backends) > 0 {
		names = flags.backends
	}
	backends, err := launcher.ParseBackends(names)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid display backends", err)
	}

	// Step 4: decide what to launch. Default is our own control UI,
	// propagating the global flags so the child sees the same profile.
	argv := args
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot determine own executable path", err)
		}
		argv = []string{self, "control"}
		if configPath != "" {
			argv = append(argv, "--config", configPath)
		}
		if simulate {
			argv = append(argv, "--simulate")
		}
		if verbose {
			argv = append(argv, "--verbose")
		}
	}

	l := launcher.New(launcher.ExecRunner{}, backends, cfg.Display.Width, cfg.Display.Height, log)
	backend, err := l.Launch(cmd.Context(), argv)
	if err == nil {
		VerboseLog("control UI exited cleanly (backend %s)", backend)
		return nil
	}

	// All candidates failed: print the guidance once, then exit with
	// the launch-specific code.
	if _, ok := err.(*launcher.ExhaustedError); ok {
		fmt.Fprintln(out, launcher.Remediation())
		return model.WrapCLIError(model.ExitLaunchExhausted, "all display backends failed", err)
	}

	log.Error("launch aborted", zap.Error(err))
	return model.WrapCLIError(model.ExitGeneralError, "launch aborted", err)
}
