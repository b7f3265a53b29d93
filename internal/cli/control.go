// Package cli — control.go implements the "stepmotor control" command.
//
// Control is the interactive mode: a terminal UI for editing the
// sequence plan and starting, watching and stopping runs. Because the
// UI owns the terminal, logs are written to a file instead of stderr.
// A profile watcher pushes on-disk profile edits into the UI between
// runs.
package cli

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sayedtaban/stepmotor/internal/config"
	"github.com/sayedtaban/stepmotor/internal/gpio"
	"github.com/sayedtaban/stepmotor/internal/logging"
	"github.com/sayedtaban/stepmotor/internal/model"
	"github.com/sayedtaban/stepmotor/internal/motor"
	"github.com/sayedtaban/stepmotor/internal/tui"
)

// controlFlags holds the flag values for the control command.
type controlFlags struct {
	// logFile is where logs go while the UI owns the terminal.
	logFile string
}

// NewControlCommand creates the "control" cobra command.
func NewControlCommand() *cobra.Command {
	flags := &controlFlags{}

	cmd := &cobra.Command{
		Use:   "control",
		Short: "Interactive motor control UI",
		Long: `Open the interactive control UI: edit speeds, angles, delays and the
return mode, then start and stop sequence runs. A second view streams
the engine's event log.

Profile edits on disk are picked up automatically between runs.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(flags)
		},
	}

	cmd.Flags().StringVar(&flags.logFile, "log-file",
		filepath.Join(os.TempDir(), "stepmotor.log"),
		"Log file used while the UI owns the terminal")

	return cmd
}

// runControl is the main logic function for the control command.
func runControl(flags *controlFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closeLog, err := logging.NewFile(flags.logFile, verbose)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "cannot open log file", err)
	}
	defer closeLog()

	chip, err := gpio.Open(simulate, log)
	if err != nil {
		return err
	}
	defer func() { _ = chip.Close() }()

	engine := motor.New(chip, log)
	program := tea.NewProgram(tui.New(engine, cfg.Plan, log), tea.WithAltScreen())

	// Push on-disk profile edits into the UI. Only when a profile file
	// was actually loaded — there is nothing to watch for the built-in
	// defaults.
	if cfg.Source != "" {
		watcher := config.NewWatcher(cfg.Source, func(c *config.Config) {
			program.Send(tui.PlanReloadedMsg{Plan: c.Plan})
		}, log)
		if err := watcher.Start(); err != nil {
			log.Warn("profile watcher unavailable")
		} else {
			defer watcher.Stop()
		}
	}

	if _, err := program.Run(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "control UI failed", err)
	}

	// The UI stops the engine on quit; Stop here is a no-op unless the
	// UI crashed mid-run.
	engine.Stop()
	return nil
}
