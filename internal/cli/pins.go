// Package cli — pins.go implements the "stepmotor pins" command.
//
// Pins is the minimal boot-script probe: it checks the configured pins
// for stale sysfs exports and prints one line per affected pin. A clean
// rig produces no output at all, which keeps boot logs quiet.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayedtaban/stepmotor/internal/gpio"
)

// pinsFlags holds the flag values for the pins command.
type pinsFlags struct {
	// sysfsRoot is the sysfs GPIO directory to check. Overridable for
	// tests.
	sysfsRoot string
}

// NewPinsCommand creates the "pins" cobra command.
func NewPinsCommand() *cobra.Command {
	flags := &pinsFlags{}

	cmd := &cobra.Command{
		Use:   "pins",
		Short: "Check the configured pins for stale sysfs exports",
		Long: `Check every pin of the configured rig for a leftover sysfs export and
print one warning line per affected pin. No output means all pins are
clean.

Stale exports come from crashed runs of legacy sysfs-based tools; a pin
that is still exported cannot be claimed by the motor engine.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPins(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.sysfsRoot, "sysfs", gpio.DefaultSysfsRoot,
		"Sysfs GPIO root to check")

	return cmd
}

// runPins is the main logic function for the pins command.
func runPins(cmd *cobra.Command, flags *pinsFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stale := gpio.StaleExports(flags.sysfsRoot, cfg.Plan.Pins())
	out := cmd.OutOrStdout()

	if IsJSONOutput() {
		payload := map[string]interface{}{
			"stalePins": stale,
		}
		if stale == nil {
			payload["stalePins"] = []int{}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for _, pin := range stale {
		fmt.Fprintf(out, "GPIO %d is still exported under %s\n", pin, flags.sysfsRoot)
	}
	return nil
}
