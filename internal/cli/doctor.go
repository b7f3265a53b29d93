// Package cli — doctor.go implements the "stepmotor doctor" command.
//
// Doctor runs the GPIO health checks (privileges, Pi detection, kernel
// modules, chip device, sysfs state, stale exports, and a claim/release
// test of the configured pins) and reports them as a text table or JSON
// array. Any failed check makes the command exit nonzero, so it can
// gate boot scripts.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sayedtaban/stepmotor/internal/gpio"
	"github.com/sayedtaban/stepmotor/internal/model"
)

// NewDoctorCommand creates the "doctor" cobra command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose GPIO access for the configured pins",
		Long: `Run the GPIO health checks for the pins of the configured rig and report
the results.

Exit status is nonzero when any check fails, so doctor can be used as a
gate in boot scripts:

  stepmotor doctor && stepmotor launch`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}

	return cmd
}

// runDoctor is the main logic function for the doctor command.
func runDoctor(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	diag := gpio.NewDiagnostics(cfg.Plan.Pins())
	if simulate {
		// With simulation forced the claim test runs against the
		// simulator, making doctor useful off the rig too. The chip
		// device gate must be skipped as well, or the simulated test
		// would never run on machines without /dev/gpiochip0.
		diag.OpenChip = func() (gpio.Chip, error) {
			return gpio.NewSimulator(), nil
		}
		diag.SkipDeviceCheck = true
	}

	results := diag.Run()
	if err := printChecks(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status == gpio.StatusFail {
			failed++
		}
	}
	if failed > 0 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%d check(s) failed", failed))
	}
	return nil
}

// printChecks writes the check results in the selected output format.
func printChecks(out io.Writer, results []gpio.CheckResult) error {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for _, r := range results {
		fmt.Fprintf(out, "%-6s %-16s %s\n", statusGlyph(r.Status), r.Name, r.Detail)
	}
	return nil
}

// statusGlyph maps a check status to its text-table marker.
func statusGlyph(s gpio.CheckStatus) string {
	switch s {
	case gpio.StatusOK:
		return "[ok]"
	case gpio.StatusWarn:
		return "[warn]"
	default:
		return "[FAIL]"
	}
}
