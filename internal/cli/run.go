// Package cli — run.go implements the "stepmotor run" command.
//
// Run executes the configured sequence once, headless: no UI, events
// streamed to stdout as text lines or JSON objects. SIGINT and SIGTERM
// stop the motors between step pulses before the process exits, so an
// interrupted run never leaves a step line high.
package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sayedtaban/stepmotor/internal/gpio"
	"github.com/sayedtaban/stepmotor/internal/model"
	"github.com/sayedtaban/stepmotor/internal/motor"
)

// runFlags holds the flag values for the run command.
type runFlags struct {
	// repetitions overrides the profile's repetition count when > 0.
	repetitions int

	// returnMode overrides the profile's return mode when set.
	// Valid values: "together", "individual".
	returnMode string
}

// NewRunCommand creates the "run" cobra command.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the motor sequence headless",
		Long: `Run the configured sequence without the UI and stream engine events to
stdout. Intended for scripted runs and for exercising a profile from
SSH.

Examples:
  stepmotor run
  stepmotor run --repetitions 3 --return individual
  stepmotor run --simulate --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.repetitions, "repetitions", 0,
		"Override the profile's repetition count")
	cmd.Flags().StringVar(&flags.returnMode, "return", "",
		"Override the return mode: together, individual")

	return cmd
}

// runRun is the main logic function for the run command.
func runRun(cmd *cobra.Command, flags *runFlags) error {
	log := newLogger()
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	plan := cfg.Plan
	if flags.repetitions > 0 {
		plan.Repetitions = flags.repetitions
	}
	switch flags.returnMode {
	case "":
	case "together":
		plan.ReturnTogether = true
	case "individual":
		plan.ReturnTogether = false
	default:
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid return mode %q: valid values are together, individual", flags.returnMode))
	}

	// Stop between step pulses on SIGINT/SIGTERM instead of dying with
	// lines claimed.
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	chip, err := gpio.Open(simulate, log)
	if err != nil {
		return err
	}
	defer func() { _ = chip.Close() }()

	engine := motor.New(chip, log)
	if err := engine.Start(ctx, plan); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		engine.Wait()
		close(done)
	}()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	emitEvent := func(ev motor.Event) {
		if IsJSONOutput() {
			_ = enc.Encode(ev)
			return
		}
		fmt.Fprintln(out, ev.String())
	}

	for {
		select {
		case ev := <-engine.Events():
			emitEvent(ev)
		case <-done:
			// Drain whatever the engine buffered before it finished.
			for {
				select {
				case ev := <-engine.Events():
					emitEvent(ev)
				default:
					if ctx.Err() != nil {
						return model.NewCLIError(model.ExitGeneralError, "sequence interrupted")
					}
					return nil
				}
			}
		}
	}
}
