// Package cli implements the cobra-based CLI commands for stepmotor.
//
// Each subcommand (launch, control, run, doctor, pins) is defined in its
// own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sayedtaban/stepmotor/internal/config"
	"github.com/sayedtaban/stepmotor/internal/logging"
	"github.com/sayedtaban/stepmotor/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	verbose bool

	// configPath is an explicit profile file path. Empty means the
	// standard locations are searched.
	configPath string

	// simulate forces the GPIO simulator even on a Raspberry Pi.
	simulate bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action — it only provides
// help text and global flags. Actual functionality is provided by
// subcommands (launch, control, run, doctor, pins).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stepmotor",
		Short: "Stepper motor sequence control for Raspberry Pi rigs",
		Long: `stepmotor drives a rig of step/dir stepper motors over the Raspberry Pi
GPIO header: staggered moves to a target angle, a hold, and a return to
the start position, repeated as configured.

On a Raspberry Pi the motors are driven through the GPIO character
device; anywhere else (and with --simulate) the sequence runs against a
simulator, so profiles can be developed off the rig.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// PersistentFlags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Profile file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Force GPIO simulation even on a Raspberry Pi")

	// Register subcommands. Each subcommand is defined in its own file
	// (launch.go, control.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewLaunchCommand())
	rootCmd.AddCommand(NewControlCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewPinsCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		// Generic error — exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig resolves the profile for the current invocation, honoring
// the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the stderr logger for non-interactive subcommands.
func newLogger() *zap.Logger {
	return logging.New(verbose)
}
