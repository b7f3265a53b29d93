package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

// Runner executes one launch attempt. The interface exists so tests can
// script attempt outcomes without spawning processes.
type Runner interface {
	// Run executes argv with env merged over the parent environment,
	// blocks until the process exits, and returns a non-nil error for
	// any nonzero exit.
	Run(ctx context.Context, argv []string, env map[string]string) error
}

// ExecRunner runs attempts as real child processes inheriting the
// parent's stdio, so the control UI owns the terminal directly.
type ExecRunner struct{}

// Run implements Runner via os/exec.
func (ExecRunner) Run(ctx context.Context, argv []string, env map[string]string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = mergeEnv(os.Environ(), env)
	return cmd.Run()
}

// mergeEnv appends the override variables to base in sorted key order.
// Later entries win in os/exec, so overrides shadow inherited values.
func mergeEnv(base []string, overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := append([]string{}, base...)
	for _, k := range keys {
		merged = append(merged, k+"="+overrides[k])
	}
	return merged
}
