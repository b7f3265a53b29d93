package gpio

import (
	"fmt"
	"os"
	"strings"
)

// CheckStatus classifies a diagnostic check outcome.
type CheckStatus string

const (
	// StatusOK means the check passed.
	StatusOK CheckStatus = "ok"

	// StatusWarn means the check found a condition that may cause
	// trouble but does not rule out motor operation.
	StatusWarn CheckStatus = "warn"

	// StatusFail means the check found a condition that will prevent
	// GPIO access.
	StatusFail CheckStatus = "fail"
)

// CheckResult is the outcome of one diagnostic check.
type CheckResult struct {
	// Name identifies the check (stable, machine-friendly).
	Name string `json:"name"`

	// Status is the outcome classification.
	Status CheckStatus `json:"status"`

	// Detail is the human-readable explanation.
	Detail string `json:"detail"`
}

// Diagnostics runs the GPIO health checks behind the doctor command:
// privilege level, Raspberry Pi detection, kernel modules, character
// device presence, sysfs state, and a claim/release test of the
// configured pins. All inputs are fields so tests can run against
// fixture files and the simulator.
type Diagnostics struct {
	// Euid is the effective user id to report on.
	Euid int

	// Pins are the BCM pins to check for stale exports and to claim-test.
	Pins []int

	// CPUInfoPath, ModulesPath, ChipDevPath and SysfsRoot are the
	// system files consulted.
	CPUInfoPath string
	ModulesPath string
	ChipDevPath string
	SysfsRoot   string

	// OpenChip opens the chip for the claim test. Defaults to the real
	// character device.
	OpenChip func() (Chip, error)

	// SkipDeviceCheck runs the claim test even when the chip device is
	// absent. Set together with a simulator-backed OpenChip, so the
	// claim path can be exercised off the rig.
	SkipDeviceCheck bool
}

// NewDiagnostics creates a Diagnostics over the standard system paths
// and the current process credentials.
func NewDiagnostics(pins []int) *Diagnostics {
	probe := NewProbe()
	return &Diagnostics{
		Euid:        os.Geteuid(),
		Pins:        pins,
		CPUInfoPath: probe.CPUInfoPath,
		ModulesPath: "/proc/modules",
		ChipDevPath: probe.ChipDevPath,
		SysfsRoot:   DefaultSysfsRoot,
		OpenChip: func() (Chip, error) {
			return OpenChip(DefaultChipName)
		},
	}
}

// Run executes all checks and returns their results in a fixed order.
func (d *Diagnostics) Run() []CheckResult {
	results := []CheckResult{
		d.checkRoot(),
		d.checkRaspberryPi(),
		d.checkModules(),
		d.checkChipDevice(),
		d.checkSysfs(),
		d.checkStaleExports(),
	}
	return append(results, d.checkClaim())
}

func (d *Diagnostics) checkRoot() CheckResult {
	if d.Euid == 0 {
		return CheckResult{Name: "root", Status: StatusOK, Detail: "running as root"}
	}
	return CheckResult{
		Name:   "root",
		Status: StatusWarn,
		Detail: fmt.Sprintf("not running as root (euid %d); GPIO access may require membership in the gpio group or sudo", d.Euid),
	}
}

func (d *Diagnostics) checkRaspberryPi() CheckResult {
	probe := Probe{CPUInfoPath: d.CPUInfoPath, ChipDevPath: d.ChipDevPath}
	if probe.OnRaspberryPi() {
		return CheckResult{Name: "raspberry-pi", Status: StatusOK, Detail: "running on a Raspberry Pi"}
	}
	return CheckResult{Name: "raspberry-pi", Status: StatusWarn, Detail: "not a Raspberry Pi; motors run in simulation"}
}

func (d *Diagnostics) checkModules() CheckResult {
	data, err := os.ReadFile(d.ModulesPath)
	if err != nil {
		return CheckResult{Name: "kernel-modules", Status: StatusWarn, Detail: fmt.Sprintf("cannot read %s: %v", d.ModulesPath, err)}
	}
	modules := string(data)
	if strings.Contains(modules, "gpiochip") || strings.Contains(modules, "bcm2835") || strings.Contains(modules, "gpio_") {
		return CheckResult{Name: "kernel-modules", Status: StatusOK, Detail: "GPIO kernel modules loaded"}
	}
	return CheckResult{Name: "kernel-modules", Status: StatusWarn, Detail: "no GPIO kernel modules found (may be built into the kernel)"}
}

func (d *Diagnostics) checkChipDevice() CheckResult {
	if _, err := os.Stat(d.ChipDevPath); err == nil {
		return CheckResult{Name: "chip-device", Status: StatusOK, Detail: d.ChipDevPath + " present"}
	}
	probe := Probe{CPUInfoPath: d.CPUInfoPath, ChipDevPath: d.ChipDevPath}
	if probe.OnRaspberryPi() {
		// On a Pi the character device should always exist.
		return CheckResult{Name: "chip-device", Status: StatusFail, Detail: d.ChipDevPath + " missing on a Raspberry Pi"}
	}
	return CheckResult{Name: "chip-device", Status: StatusWarn, Detail: d.ChipDevPath + " missing; motors run in simulation"}
}

func (d *Diagnostics) checkSysfs() CheckResult {
	fi, err := os.Stat(d.SysfsRoot)
	if err != nil || !fi.IsDir() {
		return CheckResult{Name: "sysfs", Status: StatusWarn, Detail: d.SysfsRoot + " not present (legacy sysfs GPIO disabled)"}
	}
	if _, err := os.ReadDir(d.SysfsRoot); err != nil {
		return CheckResult{Name: "sysfs", Status: StatusFail, Detail: fmt.Sprintf("cannot read %s: %v", d.SysfsRoot, err)}
	}
	return CheckResult{Name: "sysfs", Status: StatusOK, Detail: d.SysfsRoot + " readable"}
}

func (d *Diagnostics) checkStaleExports() CheckResult {
	stale := StaleExports(d.SysfsRoot, d.Pins)
	if len(stale) == 0 {
		return CheckResult{Name: "stale-exports", Status: StatusOK, Detail: "no stale sysfs exports"}
	}
	parts := make([]string, len(stale))
	for i, pin := range stale {
		parts[i] = fmt.Sprintf("%d", pin)
	}
	return CheckResult{
		Name:   "stale-exports",
		Status: StatusWarn,
		Detail: fmt.Sprintf("pins still exported under %s: %s", d.SysfsRoot, strings.Join(parts, ", ")),
	}
}

// checkClaim claims and releases every configured pin as an output.
// This is the definitive access test: it exercises the same code path
// the engine uses. Skipped when no chip device is present, unless the
// claim test was redirected away from the device via SkipDeviceCheck.
func (d *Diagnostics) checkClaim() CheckResult {
	if !d.SkipDeviceCheck {
		if _, err := os.Stat(d.ChipDevPath); err != nil {
			return CheckResult{Name: "pin-claim", Status: StatusWarn, Detail: "skipped: no GPIO chip device"}
		}
	}

	chip, err := d.OpenChip()
	if err != nil {
		return CheckResult{Name: "pin-claim", Status: StatusFail, Detail: fmt.Sprintf("cannot open GPIO chip: %v", err)}
	}
	defer func() { _ = chip.Close() }()

	var failed []string
	for _, pin := range d.Pins {
		line, err := chip.ClaimOutput(pin)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%d (%v)", pin, err))
			continue
		}
		_ = line.Close()
	}

	if len(failed) > 0 {
		return CheckResult{Name: "pin-claim", Status: StatusFail, Detail: "failed to claim: " + strings.Join(failed, "; ")}
	}
	detail := fmt.Sprintf("claimed and released %d pin(s)", len(d.Pins))
	if d.SkipDeviceCheck {
		// Make it visible that this was not the real device.
		detail += " (simulated)"
	}
	return CheckResult{Name: "pin-claim", Status: StatusOK, Detail: detail}
}
