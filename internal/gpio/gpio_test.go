package gpio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestSimulator_ClaimSetClose exercises the simulated line lifecycle:
// claim, drive, edge counting, release, reclaim.
func TestSimulator_ClaimSetClose(t *testing.T) {
	sim := NewSimulator()

	line, err := sim.ClaimOutput(27)
	require.NoError(t, err)
	assert.True(t, sim.Claimed(27))

	// Double claim while held must fail.
	_, err = sim.ClaimOutput(27)
	assert.Error(t, err)

	// Three pulses: rising edges count 0→1 transitions only.
	for i := 0; i < 3; i++ {
		require.NoError(t, line.Set(1))
		require.NoError(t, line.Set(0))
	}
	require.NoError(t, line.Set(0)) // no-op, no edge
	assert.Equal(t, 3, sim.RisingEdges(27))
	assert.Equal(t, 0, sim.Value(27))

	// Invalid level rejected.
	assert.Error(t, line.Set(2))

	require.NoError(t, line.Close())
	assert.False(t, sim.Claimed(27))
	assert.Error(t, line.Set(1))

	// Reclaim after release works and keeps the edge history.
	line2, err := sim.ClaimOutput(27)
	require.NoError(t, err)
	require.NoError(t, line2.Set(1))
	assert.Equal(t, 4, sim.RisingEdges(27))
}

// TestStaleExports verifies the sysfs pre-check: one entry per pin
// directory that exists, none otherwise.
func TestStaleExports(t *testing.T) {
	pins := []int{17, 22, 24, 27, 23, 25}

	t.Run("empty sysfs yields nothing", func(t *testing.T) {
		assert.Empty(t, StaleExports(t.TempDir(), pins))
	})

	t.Run("missing root yields nothing", func(t *testing.T) {
		assert.Empty(t, StaleExports(filepath.Join(t.TempDir(), "absent"), pins))
	})

	t.Run("one entry per exported pin", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(root, "gpio17"), 0o755))
		require.NoError(t, os.Mkdir(filepath.Join(root, "gpio24"), 0o755))
		// A non-configured pin and a plain file must not count.
		require.NoError(t, os.Mkdir(filepath.Join(root, "gpio5"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "gpio22"), nil, 0o644))

		assert.Equal(t, []int{17, 24}, StaleExports(root, pins))
	})
}

// TestProbe_OnRaspberryPi checks cpuinfo-based detection against
// fixture files.
func TestProbe_OnRaspberryPi(t *testing.T) {
	dir := t.TempDir()

	piInfo := filepath.Join(dir, "cpuinfo_pi")
	require.NoError(t, os.WriteFile(piInfo, []byte("processor\t: 0\nModel\t\t: Raspberry Pi 4 Model B Rev 1.4\n"), 0o644))

	pcInfo := filepath.Join(dir, "cpuinfo_pc")
	require.NoError(t, os.WriteFile(pcInfo, []byte("processor\t: 0\nmodel name\t: generic x86\n"), 0o644))

	assert.True(t, Probe{CPUInfoPath: piInfo}.OnRaspberryPi())
	assert.False(t, Probe{CPUInfoPath: pcInfo}.OnRaspberryPi())
	assert.False(t, Probe{CPUInfoPath: filepath.Join(dir, "missing")}.OnRaspberryPi())
}

// TestOpen_Simulate verifies that forcing simulation never touches
// hardware and always succeeds.
func TestOpen_Simulate(t *testing.T) {
	chip, err := Open(true, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = chip.Close() }()

	_, ok := chip.(*Simulator)
	assert.True(t, ok, "expected the simulator")
}

// TestDiagnostics_Run runs the full check set against fixtures: a fake
// Pi with a present chip device, stale exports, and a simulator-backed
// claim test.
func TestDiagnostics_Run(t *testing.T) {
	dir := t.TempDir()

	cpuinfo := filepath.Join(dir, "cpuinfo")
	require.NoError(t, os.WriteFile(cpuinfo, []byte("Model\t: Raspberry Pi 4 Model B\n"), 0o644))
	modules := filepath.Join(dir, "modules")
	require.NoError(t, os.WriteFile(modules, []byte("gpiochip_bcm 16384 0 - Live\n"), 0o644))
	chipDev := filepath.Join(dir, "gpiochip0")
	require.NoError(t, os.WriteFile(chipDev, nil, 0o644))
	sysfs := filepath.Join(dir, "gpio")
	require.NoError(t, os.Mkdir(sysfs, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(sysfs, "gpio22"), 0o755))

	d := &Diagnostics{
		Euid:        0,
		Pins:        []int{27, 17, 22},
		CPUInfoPath: cpuinfo,
		ModulesPath: modules,
		ChipDevPath: chipDev,
		SysfsRoot:   sysfs,
		OpenChip: func() (Chip, error) {
			return NewSimulator(), nil
		},
	}

	results := d.Run()
	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, StatusOK, byName["root"].Status)
	assert.Equal(t, StatusOK, byName["raspberry-pi"].Status)
	assert.Equal(t, StatusOK, byName["kernel-modules"].Status)
	assert.Equal(t, StatusOK, byName["chip-device"].Status)
	assert.Equal(t, StatusOK, byName["sysfs"].Status)
	assert.Equal(t, StatusWarn, byName["stale-exports"].Status)
	assert.Contains(t, byName["stale-exports"].Detail, "22")
	assert.Equal(t, StatusOK, byName["pin-claim"].Status)
}

// TestDiagnostics_SimulatedClaim verifies that a simulator-backed claim
// test runs even without a chip device, and labels its result as
// simulated.
func TestDiagnostics_SimulatedClaim(t *testing.T) {
	dir := t.TempDir()

	d := &Diagnostics{
		Euid:        1000,
		Pins:        []int{27, 17},
		CPUInfoPath: filepath.Join(dir, "cpuinfo-missing"),
		ModulesPath: filepath.Join(dir, "modules-missing"),
		ChipDevPath: filepath.Join(dir, "gpiochip0-missing"),
		SysfsRoot:   filepath.Join(dir, "gpio-missing"),
		OpenChip: func() (Chip, error) {
			return NewSimulator(), nil
		},
		SkipDeviceCheck: true,
	}

	results := d.Run()
	claim := results[len(results)-1]
	require.Equal(t, "pin-claim", claim.Name)
	assert.Equal(t, StatusOK, claim.Status)
	assert.NotContains(t, claim.Detail, "skipped")
	assert.Contains(t, claim.Detail, "simulated")
}

// TestDiagnostics_OffPi verifies the non-Pi downgrade paths: warnings,
// not failures, and a skipped claim test.
func TestDiagnostics_OffPi(t *testing.T) {
	dir := t.TempDir()
	cpuinfo := filepath.Join(dir, "cpuinfo")
	require.NoError(t, os.WriteFile(cpuinfo, []byte("model name\t: x86\n"), 0o644))

	d := &Diagnostics{
		Euid:        1000,
		Pins:        []int{27, 17},
		CPUInfoPath: cpuinfo,
		ModulesPath: filepath.Join(dir, "modules-missing"),
		ChipDevPath: filepath.Join(dir, "gpiochip0-missing"),
		SysfsRoot:   filepath.Join(dir, "gpio-missing"),
	}

	results := d.Run()
	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, StatusWarn, byName["root"].Status)
	assert.Equal(t, StatusWarn, byName["raspberry-pi"].Status)
	assert.Equal(t, StatusWarn, byName["chip-device"].Status)
	assert.Equal(t, StatusWarn, byName["sysfs"].Status)
	assert.Equal(t, StatusOK, byName["stale-exports"].Status)
	assert.Equal(t, StatusWarn, byName["pin-claim"].Status)
	assert.Contains(t, byName["pin-claim"].Detail, "skipped")

	for _, r := range results {
		assert.NotEqual(t, StatusFail, r.Status, "off-Pi must degrade to warnings: %s", r.Name)
	}
}
