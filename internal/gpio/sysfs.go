package gpio

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSysfsRoot is the legacy sysfs GPIO interface. Pins exported
// there by a previous run (or another tool) were never unexported and
// can block the character device from claiming them.
const DefaultSysfsRoot = "/sys/class/gpio"

// StaleExports returns the subset of pins that have an export directory
// under root (e.g. /sys/class/gpio/gpio17), preserving the input order.
// A missing or unreadable root yields no results — the doctor command
// reports that condition separately.
func StaleExports(root string, pins []int) []int {
	var stale []int
	for _, pin := range pins {
		dir := filepath.Join(root, fmt.Sprintf("gpio%d", pin))
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			stale = append(stale, pin)
		}
	}
	return stale
}
