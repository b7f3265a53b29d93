package gpio

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sayedtaban/stepmotor/internal/model"
)

// Default probe paths. The chip device name matters twice: the probe
// stats /dev/<name>, and OpenChip passes <name> to the character device
// API.
const (
	DefaultChipName    = "gpiochip0"
	defaultCPUInfoPath = "/proc/cpuinfo"
)

// Probe detects whether real GPIO hardware is present. The paths are
// fields so tests can point the probe at fixture files.
type Probe struct {
	// CPUInfoPath is the cpuinfo file used for Raspberry Pi detection.
	CPUInfoPath string

	// ChipDevPath is the GPIO character device path.
	ChipDevPath string
}

// NewProbe returns a probe for the standard system paths.
func NewProbe() Probe {
	return Probe{
		CPUInfoPath: defaultCPUInfoPath,
		ChipDevPath: "/dev/" + DefaultChipName,
	}
}

// OnRaspberryPi reports whether the machine identifies as a Raspberry
// Pi. Pi kernels put a "Raspberry Pi ..." model line in cpuinfo; an
// unreadable cpuinfo counts as not-a-Pi.
func (p Probe) OnRaspberryPi() bool {
	data, err := os.ReadFile(p.CPUInfoPath)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "Raspberry Pi")
}

// HasChipDevice reports whether the GPIO character device exists.
func (p Probe) HasChipDevice() bool {
	_, err := os.Stat(p.ChipDevPath)
	return err == nil
}

// Open returns the Chip to drive motors with.
//
// With simulate set, the simulator is returned unconditionally. Otherwise
// the probe decides: a Raspberry Pi with a GPIO character device gets the
// real chip — and a failure to open it is an error, not a silent fall
// back, because on a Pi the user expects motors to actually turn. Any
// other machine gets the simulator.
func Open(simulate bool, log *zap.Logger) (Chip, error) {
	if simulate {
		log.Info("GPIO simulation forced")
		return NewSimulator(), nil
	}

	p := NewProbe()
	if p.OnRaspberryPi() && p.HasChipDevice() {
		chip, err := OpenChip(DefaultChipName)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGPIOUnavailable, "failed to open GPIO chip", err)
		}
		log.Info("GPIO chip opened", zap.String("chip", DefaultChipName))
		return chip, nil
	}

	log.Info("no Raspberry Pi GPIO detected, using simulator")
	return NewSimulator(), nil
}
