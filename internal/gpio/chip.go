// Package gpio abstracts access to the GPIO lines that drive the
// stepper motors.
//
// Two implementations exist: a real one over the Linux GPIO character
// device (/dev/gpiochip0, via github.com/warthog618/go-gpiocdev) and a
// simulator used off-Pi and in tests. The motor engine only sees the
// Chip and Line interfaces, so the same sequencing code runs against
// hardware and simulation.
package gpio

// Line is a single claimed GPIO output line.
type Line interface {
	// Set drives the line to the given level (0 or 1).
	Set(value int) error

	// Close releases the line. The line must not be used afterwards.
	Close() error
}

// Chip is a GPIO chip from which output lines can be claimed.
type Chip interface {
	// ClaimOutput requests the line at the given BCM offset as an
	// output, initially driven low.
	ClaimOutput(offset int) (Line, error)

	// Close releases the chip handle. Lines claimed from the chip
	// should be closed first.
	Close() error
}
