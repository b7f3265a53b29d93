package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer is the label attached to claimed lines; it shows up in
// `gpioinfo` output so a busy pin can be traced back to this tool.
const consumer = "stepmotor"

// cdevChip implements Chip over the Linux GPIO character device.
type cdevChip struct {
	chip *gpiocdev.Chip
}

// cdevLine implements Line over a requested gpiocdev line.
type cdevLine struct {
	line *gpiocdev.Line
}

// OpenChip opens the named GPIO chip (e.g. "gpiochip0").
func OpenChip(name string) (Chip, error) {
	c, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", name, err)
	}
	return &cdevChip{chip: c}, nil
}

func (c *cdevChip) ClaimOutput(offset int) (Line, error) {
	l, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("failed to claim GPIO %d as output: %w", offset, err)
	}
	return &cdevLine{line: l}, nil
}

func (c *cdevChip) Close() error {
	return c.chip.Close()
}

func (l *cdevLine) Set(value int) error {
	return l.line.SetValue(value)
}

func (l *cdevLine) Close() error {
	return l.line.Close()
}
