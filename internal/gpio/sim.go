package gpio

import (
	"fmt"
	"sync"
)

// Simulator is an in-memory Chip used when no Raspberry Pi GPIO is
// present, and as the test double for the motor engine. It records the
// level and rising-edge count of every line, which is exactly what a
// step/dir driver would see.
type Simulator struct {
	mu    sync.Mutex
	lines map[int]*SimLine
}

// SimLine is a simulated output line.
type SimLine struct {
	sim    *Simulator
	offset int

	mu          sync.Mutex
	value       int
	risingEdges int
	closed      bool
}

// NewSimulator creates an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{lines: make(map[int]*SimLine)}
}

// ClaimOutput claims the line at offset. Claiming a line that is held
// and not yet closed fails, mirroring the kernel's busy-line behavior.
// Reclaiming a released line succeeds and carries the edge history
// forward, so counts accumulate across engine runs.
func (s *Simulator) ClaimOutput(offset int) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &SimLine{sim: s, offset: offset}
	if prev, ok := s.lines[offset]; ok {
		prev.mu.Lock()
		closed, edges := prev.closed, prev.risingEdges
		prev.mu.Unlock()
		if !closed {
			return nil, fmt.Errorf("simulated GPIO %d is already claimed", offset)
		}
		l.risingEdges = edges
	}
	s.lines[offset] = l
	return l, nil
}

// Close releases the simulator. Outstanding lines are dropped.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[int]*SimLine)
	return nil
}

// RisingEdges returns how many 0→1 transitions the line at offset has
// seen over its lifetime, including lines already closed.
func (s *Simulator) RisingEdges(offset int) int {
	s.mu.Lock()
	l, ok := s.lines[offset]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.risingEdges
}

// Value returns the current level of the line at offset (0 if unknown).
func (s *Simulator) Value(offset int) int {
	s.mu.Lock()
	l, ok := s.lines[offset]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Claimed reports whether the line at offset is currently claimed.
func (s *Simulator) Claimed(offset int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[offset]
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed
}

func (l *SimLine) Set(value int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("simulated GPIO %d: set on closed line", l.offset)
	}
	if value != 0 && value != 1 {
		return fmt.Errorf("simulated GPIO %d: invalid level %d", l.offset, value)
	}
	if l.value == 0 && value == 1 {
		l.risingEdges++
	}
	l.value = value
	return nil
}

// Close marks the line released. The line's history stays queryable on
// the simulator so tests can assert on completed runs.
func (l *SimLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
