// Package model defines the domain types for the stepmotor CLI.
//
// The types here describe stepper motors (step/dir driver pins), their
// per-motor motion parameters, and the sequence plan that the engine
// executes. They are plain data with validation — the engine in
// internal/motor interprets them, and internal/config populates them
// from profile files.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Position represents a motor's configured start position. It determines
// the direction of the outbound move: a motor starting at A drives its
// direction line high on the way to the target, a motor starting at B
// drives it low. The return move always uses the opposite level.
type Position string

const (
	// PositionA is the default start position (forward outbound move).
	PositionA Position = "A"

	// PositionB is the mirrored start position (reverse outbound move).
	PositionB Position = "B"
)

// String returns the string representation of Position.
func (p Position) String() string {
	return string(p)
}

// IsValid checks whether the Position value is one of the predefined
// valid positions.
func (p Position) IsValid() bool {
	return p == PositionA || p == PositionB
}

// Forward reports whether the outbound move drives the direction line
// high. Position A moves forward; Position B moves in reverse.
func (p Position) Forward() bool {
	return p == PositionA
}

// ParsePosition converts a string to a Position. Parsing is
// case-insensitive ("a" and "A" are both accepted).
func ParsePosition(s string) (Position, error) {
	pos := Position(strings.ToUpper(strings.TrimSpace(s)))
	if !pos.IsValid() {
		return "", fmt.Errorf("invalid start position: %q (valid: A, B)", s)
	}
	return pos, nil
}

// Motion parameter bounds. These match the ranges the control UI offers
// and are enforced for headless runs as well, so a profile file cannot
// command a speed or angle the hardware was never driven at.
const (
	// MinSpeedRPM and MaxSpeedRPM bound the motor speed in revolutions
	// per minute.
	MinSpeedRPM = 1
	MaxSpeedRPM = 300

	// MaxStartDelay bounds the per-motor start delay.
	MaxStartDelay = 2 * time.Second

	// MinAngleDeg, MaxAngleDeg and AngleStepDeg bound the target angle.
	// Angles must be a multiple of AngleStepDeg.
	MinAngleDeg  = 15
	MaxAngleDeg  = 180
	AngleStepDeg = 15

	// MinRepetitions and MaxRepetitions bound the sequence repetition count.
	MinRepetitions = 1
	MaxRepetitions = 50

	// MaxPin is the highest usable BCM pin number on the 40-pin
	// Raspberry Pi header.
	MaxPin = 27
)

// DefaultStepsPerRev is the full-step count of the supported drivers at
// their default microstepping configuration.
const DefaultStepsPerRev = 400

// MotorSpec identifies the GPIO wiring of a single motor: the step pulse
// line and the direction line, both as BCM pin numbers.
type MotorSpec struct {
	// StepPin is the BCM number of the step pulse line.
	StepPin int `json:"stepPin" yaml:"step_pin"`

	// DirPin is the BCM number of the direction line.
	DirPin int `json:"dirPin" yaml:"dir_pin"`
}

// Validate checks that both pins are in the BCM header range and distinct.
func (s MotorSpec) Validate() error {
	if s.StepPin < 0 || s.StepPin > MaxPin {
		return fmt.Errorf("step pin %d out of range (0-%d)", s.StepPin, MaxPin)
	}
	if s.DirPin < 0 || s.DirPin > MaxPin {
		return fmt.Errorf("dir pin %d out of range (0-%d)", s.DirPin, MaxPin)
	}
	if s.StepPin == s.DirPin {
		return fmt.Errorf("step and dir pins must differ (both %d)", s.StepPin)
	}
	return nil
}

// MotorConfig holds the motion parameters for one motor within a sequence.
type MotorConfig struct {
	// Spec is the GPIO wiring of the motor.
	Spec MotorSpec `json:"spec" yaml:"spec"`

	// SpeedRPM is the outbound speed in revolutions per minute.
	// The return move runs at SpeedRPM scaled by the plan's
	// ReturnSpeedFactor.
	SpeedRPM int `json:"speedRpm" yaml:"speed_rpm"`

	// StartDelay is how long the motor waits after the sequence starts
	// before it begins moving. Staggered delays let motors start in a
	// wave rather than all at once.
	StartDelay time.Duration `json:"startDelay" yaml:"start_delay"`

	// AngleDeg is the target angle of the outbound move in degrees.
	AngleDeg int `json:"angleDeg" yaml:"angle_deg"`

	// Start is the configured start position (A or B).
	Start Position `json:"start" yaml:"start"`
}

// Validate checks all motion parameters against their bounds.
func (c MotorConfig) Validate() error {
	if err := c.Spec.Validate(); err != nil {
		return err
	}
	if c.SpeedRPM < MinSpeedRPM || c.SpeedRPM > MaxSpeedRPM {
		return fmt.Errorf("speed %d RPM out of range (%d-%d)", c.SpeedRPM, MinSpeedRPM, MaxSpeedRPM)
	}
	if c.StartDelay < 0 || c.StartDelay > MaxStartDelay {
		return fmt.Errorf("start delay %s out of range (0-%s)", c.StartDelay, MaxStartDelay)
	}
	if c.AngleDeg < MinAngleDeg || c.AngleDeg > MaxAngleDeg {
		return fmt.Errorf("angle %d° out of range (%d-%d)", c.AngleDeg, MinAngleDeg, MaxAngleDeg)
	}
	if c.AngleDeg%AngleStepDeg != 0 {
		return fmt.Errorf("angle %d° must be a multiple of %d", c.AngleDeg, AngleStepDeg)
	}
	if !c.Start.IsValid() {
		return fmt.Errorf("invalid start position %q (valid: A, B)", string(c.Start))
	}
	return nil
}

// SequencePlan is the complete description of one motor sequence run:
// which motors move, how, how often the sequence repeats, and the timing
// between phases.
type SequencePlan struct {
	// Motors lists the motors that take part in the sequence.
	// Must contain at least one motor.
	Motors []MotorConfig `json:"motors" yaml:"motors"`

	// StepsPerRev is the number of step pulses per full revolution.
	StepsPerRev int `json:"stepsPerRev" yaml:"steps_per_rev"`

	// Repetitions is how many times the move-and-return cycle runs.
	Repetitions int `json:"repetitions" yaml:"repetitions"`

	// ReturnTogether selects the return mode: all motors return in
	// parallel when true, one after the other when false.
	ReturnTogether bool `json:"returnTogether" yaml:"return_together"`

	// Dwell is how long each motor holds at the target position before
	// the return phase may begin.
	Dwell time.Duration `json:"dwell" yaml:"dwell"`

	// RepeatWaitTogether is the pause between repetitions when motors
	// return together.
	RepeatWaitTogether time.Duration `json:"repeatWaitTogether" yaml:"repeat_wait_together"`

	// RepeatWaitIndividual is the pause between repetitions when motors
	// return one by one.
	RepeatWaitIndividual time.Duration `json:"repeatWaitIndividual" yaml:"repeat_wait_individual"`

	// ReturnGap is the pause between two consecutive motors during an
	// individual return.
	ReturnGap time.Duration `json:"returnGap" yaml:"return_gap"`

	// ReturnSpeedFactor scales the outbound speed for the return move.
	// Must be in (0, 1].
	ReturnSpeedFactor float64 `json:"returnSpeedFactor" yaml:"return_speed_factor"`
}

// DefaultPlan returns the sequence plan for the reference rig: three
// motors on BCM pins (step/dir) 27/17, 23/22 and 24/25, speeds staggered
// 60/80/100 RPM with 0/0.2/0.4 s start delays, 45° moves from position A.
func DefaultPlan() SequencePlan {
	specs := []MotorSpec{
		{StepPin: 27, DirPin: 17},
		{StepPin: 23, DirPin: 22},
		{StepPin: 24, DirPin: 25},
	}

	motors := make([]MotorConfig, len(specs))
	for i, spec := range specs {
		motors[i] = MotorConfig{
			Spec:       spec,
			SpeedRPM:   60 + i*20,
			StartDelay: time.Duration(i) * 200 * time.Millisecond,
			AngleDeg:   45,
			Start:      PositionA,
		}
	}

	return SequencePlan{
		Motors:               motors,
		StepsPerRev:          DefaultStepsPerRev,
		Repetitions:          1,
		ReturnTogether:       true,
		Dwell:                3 * time.Second,
		RepeatWaitTogether:   2 * time.Second,
		RepeatWaitIndividual: 5 * time.Second,
		ReturnGap:            time.Second,
		ReturnSpeedFactor:    0.5,
	}
}

// Validate checks the plan and all contained motor configurations.
func (p SequencePlan) Validate() error {
	if len(p.Motors) == 0 {
		return fmt.Errorf("plan must contain at least one motor")
	}
	for i, m := range p.Motors {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("motor %d: %w", i+1, err)
		}
	}

	// A pin may appear only once across the whole rig. Two motors
	// sharing a line would pulse each other.
	seen := make(map[int]string)
	for i, m := range p.Motors {
		for _, pin := range []int{m.Spec.StepPin, m.Spec.DirPin} {
			if owner, ok := seen[pin]; ok {
				return fmt.Errorf("motor %d: pin %d already used by %s", i+1, pin, owner)
			}
			seen[pin] = fmt.Sprintf("motor %d", i+1)
		}
	}

	if p.StepsPerRev <= 0 {
		return fmt.Errorf("steps per revolution must be positive (got %d)", p.StepsPerRev)
	}
	if p.Repetitions < MinRepetitions || p.Repetitions > MaxRepetitions {
		return fmt.Errorf("repetitions %d out of range (%d-%d)", p.Repetitions, MinRepetitions, MaxRepetitions)
	}
	if p.Dwell < 0 || p.RepeatWaitTogether < 0 || p.RepeatWaitIndividual < 0 || p.ReturnGap < 0 {
		return fmt.Errorf("phase timings must not be negative")
	}
	if p.ReturnSpeedFactor <= 0 || p.ReturnSpeedFactor > 1 {
		return fmt.Errorf("return speed factor %g out of range (0-1]", p.ReturnSpeedFactor)
	}
	return nil
}

// Pins returns all BCM pins used by the plan, step pin before dir pin
// per motor, in motor order. The launch pre-check and the doctor
// command probe exactly this set.
func (p SequencePlan) Pins() []int {
	pins := make([]int, 0, len(p.Motors)*2)
	for _, m := range p.Motors {
		pins = append(pins, m.Spec.StepPin, m.Spec.DirPin)
	}
	return pins
}

// StepsForAngle converts a target angle to a step count at the plan's
// steps-per-revolution resolution. The division truncates, matching the
// driver's whole-step granularity.
func (p SequencePlan) StepsForAngle(angleDeg int) int {
	return p.StepsPerRev * angleDeg / 360
}
