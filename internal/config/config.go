// Package config loads stepmotor profile files.
//
// Profiles describe the motor rig (pins, speeds, angles), the sequence
// settings, phase timings, and the display backend candidates for the
// launcher. Profiles are YAML by default; files ending in .json or
// .jsonc are parsed as JSONC (JSON with comments) via
// github.com/tidwall/jsonc, matching the config style editors generate.
//
// A missing profile is not an error — the defaults describe the
// reference three-motor rig. Values present in a profile are merged
// over the defaults, so partial files are fine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/sayedtaban/stepmotor/internal/model"
)

// DefaultFileName is the profile name searched in the working directory.
const DefaultFileName = "stepmotor.yaml"

// Display holds the launcher's display backend settings.
type Display struct {
	// Backends are the display backend candidates, tried in order.
	Backends []string `yaml:"backends"`

	// Width and Height are exported to the child process as the
	// physical display dimensions (QT_QPA_EGLFS_PHYSICAL_WIDTH/HEIGHT).
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config is a fully resolved profile: defaults merged with whatever the
// profile file provided, validated.
type Config struct {
	// Plan is the sequence plan the engine executes.
	Plan model.SequencePlan

	// Display configures the launcher.
	Display Display

	// Source is the path of the loaded profile file, or "" when the
	// built-in defaults were used.
	Source string
}

// Default returns the built-in configuration for the reference rig.
func Default() *Config {
	return &Config{
		Plan: model.DefaultPlan(),
		Display: Display{
			Backends: []string{"eglfs", "offscreen", "linuxfb"},
			Width:    800,
			Height:   600,
		},
	}
}

// Load reads and resolves a profile.
//
// When path is empty, the standard locations are searched in order:
// ./stepmotor.yaml, ./stepmotor.jsonc, then
// $XDG_CONFIG_HOME/stepmotor/config.yaml. If none exists, the defaults
// are returned. An explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = locate()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to read profile %s", path), err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("invalid profile %s", path), err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse resolves profile bytes into a validated Config. ext selects the
// format: ".json" and ".jsonc" are treated as JSONC, everything else as
// YAML. JSONC is handled by stripping comments and trailing commas with
// tidwall/jsonc; the result is plain JSON, which the YAML parser accepts
// directly (YAML is a JSON superset).
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	cfg := Default()
	if err := f.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Display.Backends) == 0 {
		return nil, fmt.Errorf("display.backends must not be empty")
	}
	return cfg, nil
}

// locate returns the first existing standard profile path, or "".
func locate() string {
	candidates := []string{
		DefaultFileName,
		"stepmotor.jsonc",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "stepmotor", "config.yaml"))
	}

	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}
	return ""
}

// duration wraps time.Duration with YAML/JSON-friendly parsing:
// strings use time.ParseDuration ("200ms", "1.5s"), bare numbers are
// seconds (matching the original profile format, where delays were
// fractional seconds).
type duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!int", "!!float":
		var seconds float64
		if err := value.Decode(&seconds); err != nil {
			return err
		}
		*d = duration(time.Duration(seconds * float64(time.Second)))
		return nil
	case "!!str":
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration value (tag %s)", value.Tag)
	}
}

// file is the wire format of a profile. All fields are optional;
// pointers distinguish "absent" from zero values so partial profiles
// merge cleanly over the defaults.
type file struct {
	StepsPerRev *int         `yaml:"steps_per_rev"`
	Motors      []fileMotor  `yaml:"motors"`
	Sequence    fileSequence `yaml:"sequence"`
	Timing      fileTiming   `yaml:"timing"`
	Display     fileDisplay  `yaml:"display"`
}

type fileMotor struct {
	StepPin    *int      `yaml:"step_pin"`
	DirPin     *int      `yaml:"dir_pin"`
	SpeedRPM   *int      `yaml:"speed_rpm"`
	StartDelay *duration `yaml:"start_delay"`
	AngleDeg   *int      `yaml:"angle_deg"`
	Start      *string   `yaml:"start"`
}

type fileSequence struct {
	Repetitions    *int  `yaml:"repetitions"`
	ReturnTogether *bool `yaml:"return_together"`
}

type fileTiming struct {
	Dwell                *duration `yaml:"dwell"`
	RepeatWaitTogether   *duration `yaml:"repeat_wait_together"`
	RepeatWaitIndividual *duration `yaml:"repeat_wait_individual"`
	ReturnGap            *duration `yaml:"return_gap"`
	ReturnSpeedFactor    *float64  `yaml:"return_speed_factor"`
}

type fileDisplay struct {
	Backends []string `yaml:"backends"`
	Width    *int     `yaml:"width"`
	Height   *int     `yaml:"height"`
}

// apply merges the wire values over cfg. A motors list, when present,
// replaces the default rig entirely — per-entry fields still default
// (60 RPM, no delay, 45°, position A), but pins are required.
func (f *file) apply(cfg *Config) error {
	if f.StepsPerRev != nil {
		cfg.Plan.StepsPerRev = *f.StepsPerRev
	}

	if f.Motors != nil {
		motors := make([]model.MotorConfig, len(f.Motors))
		for i, fm := range f.Motors {
			if fm.StepPin == nil || fm.DirPin == nil {
				return fmt.Errorf("motor %d: step_pin and dir_pin are required", i+1)
			}
			m := model.MotorConfig{
				Spec:     model.MotorSpec{StepPin: *fm.StepPin, DirPin: *fm.DirPin},
				SpeedRPM: 60,
				AngleDeg: 45,
				Start:    model.PositionA,
			}
			if fm.SpeedRPM != nil {
				m.SpeedRPM = *fm.SpeedRPM
			}
			if fm.StartDelay != nil {
				m.StartDelay = time.Duration(*fm.StartDelay)
			}
			if fm.AngleDeg != nil {
				m.AngleDeg = *fm.AngleDeg
			}
			if fm.Start != nil {
				pos, err := model.ParsePosition(*fm.Start)
				if err != nil {
					return fmt.Errorf("motor %d: %w", i+1, err)
				}
				m.Start = pos
			}
			motors[i] = m
		}
		cfg.Plan.Motors = motors
	}

	if f.Sequence.Repetitions != nil {
		cfg.Plan.Repetitions = *f.Sequence.Repetitions
	}
	if f.Sequence.ReturnTogether != nil {
		cfg.Plan.ReturnTogether = *f.Sequence.ReturnTogether
	}

	if f.Timing.Dwell != nil {
		cfg.Plan.Dwell = time.Duration(*f.Timing.Dwell)
	}
	if f.Timing.RepeatWaitTogether != nil {
		cfg.Plan.RepeatWaitTogether = time.Duration(*f.Timing.RepeatWaitTogether)
	}
	if f.Timing.RepeatWaitIndividual != nil {
		cfg.Plan.RepeatWaitIndividual = time.Duration(*f.Timing.RepeatWaitIndividual)
	}
	if f.Timing.ReturnGap != nil {
		cfg.Plan.ReturnGap = time.Duration(*f.Timing.ReturnGap)
	}
	if f.Timing.ReturnSpeedFactor != nil {
		cfg.Plan.ReturnSpeedFactor = *f.Timing.ReturnSpeedFactor
	}

	if f.Display.Backends != nil {
		cfg.Display.Backends = f.Display.Backends
	}
	if f.Display.Width != nil {
		cfg.Display.Width = *f.Display.Width
	}
	if f.Display.Height != nil {
		cfg.Display.Height = *f.Display.Height
	}
	return nil
}
