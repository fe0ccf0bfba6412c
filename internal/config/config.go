// Package config loads the shield configuration. Configuration is read once
// from a YAML file at construction and is immutable thereafter.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hri-lab/shield-engine/internal/shield"
)

// GoalConfig controls the UDP input for asynchronous goal requests.
type GoalConfig struct {
	UDPAddr    string `yaml:"udp_addr"`
	ReadBuffer int    `yaml:"read_buffer"`
}

// OutputConfig controls where committed motions are published.
type OutputConfig struct {
	UDPAddr string `yaml:"udp_addr"`
}

// RobotConfig describes the demo arm geometry used for reachable sets.
type RobotConfig struct {
	Base        [3]float64 `yaml:"base"`
	LinkLengths []float64  `yaml:"link_lengths"` // metres, one per joint
	LinkRadius  float64    `yaml:"link_radius"`  // metres
}

// HumanConfig describes the assumed human occupancy model.
type HumanConfig struct {
	Points    [][3]float64 `yaml:"points"`    // measured joint positions
	VMax      float64      `yaml:"v_max"`     // assumed maximum speed, m/s
	Horizon   float64      `yaml:"horizon"`   // look-ahead, seconds
	Margin    float64      `yaml:"margin"`    // measurement uncertainty, m
	Clearance float64      `yaml:"clearance"` // required robot-human clearance, m
}

// LogConfig controls console logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config aggregates all configuration sections.
type Config struct {
	Enabled        bool      `yaml:"enabled"`
	Joints         int       `yaml:"joints"`
	SampleTime     float64   `yaml:"sample_time"`     // seconds
	BufferDuration float64   `yaml:"buffer_duration"` // seconds
	MaxSStop       float64   `yaml:"max_s_stop"`      // seconds of path
	InitQ          []float64 `yaml:"init_q"`          // initial joint positions

	VMaxAllowed []float64 `yaml:"v_max_allowed"`
	AMaxAllowed []float64 `yaml:"a_max_allowed"`
	JMaxAllowed []float64 `yaml:"j_max_allowed"`
	AMaxLTT     []float64 `yaml:"a_max_ltt"`
	JMaxLTT     []float64 `yaml:"j_max_ltt"`

	Goal   GoalConfig   `yaml:"goal"`
	Output OutputConfig `yaml:"output"`
	Robot  RobotConfig  `yaml:"robot"`
	Human  HumanConfig  `yaml:"human"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns the configuration defaults applied before unmarshalling.
func Default() Config {
	return Config{
		Enabled:        true,
		SampleTime:     0.004,
		BufferDuration: 10,
		MaxSStop:       0.2,
		Goal:           GoalConfig{ReadBuffer: 2048},
		Human:          HumanConfig{VMax: 2.0, Horizon: 0.2, Clearance: 0.05},
		Log:            LogConfig{Level: "info"},
	}
}

// Load reads the YAML config from disk, applies defaults, and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks dimensions and ranges beyond what the shield itself
// validates.
func (c Config) Validate() error {
	if err := c.ShieldParams().Validate(); err != nil {
		return err
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("config: buffer_duration must be positive, got %g", c.BufferDuration)
	}
	if len(c.InitQ) != c.Joints {
		return fmt.Errorf("config: init_q has %d entries for %d joints", len(c.InitQ), c.Joints)
	}
	if len(c.Robot.LinkLengths) != 0 && len(c.Robot.LinkLengths) != c.Joints {
		return fmt.Errorf("config: robot.link_lengths has %d entries for %d joints",
			len(c.Robot.LinkLengths), c.Joints)
	}
	for i, v := range c.VMaxAllowed {
		if v <= 0 || c.AMaxAllowed[i] <= 0 || c.JMaxAllowed[i] <= 0 ||
			c.AMaxLTT[i] <= 0 || c.JMaxLTT[i] <= 0 {
			return fmt.Errorf("config: joint %d: all kinematic limits must be positive", i)
		}
	}
	return nil
}

// ShieldParams maps the configuration onto the shield's immutable parameters.
func (c Config) ShieldParams() shield.Params {
	return shield.Params{
		Enabled:        c.Enabled,
		Joints:         c.Joints,
		SampleTime:     c.SampleTime,
		BufferDuration: c.BufferDuration,
		MaxSStop:       c.MaxSStop,
		VMaxAllowed:    c.VMaxAllowed,
		AMaxAllowed:    c.AMaxAllowed,
		JMaxAllowed:    c.JMaxAllowed,
		AMaxLTT:        c.AMaxLTT,
		JMaxLTT:        c.JMaxLTT,
	}
}
