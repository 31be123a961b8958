// Package config loads world settings and scenes from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/constraint"
	"github.com/akmonengine/quill/manifold"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 1.0 / 60.0
	DefaultDuration  = 5.0
	DefaultSubsteps  = 1
	DefaultWorkers   = 1
	DefaultCcdMargin = 0.01
	DefaultCellSize  = 4.0
	DefaultNumCells  = 1024
)

var (
	ErrInvalidConfig   = errors.New("config: invalid value")
	ErrUnknownPreset   = errors.New("config: unknown preset")
	ErrUnknownShape    = errors.New("config: unknown shape")
	ErrUnknownBodyType = errors.New("config: unknown body type")
	ErrUnknownBody     = errors.New("config: unknown body")
	ErrDuplicateBody   = errors.New("config: duplicate body name")
	ErrUnknownJoint    = errors.New("config: unknown constraint type")
)

type Config struct {
	Dt       float64    `yaml:"dt"`
	Duration float64    `yaml:"duration"`
	Gravity  [3]float64 `yaml:"gravity"`
	Substeps int        `yaml:"substeps"`
	Workers  int        `yaml:"workers"`

	Solver       SolverConfig       `yaml:"solver"`
	Deactivation DeactivationConfig `yaml:"deactivation"`
	Grid         GridConfig         `yaml:"grid"`

	ContactBreakingThreshold float64 `yaml:"contact_breaking_threshold"`
	CcdMargin                float64 `yaml:"ccd_margin"`

	Scene Scene `yaml:"scene"`
}

type SolverConfig struct {
	Iterations         int     `yaml:"iterations"`
	ERP                float64 `yaml:"erp"`
	CFM                float64 `yaml:"cfm"`
	WarmStarting       bool    `yaml:"warm_starting"`
	WarmStartingFactor float64 `yaml:"warm_starting_factor"`
}

type DeactivationConfig struct {
	Time             float64 `yaml:"time"`
	LinearThreshold  float64 `yaml:"linear_threshold"`
	AngularThreshold float64 `yaml:"angular_threshold"`
	Disabled         bool    `yaml:"disabled"`
}

type GridConfig struct {
	CellSize float64 `yaml:"cell_size"`
	NumCells int     `yaml:"num_cells"`
}

func DefaultConfig() *Config {
	solver := constraint.DefaultSolverInfo(DefaultDt)
	deactivation := actor.DefaultDeactivation()

	return &Config{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Gravity:  [3]float64{0, -9.81, 0},
		Substeps: DefaultSubsteps,
		Workers:  DefaultWorkers,
		Solver: SolverConfig{
			Iterations:         solver.NumIterations,
			ERP:                solver.ERP,
			CFM:                solver.CFM,
			WarmStarting:       solver.WarmStarting,
			WarmStartingFactor: solver.WarmStartingFactor,
		},
		Deactivation: DeactivationConfig{
			Time:             deactivation.Time,
			LinearThreshold:  deactivation.LinearSleepingThreshold,
			AngularThreshold: deactivation.AngularSleepingThreshold,
		},
		Grid: GridConfig{
			CellSize: DefaultCellSize,
			NumCells: DefaultNumCells,
		},
		ContactBreakingThreshold: manifold.DefaultBreakingThreshold,
		CcdMargin:                DefaultCcdMargin,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes data over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Dt <= 0:
		return fmt.Errorf("dt %v: %w", c.Dt, ErrInvalidConfig)
	case c.Duration < 0:
		return fmt.Errorf("duration %v: %w", c.Duration, ErrInvalidConfig)
	case c.Substeps < 1:
		return fmt.Errorf("substeps %d: %w", c.Substeps, ErrInvalidConfig)
	case c.Solver.Iterations < 1:
		return fmt.Errorf("solver iterations %d: %w", c.Solver.Iterations, ErrInvalidConfig)
	case c.Solver.ERP < 0 || c.Solver.ERP > 1:
		return fmt.Errorf("solver erp %v: %w", c.Solver.ERP, ErrInvalidConfig)
	case c.Solver.CFM < 0:
		return fmt.Errorf("solver cfm %v: %w", c.Solver.CFM, ErrInvalidConfig)
	case c.ContactBreakingThreshold <= 0:
		return fmt.Errorf("contact breaking threshold %v: %w", c.ContactBreakingThreshold, ErrInvalidConfig)
	case c.Grid.CellSize <= 0 || c.Grid.NumCells < 1:
		return fmt.Errorf("grid %v x %d: %w", c.Grid.CellSize, c.Grid.NumCells, ErrInvalidConfig)
	}

	return c.Scene.validate()
}

// Steps is the number of world steps covering Duration
func (c *Config) Steps() int {
	return int(c.Duration/c.Dt + 0.5)
}

// Settings converts the configuration into world settings
func (c *Config) Settings() quill.Settings {
	settings := quill.DefaultSettings()

	settings.Gravity = mgl64.Vec3(c.Gravity)
	settings.Substeps = c.Substeps
	settings.Workers = c.Workers

	settings.Solver = constraint.DefaultSolverInfo(c.Dt / float64(c.Substeps))
	settings.Solver.NumIterations = c.Solver.Iterations
	settings.Solver.ERP = c.Solver.ERP
	settings.Solver.CFM = c.Solver.CFM
	settings.Solver.WarmStarting = c.Solver.WarmStarting
	settings.Solver.WarmStartingFactor = c.Solver.WarmStartingFactor

	settings.Deactivation = actor.Deactivation{
		Time:                     c.Deactivation.Time,
		LinearSleepingThreshold:  c.Deactivation.LinearThreshold,
		AngularSleepingThreshold: c.Deactivation.AngularThreshold,
		Disabled:                 c.Deactivation.Disabled,
	}

	settings.ContactBreakingThreshold = c.ContactBreakingThreshold
	settings.CcdMargin = c.CcdMargin
	settings.CellSize = c.Grid.CellSize
	settings.NumCells = c.Grid.NumCells

	return settings
}
