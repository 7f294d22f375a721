// Package config loads the JSON run configuration of a master iteration.
package config

import (
	"encoding/json"
	"io/ioutil"
	"time"

	"github.com/ohowland/lno_core/internal/pkg/duals"
	"github.com/ohowland/lno_core/internal/pkg/instance"
	"github.com/ohowland/lno_core/internal/pkg/rmp"
	"github.com/ohowland/lno_core/internal/pkg/solve"
	"github.com/pkg/errors"
)

const (
	ModeInProcess  = "inprocess"
	ModeSubprocess = "subprocess"
)

// Config is the top-level run configuration.
type Config struct {
	BigM      float64           `json:"BigM"`
	Scale     int64             `json:"Scale"`
	MaxDual   int64             `json:"MaxDual"`
	Tolerance float64           `json:"Tolerance"`
	Settings  instance.Settings `json:"Settings"`
	Solver    SolverConfig      `json:"Solver"`
	FactsPath string            `json:"FactsPath"`
	DualsPath string            `json:"DualsPath"`
}

// SolverConfig selects the master solver. Timeout is a time.ParseDuration string; empty
// means no limit.
type SolverConfig struct {
	Mode    string   `json:"Mode"`
	Path    string   `json:"Path"`
	Args    []string `json:"Args"`
	Timeout string   `json:"Timeout"`
}

// Default returns the configuration used for fields a file leaves out.
func Default() Config {
	return Config{
		BigM:      rmp.DefaultBigM,
		Scale:     duals.DefaultScale,
		MaxDual:   duals.DefaultMaxAbs,
		Settings:  instance.DefaultSettings(),
		Solver:    SolverConfig{Mode: ModeInProcess},
		DualsPath: "duals_out.lp",
	}
}

// New reads the configuration file at configPath.
func New(configPath string) (Config, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return Config{}, err
	}
	return Parse(jsonConfig)
}

// Parse decodes a JSON configuration over the defaults and validates it.
func Parse(jsonConfig []byte) (Config, error) {
	c := Default()
	if err := json.Unmarshal(jsonConfig, &c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.BigM <= 0:
		return errors.Errorf("BigM must be positive, got %g", c.BigM)
	case c.Scale <= 0:
		return errors.Errorf("Scale must be positive, got %d", c.Scale)
	case c.MaxDual <= 0:
		return errors.Errorf("MaxDual must be positive, got %d", c.MaxDual)
	case c.Tolerance < 0:
		return errors.Errorf("Tolerance must not be negative, got %g", c.Tolerance)
	}
	switch c.Solver.Mode {
	case ModeInProcess:
	case ModeSubprocess:
		if c.Solver.Path == "" {
			return errors.New("subprocess solver needs a Path")
		}
	default:
		return errors.Errorf("unknown solver mode %q", c.Solver.Mode)
	}
	_, err := c.Timeout()
	return err
}

// Timeout parses the solver timeout.
func (c Config) Timeout() (time.Duration, error) {
	if c.Solver.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Solver.Timeout)
	if err != nil {
		return 0, errors.Wrap(err, "solver timeout")
	}
	if d < 0 {
		return 0, errors.Errorf("solver timeout must not be negative, got %s", d)
	}
	return d, nil
}

// NewSolver builds the configured solver.
func (c Config) NewSolver() solve.Solver {
	if c.Solver.Mode == ModeSubprocess {
		return &solve.Subprocess{Path: c.Solver.Path, Args: c.Solver.Args}
	}
	return &solve.InProcess{BigM: c.BigM}
}

// Encoder builds the dual encoder.
func (c Config) Encoder() *duals.Encoder {
	return &duals.Encoder{Scale: c.Scale, MaxAbs: c.MaxDual, Tolerance: c.Tolerance}
}
