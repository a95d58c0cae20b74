// Package config defines the system parameters of a simulation run and
// their YAML representation.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

const (
	DefaultCarrierHz    = 28e9
	DefaultRISElements  = 16
	DefaultBSAntennas   = 4
	DefaultDuration     = 0.1
	DefaultInterval     = 1e-3
	DefaultPhaseVar     = 0.01
	DefaultAmpRange     = 0.05
	DefaultVelocity     = 1.5
	DefaultBlockageRate = 2.0
)

// Params holds every knob of a run. Values are read-only after
// construction; components receive Params by value.
type Params struct {
	CarrierHz     float64 `yaml:"carrier_hz"`      // carrier frequency, Hz
	RISElements   int     `yaml:"ris_elements"`    // N, surface elements
	BSAntennas    int     `yaml:"bs_antennas"`     // M, array antennas
	Duration      float64 `yaml:"duration_s"`      // simulated span, s
	Interval      float64 `yaml:"interval_s"`      // sampling interval, s
	PhaseNoiseVar float64 `yaml:"phase_noise_var"` // per-element phase variance, rad^2
	AmpErrorRange float64 `yaml:"amp_error_range"` // amplitude half-range, fraction in [0,1)
	VelocityMps   float64 `yaml:"velocity_mps"`    // user speed, m/s
	BlockageRate  float64 `yaml:"blockage_rate"`   // blockage events per second
	Seed          int64   `yaml:"seed"`

	// Paths consumed by the external data collaborators. Empty means the
	// corresponding provider reports itself unavailable.
	DatasetPath  string `yaml:"dataset_path"`
	CouplingPath string `yaml:"coupling_path"`
}

func Default() Params {
	return Params{
		CarrierHz:     DefaultCarrierHz,
		RISElements:   DefaultRISElements,
		BSAntennas:    DefaultBSAntennas,
		Duration:      DefaultDuration,
		Interval:      DefaultInterval,
		PhaseNoiseVar: DefaultPhaseVar,
		AmpErrorRange: DefaultAmpRange,
		VelocityMps:   DefaultVelocity,
		BlockageRate:  DefaultBlockageRate,
		Seed:          1,
	}
}

// Load reads a YAML config, layered over Default.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

func Save(path string, p Params) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigError reports an out-of-range parameter. Validation runs before any
// computation; no component accepts unvalidated Params.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (p Params) Validate() error {
	switch {
	case p.CarrierHz <= 0:
		return &ConfigError{"carrier_hz", fmt.Sprintf("must be positive, got %g", p.CarrierHz)}
	case p.RISElements <= 0:
		return &ConfigError{"ris_elements", fmt.Sprintf("must be positive, got %d", p.RISElements)}
	case p.BSAntennas <= 0:
		return &ConfigError{"bs_antennas", fmt.Sprintf("must be positive, got %d", p.BSAntennas)}
	case p.Duration <= 0:
		return &ConfigError{"duration_s", fmt.Sprintf("must be positive, got %g", p.Duration)}
	case p.Interval <= 0:
		return &ConfigError{"interval_s", fmt.Sprintf("must be positive, got %g", p.Interval)}
	case p.Interval > p.Duration:
		return &ConfigError{"interval_s", fmt.Sprintf("interval %g exceeds duration %g", p.Interval, p.Duration)}
	case p.PhaseNoiseVar < 0:
		return &ConfigError{"phase_noise_var", "must be non-negative"}
	case p.AmpErrorRange < 0 || p.AmpErrorRange >= 1:
		return &ConfigError{"amp_error_range", fmt.Sprintf("must be in [0,1), got %g", p.AmpErrorRange)}
	case p.BlockageRate < 0:
		return &ConfigError{"blockage_rate", "must be non-negative"}
	}
	return nil
}

// Steps returns T, the number of samples on the time axis.
func (p Params) Steps() int {
	return int(math.Floor(p.Duration / p.Interval))
}

// DopplerShift returns fd = v * fc / c in Hz.
func (p Params) DopplerShift() float64 {
	return p.VelocityMps * p.CarrierHz / ris.SpeedOfLight
}

// Wavelength of the carrier, m.
func (p Params) Wavelength() float64 {
	return ris.SpeedOfLight / p.CarrierHz
}
