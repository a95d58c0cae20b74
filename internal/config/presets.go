package config

import (
	"fmt"
	"sort"
)

// Presets are named starting points for common scenarios; flags and config
// files layer on top of them.
var presets = map[string]Params{
	"lab": {
		CarrierHz:     5.8e9,
		RISElements:   8,
		BSAntennas:    2,
		Duration:      0.05,
		Interval:      1e-3,
		PhaseNoiseVar: 0,
		AmpErrorRange: 0,
		VelocityMps:   0,
		BlockageRate:  0,
		Seed:          1,
	},
	"urban-mobility": {
		CarrierHz:     28e9,
		RISElements:   64,
		BSAntennas:    8,
		Duration:      0.2,
		Interval:      5e-4,
		PhaseNoiseVar: 0.02,
		AmpErrorRange: 0.1,
		VelocityMps:   13.9, // 50 km/h
		BlockageRate:  5,
		Seed:          1,
	},
	"static-hardware": {
		CarrierHz:     28e9,
		RISElements:   32,
		BSAntennas:    4,
		Duration:      0.1,
		Interval:      1e-3,
		PhaseNoiseVar: 0.05,
		AmpErrorRange: 0.15,
		VelocityMps:   0,
		BlockageRate:  0,
		Seed:          1,
	},
}

func Preset(name string) (Params, error) {
	p, ok := presets[name]
	if !ok {
		return Params{}, fmt.Errorf("config: unknown preset %q", name)
	}
	return p, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
