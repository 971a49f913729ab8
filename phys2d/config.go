// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// config.go loads sleep/wake tuning from a YAML document: a small set of
// named, documented knobs with defaults, sourced from a file instead of
// call-site options since these values are tuning presets an embedder
// wants to swap without recompiling. Loading only ever happens before
// tick 0 — the core itself never performs I/O mid-simulation — so this
// stays a pure boundary helper, not a pipeline stage.

import (
	"fmt"

	"github.com/lockstep-sim/detphys2d/fx"
	"gopkg.in/yaml.v3"
)

// sleepConfigDoc is the YAML-facing shape: plain floats, since YAML has
// no notion of Q16.16. LoadSleepConfig converts each field through
// fx.From at the load boundary, same as every other FX value that
// originates outside the solver hot path.
type sleepConfigDoc struct {
	LinThresh   *float64 `yaml:"linThresh"`
	AngThresh   *float64 `yaml:"angThresh"`
	TimeToSleep *float64 `yaml:"timeToSleep"`
	WakeBias    *float64 `yaml:"wakeBias"`
	ImpulseWake *float64 `yaml:"impulseWake"`
}

// LoadSleepConfig parses a YAML document into a PhysicsSleepConfig,
// starting from DefaultSleepConfig() and overriding only the fields the
// document sets. A malformed document returns an error; a well-formed
// but empty one returns the defaults unchanged.
func LoadSleepConfig(data []byte) (PhysicsSleepConfig, error) {
	cfg := DefaultSleepConfig()

	var doc sleepConfigDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return PhysicsSleepConfig{}, fmt.Errorf("phys2d: parsing sleep config: %w", err)
	}
	if doc.LinThresh != nil {
		cfg.LinThresh = fx.From(*doc.LinThresh)
	}
	if doc.AngThresh != nil {
		cfg.AngThresh = fx.From(*doc.AngThresh)
	}
	if doc.TimeToSleep != nil {
		cfg.TimeToSleep = fx.From(*doc.TimeToSleep)
	}
	if doc.WakeBias != nil {
		cfg.WakeBias = fx.From(*doc.WakeBias)
	}
	if doc.ImpulseWake != nil {
		cfg.ImpulseWake = fx.From(*doc.ImpulseWake)
	}
	return cfg, nil
}
