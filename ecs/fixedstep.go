// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ecs

// fixedstep.go is the wall-clock boundary: an accumulator that converts
// "real time passed" into "how many fixed ticks to run". The simulation
// core itself never touches wall-clock time, so determinism depends only
// on which fixed steps ran and in what order.

import "github.com/lockstep-sim/detphys2d/fx"

// FixedStepper accumulates wall-clock time and reports how many fixed
// simulation steps have become due.
type FixedStepper struct {
	step        fx.FX // fixed timestep in seconds, Q16.16.
	accumulated fx.FX
	maxCatchUp  int // clamp to avoid unbounded catch-up after a stall.
}

// NewFixedStepper creates a stepper for the given fixed timestep and a
// cap on how many steps may be produced from a single Advance call (a
// long pause, e.g. a debugger breakpoint, should not replay hours of
// ticks).
func NewFixedStepper(step fx.FX, maxCatchUp int) *FixedStepper {
	return &FixedStepper{step: step, maxCatchUp: maxCatchUp}
}

// Advance adds elapsed wall-clock seconds (Q16.16) to the accumulator and
// returns how many fixed steps are now due, draining the accumulator by
// that many steps worth of time.
func (f *FixedStepper) Advance(elapsed fx.FX) int {
	f.accumulated = fx.Add(f.accumulated, elapsed)
	steps := 0
	for f.accumulated >= f.step && steps < f.maxCatchUp {
		f.accumulated = fx.Sub(f.accumulated, f.step)
		steps++
	}
	if steps == f.maxCatchUp {
		// Drop the remainder rather than let it build into a debt that
		// forces ever-larger catch-up bursts later.
		f.accumulated = 0
	}
	return steps
}
