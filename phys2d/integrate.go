// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// integrate.go is the tick's first stage: advance every body's position
// and orientation by its current velocity. Force/impulse application
// (gravity, external pushes) is the embedder's responsibility, between
// ticks; the core only integrates whatever velocity is already on the
// body.

import (
	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// Integrate advances every dynamic body's position and angle by one
// fixed step using its current velocity. A sleeping body has zero
// velocity, so integrating it is a no-op; static bodies (InvMass==0)
// are skipped outright since they never move.
func Integrate(w *World) {
	dt := w.FixedStep()
	bodies := ecs.StoreOf[Body2D](w)
	bodies.Each(func(e Entity, b *Body2D) {
		if b.IsStatic() {
			return
		}
		b.PX = fx.Add(b.PX, fx.Mul(b.VX, dt))
		b.PY = fx.Add(b.PY, fx.Mul(b.VY, dt))
		b.Angle = WrapAngle(fx.Add(b.Angle, fx.Mul(b.W, dt)))
	})
}
