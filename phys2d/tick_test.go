// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

import (
	"testing"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
	"github.com/stretchr/testify/assert"
)

func TestRegisterSystemsIsIdempotent(t *testing.T) {
	w := NewWorld()
	RegisterSystems(w)
	RegisterSystems(w)

	e := w.NewEntity()
	ecs.StoreOf[Body2D](w).Set(e, Body2D{VX: fx.One, InvMass: fx.One, InvI: fx.One})

	err := Tick(w, 16)
	assert.NoError(t, err)

	b, _ := ecs.StoreOf[Body2D](w).Get(e)
	assert.Equal(t, w.FixedStep(), b.PX) // integrate ran exactly once, not twice.
}

func TestTickRejectsMismatchedDt(t *testing.T) {
	w := NewWorld()
	RegisterSystems(w)

	err := Tick(w, 33)
	assert.Error(t, err)
}

func TestTickAcceptsExactFixedStepInMilliseconds(t *testing.T) {
	w := NewWorld()
	RegisterSystems(w)

	err := Tick(w, 16) // the 1/60s step is ~16.66ms, within the 1ms tolerance.
	assert.NoError(t, err)
}

func TestTickEndToEndSmokeAdvancesAndHashesApproachingBodies(t *testing.T) {
	w := NewWorld()
	RegisterSystems(w)

	bodies := ecs.StoreOf[Body2D](w)
	shapes := ecs.StoreOf[ShapeCircle](w)
	a := w.NewEntity()
	b := w.NewEntity()
	bodies.Set(a, Body2D{PX: fx.From(-1), VX: fx.From(1), InvMass: fx.One, InvI: 0, Awake: true})
	bodies.Set(b, Body2D{PX: fx.From(1), VX: fx.Neg(fx.From(1)), InvMass: fx.One, InvI: 0, Awake: true})
	shapes.Set(a, ShapeCircle{R: fx.From(0.6)})
	shapes.Set(b, ShapeCircle{R: fx.From(0.6)})

	h0 := FrameHash(w)
	for i := 0; i < 5; i++ {
		err := Tick(w, 16)
		assert.NoError(t, err)
	}

	assert.NotEqual(t, h0, LastFrameHash(w))
	ba, _ := bodies.Get(a)
	assert.Greater(t, ba.PX, fx.From(-1)) // body A moved right, toward B.
}
