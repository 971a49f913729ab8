// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

import (
	"testing"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
	"github.com/stretchr/testify/assert"
)

func TestFrameHashDeterministicAcrossEqualWorlds(t *testing.T) {
	build := func() *World {
		w := NewWorld()
		bodies := ecs.StoreOf[Body2D](w)
		e1 := w.NewEntity()
		e2 := w.NewEntity()
		bodies.Set(e1, Body2D{PX: fx.From(1), VY: fx.From(2), Awake: true})
		bodies.Set(e2, Body2D{PX: fx.From(-3), Angle: fx.From(0.25)})
		ecs.SetResource(w, Contacts2D{List: []Contact2D{
			{A: e1, B: e2, Jn: fx.From(4), Normal: Vec2{X: fx.One}},
		}})
		return w
	}

	h1 := FrameHash(build())
	h2 := FrameHash(build())
	assert.Equal(t, h1, h2)
}

func TestFrameHashIndependentOfComponentStoreIterationOrder(t *testing.T) {
	w1 := NewWorld()
	b1 := ecs.StoreOf[Body2D](w1)
	e1a := w1.NewEntity()
	e1b := w1.NewEntity()
	ecs.StoreOf[Guid](w1).Set(e1a, Guid{Hi: 0, Lo: 2})
	ecs.StoreOf[Guid](w1).Set(e1b, Guid{Hi: 0, Lo: 1})
	b1.Set(e1a, Body2D{PX: fx.From(9)})
	b1.Set(e1b, Body2D{PX: fx.From(1)})

	w2 := NewWorld()
	b2 := ecs.StoreOf[Body2D](w2)
	e2a := w2.NewEntity() // inserted in the opposite guid order.
	e2b := w2.NewEntity()
	ecs.StoreOf[Guid](w2).Set(e2a, Guid{Hi: 0, Lo: 1})
	ecs.StoreOf[Guid](w2).Set(e2b, Guid{Hi: 0, Lo: 2})
	b2.Set(e2a, Body2D{PX: fx.From(1)})
	b2.Set(e2b, Body2D{PX: fx.From(9)})

	assert.Equal(t, FrameHash(w1), FrameHash(w2))
}

func TestFrameHashChangesWithContactState(t *testing.T) {
	w := NewWorld()
	e := w.NewEntity()
	ecs.StoreOf[Body2D](w).Set(e, Body2D{})

	ecs.SetResource(w, Contacts2D{List: []Contact2D{{A: e, Jn: fx.From(1)}}})
	h1 := FrameHash(w)
	ecs.SetResource(w, Contacts2D{List: []Contact2D{{A: e, Jn: fx.From(2)}}})
	h2 := FrameHash(w)

	assert.NotEqual(t, h1, h2)
}

func TestRunComputeHashStoresLastFrameHash(t *testing.T) {
	w := NewWorld()
	e := w.NewEntity()
	ecs.StoreOf[Body2D](w).Set(e, Body2D{PX: fx.From(3)})

	RunComputeHash(w)

	assert.Equal(t, FrameHash(w), LastFrameHash(w))
}
