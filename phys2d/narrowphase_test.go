// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

import (
	"testing"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
	"github.com/stretchr/testify/assert"
)

func square(cx, cy, half float64) HullWorld2D {
	c := Vec2{X: fx.From(cx), Y: fx.From(cy)}
	h := fx.From(half)
	verts := []Vec2{
		{X: fx.Add(c.X, h), Y: fx.Add(c.Y, h)},
		{X: fx.Sub(c.X, h), Y: fx.Add(c.Y, h)},
		{X: fx.Sub(c.X, h), Y: fx.Sub(c.Y, h)},
		{X: fx.Add(c.X, h), Y: fx.Sub(c.Y, h)},
	}
	normals := make([]Vec2, 4)
	for i := range verts {
		a, b := verts[i], verts[(i+1)%4]
		nx, ny, _ := fx.Normalize(fx.Sub(b.Y, a.Y), fx.Neg(fx.Sub(b.X, a.X)))
		normals[i] = Vec2{X: nx, Y: ny}
	}
	return HullWorld2D{Verts: verts, Normals: normals}
}

func TestCircleCircleOverlap(t *testing.T) {
	a := CircleWorld2D{Center: Vec2{X: 0, Y: 0}, R: fx.From(1)}
	b := CircleWorld2D{Center: Vec2{X: fx.From(1.5), Y: 0}, R: fx.From(1)}
	c, ok := circleCircle(a, b)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, c.Normal.X.ToFloat(), 0.02)
	assert.InDelta(t, 0.5, c.Penetration.ToFloat(), 0.05)
	assert.Equal(t, int32(0), c.FeatureID)
}

func TestCircleCircleSeparatedNoContact(t *testing.T) {
	a := CircleWorld2D{Center: Vec2{X: 0, Y: 0}, R: fx.From(1)}
	b := CircleWorld2D{Center: Vec2{X: fx.From(5), Y: 0}, R: fx.From(1)}
	_, ok := circleCircle(a, b)
	assert.False(t, ok)
}

func TestCircleCircleConcentricUsesFallbackNormal(t *testing.T) {
	a := CircleWorld2D{Center: Vec2{X: 0, Y: 0}, R: fx.From(1)}
	b := CircleWorld2D{Center: Vec2{X: 0, Y: 0}, R: fx.From(1)}
	c, ok := circleCircle(a, b)
	assert.True(t, ok)
	assert.Equal(t, fx.One, c.Normal.X)
	assert.Equal(t, fx.Zero, c.Normal.Y)
	assert.Equal(t, fx.From(2), c.Penetration)
}

func TestHullCircleFaceContact(t *testing.T) {
	hull := square(0, 0, 1)
	circle := CircleWorld2D{Center: Vec2{X: fx.From(1.5), Y: 0}, R: fx.From(1)}
	c, ok := hullCircle(hull, circle)
	assert.True(t, ok)
	assert.True(t, c.FeatureID >= 0 && c.FeatureID < hullVertexFeature)
	assert.True(t, c.Penetration > 0)
}

func TestHullCircleVertexContact(t *testing.T) {
	hull := square(0, 0, 1)
	circle := CircleWorld2D{Center: Vec2{X: fx.From(1.6), Y: fx.From(1.6)}, R: fx.From(1)}
	c, ok := hullCircle(hull, circle)
	if ok {
		assert.True(t, c.FeatureID&hullVertexFeature != 0)
	}
}

func TestHullHullOverlappingSquaresProduceContacts(t *testing.T) {
	a := square(0, 0, 1)
	b := square(1.5, 0, 1)
	contacts := hullHull(a, b)
	assert.NotEmpty(t, contacts)
	for _, c := range contacts {
		assert.True(t, c.Penetration > 0)
	}
}

func TestHullHullSeparatedSquaresProduceNoContacts(t *testing.T) {
	a := square(0, 0, 1)
	b := square(10, 0, 1)
	contacts := hullHull(a, b)
	assert.Empty(t, contacts)
}

func TestRunNarrowphaseSortsContactsByPairAscending(t *testing.T) {
	w := NewWorld()
	e1 := w.NewEntity()
	e2 := w.NewEntity()
	e3 := w.NewEntity()
	ecs.StoreOf[CircleWorld2D](w).Set(e1, CircleWorld2D{Center: Vec2{X: 0, Y: 0}, R: fx.From(1)})
	ecs.StoreOf[CircleWorld2D](w).Set(e2, CircleWorld2D{Center: Vec2{X: fx.From(1.5), Y: 0}, R: fx.From(1)})
	ecs.StoreOf[CircleWorld2D](w).Set(e3, CircleWorld2D{Center: Vec2{X: fx.From(3), Y: 0}, R: fx.From(1)})

	ecs.SetResource(w, BroadphasePairs{Pairs: []PairKey{
		MakePairKey(w, e3, e2),
		MakePairKey(w, e2, e1),
	}})

	RunNarrowphase(w)

	got := ecs.Resource[Contacts2D](w).List
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.True(t, prev.A < cur.A || (prev.A == cur.A && prev.B <= cur.B))
	}
}

func TestRunNarrowphaseCarriesWarmStartFromPrev(t *testing.T) {
	w := NewWorld()
	e1 := w.NewEntity()
	e2 := w.NewEntity()
	ecs.StoreOf[CircleWorld2D](w).Set(e1, CircleWorld2D{Center: Vec2{X: 0, Y: 0}, R: fx.From(1)})
	ecs.StoreOf[CircleWorld2D](w).Set(e2, CircleWorld2D{Center: Vec2{X: fx.From(1.5), Y: 0}, R: fx.From(1)})
	pk := MakePairKey(w, e1, e2)
	ecs.SetResource(w, BroadphasePairs{Pairs: []PairKey{pk}})
	ecs.SetResource(w, Contacts2D{Prev: map[string]PrevImpulse{pk.Key: {Jn: fx.From(2), Jt: fx.From(1)}}})

	RunNarrowphase(w)

	got := ecs.Resource[Contacts2D](w).List
	assert.Len(t, got, 1)
	assert.Equal(t, fx.From(2), got[0].Jn)
	assert.Equal(t, fx.From(1), got[0].Jt)
}
