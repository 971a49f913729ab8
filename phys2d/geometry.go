// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// geometry.go is the geometry-sync system: it recomputes world-space
// shape caches (CircleWorld2D/HullWorld2D) and the AABB from each body's
// current position and angle.

import (
	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// SyncGeometry recomputes CircleWorld2D/HullWorld2D and AABB2D for every
// body with a shape. Expected to run once per tick, before broadphase.
func SyncGeometry(w *World) {
	syncCircles(w)
	syncHulls(w)
}

func syncCircles(w *World) {
	bodies := ecs.StoreOf[Body2D](w)
	shapes := ecs.StoreOf[ShapeCircle](w)
	worlds := ecs.StoreOf[CircleWorld2D](w)
	aabbs := ecs.StoreOf[AABB2D](w)

	shapes.Each(func(e Entity, sh *ShapeCircle) {
		b, ok := bodies.Get(e)
		if !ok {
			return
		}
		r := sh.R
		worlds.Set(e, CircleWorld2D{Center: Vec2{X: b.PX, Y: b.PY}, R: r})
		aabbs.Set(e, AABB2D{
			MinX: fx.Sub(b.PX, r), MinY: fx.Sub(b.PY, r),
			MaxX: fx.Add(b.PX, r), MaxY: fx.Add(b.PY, r),
		})
	})
}

func syncHulls(w *World) {
	bodies := ecs.StoreOf[Body2D](w)
	shapes := ecs.StoreOf[ConvexHull2D](w)
	worlds := ecs.StoreOf[HullWorld2D](w)
	aabbs := ecs.StoreOf[AABB2D](w)

	shapes.Each(func(e Entity, sh *ConvexHull2D) {
		b, ok := bodies.Get(e)
		if !ok {
			return
		}
		n := len(sh.Local)
		verts := make([]Vec2, n)
		normals := make([]Vec2, n)
		cosA, sinA := fx.Cos(b.Angle), fx.Sin(b.Angle)

		minX, minY := fx.FX(1<<30), fx.FX(1<<30)
		maxX, maxY := fx.FX(-(1 << 30)), fx.FX(-(1 << 30))
		for i, v := range sh.Local {
			wx := fx.Add(fx.Sub(fx.Mul(v.X, cosA), fx.Mul(v.Y, sinA)), b.PX)
			wy := fx.Add(fx.Add(fx.Mul(v.X, sinA), fx.Mul(v.Y, cosA)), b.PY)
			verts[i] = Vec2{X: wx, Y: wy}
			if wx < minX {
				minX = wx
			}
			if wy < minY {
				minY = wy
			}
			if wx > maxX {
				maxX = wx
			}
			if wy > maxY {
				maxY = wy
			}
		}
		for i := 0; i < n; i++ {
			a, c := verts[i], verts[(i+1)%n]
			ex, ey := fx.Sub(c.X, a.X), fx.Sub(c.Y, a.Y)
			nx, ny, _ := fx.Normalize(ey, fx.Neg(ex)) // outward normal for CCW winding.
			normals[i] = Vec2{X: nx, Y: ny}
		}

		worlds.Set(e, HullWorld2D{Verts: verts, Normals: normals, Skin: sh.Skin})
		aabbs.Set(e, AABB2D{
			MinX: fx.Sub(minX, sh.Skin), MinY: fx.Sub(minY, sh.Skin),
			MaxX: fx.Add(maxX, sh.Skin), MaxY: fx.Add(maxY, sh.Skin),
		})
	})
}
