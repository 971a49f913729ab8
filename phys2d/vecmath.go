// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// vecmath.go is a handful of Vec2 helpers built on top of the fx scalar
// ops, so narrowphase/solver/joint code reads as vector algebra instead
// of repeated fx.Add/fx.Sub/fx.Mul chains. No method carries any
// behavior the fx package doesn't already define bit-for-bit.

import "github.com/lockstep-sim/detphys2d/fx"

func vAdd(a, b Vec2) Vec2 { return Vec2{X: fx.Add(a.X, b.X), Y: fx.Add(a.Y, b.Y)} }
func vSub(a, b Vec2) Vec2 { return Vec2{X: fx.Sub(a.X, b.X), Y: fx.Sub(a.Y, b.Y)} }
func vScale(a Vec2, s fx.FX) Vec2 { return Vec2{X: fx.Mul(a.X, s), Y: fx.Mul(a.Y, s)} }
func vNeg(a Vec2) Vec2 { return Vec2{X: fx.Neg(a.X), Y: fx.Neg(a.Y)} }
func vDot(a, b Vec2) fx.FX { return fx.Add(fx.Mul(a.X, b.X), fx.Mul(a.Y, b.Y)) }
func vCross(a, b Vec2) fx.FX { return fx.Sub(fx.Mul(a.X, b.Y), fx.Mul(a.Y, b.X)) }

// vPerp returns a vector rotated 90 degrees clockwise from a. This is
// the perpendicular convention for both the friction tangent and the
// prismatic perpendicular axis; the sign is part of the bit-identical
// contract, so it must not change.
func vPerp(a Vec2) Vec2 { return Vec2{X: a.Y, Y: fx.Neg(a.X)} }

// vLen approximates |a| via the fx package's approximate length, the
// only length routine allowed in the pipeline (max + 0.375*min^2/max).
func vLen(a Vec2) fx.FX { return fx.LenApprox(a.X, a.Y) }

// vNormalize returns (a/|a|, |a|); the zero vector normalizes to (1,0),0.
func vNormalize(a Vec2) (Vec2, fx.FX) {
	nx, ny, l := fx.Normalize(a.X, a.Y)
	return Vec2{X: nx, Y: ny}, l
}
