// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// ccd.go implements speculative continuous collision detection: for
// fast-moving pairs that narrowphase found not yet touching, synthesize
// a contact the solver can resolve a frame early instead of letting the
// body tunnel through.

import (
	"sort"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// RunSpeculativeCCD scans BroadphasePairs for pairs narrowphase did not
// already report contacting and, for those closing fast enough to
// tunnel this step, appends a speculative contact to Contacts2D.List.
// Expects RunNarrowphase to have already run this frame.
func RunSpeculativeCCD(w *World) {
	dt := w.FixedStep()
	bodies := ecs.StoreOf[Body2D](w)
	contacts := ecs.Resource[Contacts2D](w)

	already := make(map[string]bool, len(contacts.List))
	for _, c := range contacts.List {
		already[c.Key] = true
	}

	pairs := ecs.Resource[BroadphasePairs](w)
	for _, pk := range pairs.Pairs {
		if already[pk.Key] {
			continue
		}
		normal, s0, ok := pairSeparation(w, pk.A, pk.B)
		if !ok || s0 <= 0 {
			continue
		}
		ba, okA := bodies.Get(pk.A)
		bb, okB := bodies.Get(pk.B)
		if !okA || !okB {
			continue
		}
		relVel := Vec2{X: fx.Sub(bb.VX, ba.VX), Y: fx.Sub(bb.VY, ba.VY)}
		vn := vDot(normal, relVel)
		if vn >= 0 {
			continue
		}
		closing := fx.Add(s0, fx.Mul(vn, dt))
		if closing >= 0 {
			continue
		}
		pen := fx.Neg(closing)
		toi := fx.Clamp(fx.Div(fx.Div(s0, fx.Neg(vn)), dt), 0, fx.One)
		posA := Vec2{X: ba.PX, Y: ba.PY}
		posB := Vec2{X: bb.PX, Y: bb.PY}
		mid := vScale(vAdd(posA, posB), fx.From(0.5))
		contacts.List = append(contacts.List, Contact2D{
			A: pk.A, B: pk.B, Key: pk.Key,
			Normal: normal, Point: mid, Penetration: pen,
			Speculative: true, TOI: toi,
		})
		already[pk.Key] = true
	}

	// Appending speculative contacts can break the (a, b) ordering
	// narrowphase established; restore it so the list stays sorted
	// through commit.
	sort.SliceStable(contacts.List, func(i, j int) bool {
		if contacts.List[i].A != contacts.List[j].A {
			return contacts.List[i].A < contacts.List[j].A
		}
		return contacts.List[i].B < contacts.List[j].B
	})
}

// pairSeparation returns the current separation (positive = apart) and
// the A-to-B normal for a non-contacting pair, dispatching on shape kind
// the same way narrowphase does.
func pairSeparation(w *World, a, b Entity) (Vec2, fx.FX, bool) {
	circles := ecs.StoreOf[CircleWorld2D](w)
	hulls := ecs.StoreOf[HullWorld2D](w)

	ca, aIsCircle := circles.Get(a)
	cb, bIsCircle := circles.Get(b)
	ha, aIsHull := hulls.Get(a)
	hb, bIsHull := hulls.Get(b)

	switch {
	case aIsCircle && bIsCircle:
		d := vSub(cb.Center, ca.Center)
		n, dist := vNormalize(d)
		return n, fx.Sub(dist, fx.Add(ca.R, cb.R)), true
	case aIsHull && bIsCircle:
		sep, edge := hullCircleSeparation(*ha, *cb)
		return ha.Normals[edge], sep, true
	case aIsCircle && bIsHull:
		sep, edge := hullCircleSeparation(*hb, *ca)
		return vNeg(hb.Normals[edge]), sep, true
	case aIsHull && bIsHull:
		sepA, edgeA := findMaxSeparation(*ha, *hb)
		sepB, edgeB := findMaxSeparation(*hb, *ha)
		if sepB > sepA {
			return vNeg(hb.Normals[edgeB]), sepB, true
		}
		return ha.Normals[edgeA], sepA, true
	}
	return Vec2{}, 0, false
}

// hullCircleSeparation is the maxSep/edge half of hullCircle, reused by
// CCD for pairs that are not yet overlapping.
func hullCircleSeparation(hull HullWorld2D, circle CircleWorld2D) (fx.FX, int) {
	maxSep := fx.FX(-(1 << 30))
	edge := 0
	for i := range hull.Verts {
		ni := hull.Normals[i]
		vi := hull.Verts[i]
		sep := fx.Sub(vDot(ni, vSub(circle.Center, vi)), circle.R)
		if sep > maxSep {
			maxSep = sep
			edge = i
		}
	}
	return maxSep, edge
}
