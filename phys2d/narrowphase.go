// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// narrowphase.go generates contact points for every broadphase pair:
// circle-circle, hull-circle via single-axis SAT, and hull-hull via
// reference/incident face clipping.

import (
	"sort"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// RunNarrowphase consumes BroadphasePairs and produces this frame's
// Contacts2D.List, sorted by (a, b) ascending. Expects SyncGeometry and
// RunBroadphase to have already run.
func RunNarrowphase(w *World) {
	circles := ecs.StoreOf[CircleWorld2D](w)
	hulls := ecs.StoreOf[HullWorld2D](w)
	pairs := ecs.Resource[BroadphasePairs](w)

	var list []Contact2D
	for _, pk := range pairs.Pairs {
		ca, aIsCircle := circles.Get(pk.A)
		cb, bIsCircle := circles.Get(pk.B)
		ha, aIsHull := hulls.Get(pk.A)
		hb, bIsHull := hulls.Get(pk.B)

		switch {
		case aIsCircle && bIsCircle:
			if c, ok := circleCircle(*ca, *cb); ok {
				list = append(list, finishContact(c, pk))
			}
		case aIsHull && bIsCircle:
			if c, ok := hullCircle(*ha, *cb); ok {
				list = append(list, finishContact(c, pk))
			}
		case aIsCircle && bIsHull:
			if c, ok := hullCircle(*hb, *ca); ok {
				c.Normal = vNeg(c.Normal) // flip hull->circle into A(circle)->B(hull).
				list = append(list, finishContact(c, pk))
			}
		case aIsHull && bIsHull:
			for _, c := range hullHull(*ha, *hb) {
				list = append(list, finishContact(c, pk))
			}
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].A != list[j].A {
			return list[i].A < list[j].A
		}
		return list[i].B < list[j].B
	})

	prev := ecs.Resource[Contacts2D](w).Prev
	if prev == nil {
		prev = map[string]PrevImpulse{}
	}
	for i := range list {
		if p, ok := prev[list[i].Key]; ok {
			list[i].Jn, list[i].Jt = p.Jn, p.Jt
		}
	}
	ecs.SetResource(w, Contacts2D{List: list, Prev: prev, Frame: w.Frame()})
}

// rawContact is a narrowphase result before A/B/key are stamped on.
type rawContact struct {
	Normal      Vec2
	Point       Vec2
	Penetration fx.FX
	FeatureID   int32
}

func finishContact(c rawContact, pk PairKey) Contact2D {
	return Contact2D{
		A: pk.A, B: pk.B, Key: pk.Key,
		Normal: c.Normal, Point: c.Point,
		Penetration: c.Penetration, FeatureID: c.FeatureID,
	}
}

// circleCircle is the circle-circle overlap test. Normal points from A
// to B; exactly concentric circles fall back to normal (1, 0).
func circleCircle(a, b CircleWorld2D) (rawContact, bool) {
	d := vSub(b.Center, a.Center)
	r := fx.Add(a.R, b.R)
	if fx.Abs(d.X) > r || fx.Abs(d.Y) > r {
		return rawContact{}, false
	}
	distSq := fx.Add(fx.Mul(d.X, d.X), fx.Mul(d.Y, d.Y))
	rSq := fx.Mul(r, r)
	if distSq >= rSq {
		return rawContact{}, false
	}

	var normal Vec2
	var dist fx.FX
	if d.X == 0 && d.Y == 0 {
		normal = Vec2{X: fx.One, Y: 0}
		dist = 0
	} else {
		normal, dist = vNormalize(d)
	}
	pen := fx.Sub(r, dist)
	point := vAdd(a.Center, vScale(normal, a.R))
	return rawContact{Normal: normal, Point: point, Penetration: pen, FeatureID: 0}, true
}

// hullCircle is the SAT hull-circle test. Normal points from the hull
// (conceptually A) to the circle (conceptually B); callers negate it
// when the actual pair order is reversed.
func hullCircle(hull HullWorld2D, circle CircleWorld2D) (rawContact, bool) {
	n := len(hull.Verts)
	if n == 0 {
		return rawContact{}, false
	}

	maxSep := fx.FX(-(1 << 30))
	edge := 0
	for i := 0; i < n; i++ {
		ni := hull.Normals[i]
		vi := hull.Verts[i]
		sep := fx.Sub(vDot(ni, vSub(circle.Center, vi)), circle.R)
		if sep > maxSep {
			maxSep = sep
			edge = i
		}
	}

	totalSkin := hull.Skin
	if maxSep > totalSkin {
		return rawContact{}, false
	}

	v0 := hull.Verts[edge]
	v1 := hull.Verts[(edge+1)%n]
	e := vSub(v1, v0)
	eLenSq := vDot(e, e)
	var t fx.FX
	if eLenSq != 0 {
		t = fx.Div(vDot(vSub(circle.Center, v0), e), eLenSq)
	}

	pen := fx.Sub(fx.Add(circle.R, totalSkin), maxSep)

	var normal, point Vec2
	var featureID int32
	if t >= 0 && t <= fx.One {
		normal = hull.Normals[edge]
		featureID = int32(edge)
		closest := vAdd(v0, vScale(e, t))
		point = vSub(closest, vScale(normal, fx.Div(pen, fx.From(2))))
	} else {
		var vertex Vec2
		vertexIdx := edge
		if t < 0 {
			vertex = v0
			vertexIdx = edge
		} else {
			vertex = v1
			vertexIdx = (edge + 1) % n
		}
		normal, _ = vNormalize(vSub(circle.Center, vertex))
		featureID = hullVertexFeature | int32(vertexIdx)
		point = vSub(vertex, vScale(normal, fx.Div(pen, fx.From(2))))
	}
	return rawContact{Normal: normal, Point: point, Penetration: pen, FeatureID: featureID}, true
}

// findMaxSeparation returns the largest edge separation of ref's edges
// against inc's vertices, and the edge achieving it.
func findMaxSeparation(ref, inc HullWorld2D) (fx.FX, int) {
	best := fx.FX(-(1 << 30))
	edge := 0
	for i, n := range ref.Normals {
		v := ref.Verts[i]
		support := supportVertex(inc, vNeg(n))
		sep := vDot(n, vSub(support, v))
		if sep > best {
			best = sep
			edge = i
		}
	}
	return best, edge
}

// supportVertex returns the vertex of h furthest in direction dir.
func supportVertex(h HullWorld2D, dir Vec2) Vec2 {
	best := fx.FX(-(1 << 30))
	var bestV Vec2
	for _, v := range h.Verts {
		d := vDot(v, dir)
		if d > best {
			best = d
			bestV = v
		}
	}
	return bestV
}

// hullHull implements 2D polygon-polygon SAT plus a two-point clip
// against the reference edge's side planes.
func hullHull(a, b HullWorld2D) []rawContact {
	if len(a.Verts) == 0 || len(b.Verts) == 0 {
		return nil
	}
	totalSkin := fx.Add(a.Skin, b.Skin)

	sepA, edgeA := findMaxSeparation(a, b)
	sepB, edgeB := findMaxSeparation(b, a)
	if sepA > totalSkin || sepB > totalSkin {
		return nil
	}

	flip := sepB > sepA
	var ref, incHull HullWorld2D
	var refEdge int
	if flip {
		ref, incHull, refEdge = b, a, edgeB
	} else {
		ref, incHull, refEdge = a, b, edgeA
	}

	refNormal := ref.Normals[refEdge]
	n := len(ref.Verts)
	v1 := ref.Verts[refEdge]
	v2 := ref.Verts[(refEdge+1)%n]

	incEdge := 0
	minDot := fx.FX(1 << 30)
	for i, in := range incHull.Normals {
		d := vDot(refNormal, in)
		if d < minDot {
			minDot = d
			incEdge = i
		}
	}
	m := len(incHull.Verts)
	i1 := incHull.Verts[incEdge]
	i2 := incHull.Verts[(incEdge+1)%m]

	tangent, _ := vNormalize(vSub(v2, v1))
	clipped, ok := clipSegment(i1, i2, vNeg(tangent), fx.Neg(vDot(tangent, v1)))
	if !ok {
		return nil
	}
	clipped, ok = clipSegment(clipped[0], clipped[1], tangent, vDot(tangent, v2))
	if !ok {
		return nil
	}

	var out []rawContact
	for i, p := range clipped {
		sep := vDot(refNormal, vSub(p, v1))
		if sep > totalSkin {
			continue
		}
		pen := fx.Sub(totalSkin, sep)
		normal := refNormal
		if flip {
			normal = vNeg(normal)
		}
		point := vSub(p, vScale(refNormal, fx.Div(pen, fx.From(2))))
		// Both clip points come from the same reference edge; fold the
		// clip-point index into the feature id so the two points keep
		// separate warm-start cache entries.
		out = append(out, rawContact{Normal: normal, Point: point, Penetration: pen, FeatureID: int32(refEdge<<1 | i)})
	}
	return out
}

// clipSegment clips the segment (v0,v1) to the half-plane
// dot(normal, p) <= offset, returning the (up to two) surviving points.
// ok is false when both points are clipped away.
func clipSegment(v0, v1 Vec2, normal Vec2, offset fx.FX) ([2]Vec2, bool) {
	d0 := fx.Sub(vDot(normal, v0), offset)
	d1 := fx.Sub(vDot(normal, v1), offset)

	var out [2]Vec2
	count := 0
	if d0 <= 0 {
		out[count] = v0
		count++
	}
	if d1 <= 0 {
		out[count] = v1
		count++
	}
	if (d0 < 0 && d1 > 0) || (d0 > 0 && d1 < 0) {
		t := fx.Div(d0, fx.Sub(d0, d1))
		out[count] = vAdd(v0, vScale(vSub(v1, v0), t))
		count++
	}
	if count < 2 {
		if count == 1 {
			out[1] = out[0]
		} else {
			return out, false
		}
	}
	return out, true
}
