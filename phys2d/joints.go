// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// joints.go implements joint builders and Gauss-Seidel joint solvers:
// distance (1D), revolute (2D point), and prismatic (perpendicular
// equality + axial limit/motor). All three share one builder pattern —
// precompute arms/effective-mass/bias once per frame into a row, then
// iterate the row many times.

import (
	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// JointBrokenEvent is raised the tick a joint's accumulated impulse
// first crosses its BreakImpulse threshold.
type JointBrokenEvent struct {
	Joint Entity
	A, B  Entity
}

// JointEvents2D is the per-frame break-event list: cleared at tick
// start, appended to during the tick, read by external systems between
// ticks.
type JointEvents2D struct {
	Events []JointBrokenEvent
}

// RunClearJointEvents resets JointEvents2D at the start of the tick.
func RunClearJointEvents(w *World) {
	ecs.SetResource(w, JointEvents2D{})
}

// distanceRow is one frame's precomputed distance-joint constraint.
type distanceRow struct {
	entity       Entity
	a, b         Entity
	bodyA, bodyB *Body2D
	joint        *JointDistance2D
	rA, rB       Vec2
	axis         Vec2
	mass         fx.FX
	bias         fx.FX
	gammaK       fx.FX
}

// revoluteRow is one frame's precomputed revolute-joint constraint.
type revoluteRow struct {
	entity       Entity
	a, b         Entity
	bodyA, bodyB *Body2D
	joint        *RevoluteJoint2D
	rA, rB       Vec2
	bias         Vec2
	gammaK       fx.FX
	// entries of the symmetric 2x2 effective mass matrix K (gamma on the
	// diagonal) and 1/det(K); the solver applies invDet*[k11 -k01; -k01 k00].
	k00, k01, k11 fx.FX
	invDet        fx.FX
}

// prismaticRow is one frame's precomputed prismatic-joint constraint.
type prismaticRow struct {
	entity             Entity
	a, b               Entity
	bodyA, bodyB       *Body2D
	joint              *PrismaticJoint2D
	rA, rB             Vec2
	axis, perp         Vec2
	perpMass, axisMass fx.FX
	perpBias, gammaK   fx.FX
	tr                 fx.FX
	lowerActive, upperActive bool
}

// JointBatch2D is the distance-joint batch resource.
type JointBatch2D struct{ Rows []distanceRow }

// RevoluteBatch2D is the revolute-joint batch resource.
type RevoluteBatch2D struct{ Rows []revoluteRow }

// PrismaticBatch2D is the prismatic-joint batch resource.
type PrismaticBatch2D struct{ Rows []prismaticRow }

// anchorWorld returns the world-space position of a local anchor on a
// body with the given position/angle.
func anchorWorld(b *Body2D, local Vec2) Vec2 {
	cosA, sinA := fx.Cos(b.Angle), fx.Sin(b.Angle)
	wx := fx.Add(fx.Sub(fx.Mul(local.X, cosA), fx.Mul(local.Y, sinA)), b.PX)
	wy := fx.Add(fx.Add(fx.Mul(local.X, sinA), fx.Mul(local.Y, cosA)), b.PY)
	return Vec2{X: wx, Y: wy}
}

// jointArms returns (anchorWorldA, anchorWorldB, rA, rB) where rA/rB are
// the arms from each body's center to its own anchor.
func jointArms(bA, bB *Body2D, localA, localB Vec2) (pA, pB, rA, rB Vec2) {
	pA = anchorWorld(bA, localA)
	pB = anchorWorld(bB, localB)
	rA = vSub(pA, Vec2{X: bA.PX, Y: bA.PY})
	rB = vSub(pB, Vec2{X: bB.PX, Y: bB.PY})
	return
}

// wakeIfNeeded skips the row if both bodies sleep, otherwise wakes
// whichever single body is sleeping. Returns false if the row must be
// skipped entirely (an endpoint entity disposed, both static, or both
// asleep).
func wakeIfNeeded(w *World, a, b Entity, bA, bB *Body2D) bool {
	if !w.Entities.Valid(a) || !w.Entities.Valid(b) {
		return false
	}
	if bA.IsStatic() && bB.IsStatic() {
		return false
	}
	sleeps := ecs.StoreOf[Sleep2D](w)
	sa, hasA := sleeps.Get(a)
	sb, hasB := sleeps.Get(b)
	aSleeping := hasA && sa.Sleeping && !bA.IsStatic()
	bSleeping := hasB && sb.Sleeping && !bB.IsStatic()
	if aSleeping && bSleeping {
		return false
	}
	if aSleeping {
		wakeBody(sa, bA)
	}
	if bSleeping {
		wakeBody(sb, bB)
	}
	return true
}

func wakeBody(s *Sleep2D, b *Body2D) {
	s.Sleeping = false
	s.Timer = 0
	b.Awake = true
}

// jointCandidate is a joint entity paired with the deterministic sort
// key (pairKey, then jointEntityID) used to order the batch before any
// solving happens.
type jointCandidate struct {
	entity Entity
	pk     string
}

func sortJointCandidates(c []jointCandidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0; j-- {
			a, b := c[j-1], c[j]
			if a.pk < b.pk || (a.pk == b.pk && a.entity <= b.entity) {
				break
			}
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

// RunBuildJoints precomputes this frame's distance/revolute/prismatic
// constraint rows, sorted by (pairKey, jointEntityID). Broken joints and
// joints referencing a destroyed entity are dropped.
func RunBuildJoints(w *World) {
	dt := w.FixedStep()
	bodies := ecs.StoreOf[Body2D](w)

	buildDistance(w, bodies, dt)
	buildRevolute(w, bodies, dt)
	buildPrismatic(w, bodies, dt)
}

func buildDistance(w *World, bodies *ecs.Store[Body2D], dt fx.FX) {
	store := ecs.StoreOf[JointDistance2D](w)
	ends := ecs.StoreOf[JointEndpoints](w)

	var cands []jointCandidate
	store.Each(func(e Entity, j *JointDistance2D) {
		if j.Broken {
			return
		}
		ep, ok := ends.Get(e)
		if !ok {
			return
		}
		if _, ok := bodies.Get(ep.A); !ok {
			return
		}
		if _, ok := bodies.Get(ep.B); !ok {
			return
		}
		cands = append(cands, jointCandidate{entity: e, pk: MakePairKey(w, ep.A, ep.B).Key})
	})
	sortJointCandidates(cands)

	var rows []distanceRow
	for _, c := range cands {
		j, _ := store.Get(c.entity)
		ep, _ := ends.Get(c.entity)
		bA, _ := bodies.Get(ep.A)
		bB, _ := bodies.Get(ep.B)
		if !wakeIfNeeded(w, ep.A, ep.B, bA, bB) {
			continue
		}
		pA, pB, rA, rB := jointArms(bA, bB, j.LocalAnchorA, j.LocalAnchorB)
		d := vSub(pB, pA)
		axis, dist := vNormalize(d)
		c1 := fx.Sub(dist, j.Rest)

		rAxnN := vCross(rA, axis)
		rBxnN := vCross(rB, axis)
		k := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
			fx.Add(fx.Mul(fx.Mul(rAxnN, rAxnN), bA.InvI), fx.Mul(fx.Mul(rBxnN, rBxnN), bB.InvI)))
		gammaK := fx.Zero
		if j.Gamma != 0 {
			gammaK = fx.Div(j.Gamma, dt)
		}
		k = fx.Add(k, gammaK)
		mass := fx.Zero
		if k != 0 {
			mass = fx.Div(fx.One, k)
		}

		row := distanceRow{
			entity: c.entity, a: ep.A, b: ep.B,
			bodyA: bA, bodyB: bB, joint: j,
			rA: rA, rB: rB, axis: axis,
			mass: mass, bias: fx.Div(fx.Mul(j.Beta, c1), dt), gammaK: gammaK,
		}
		applyImpulse(bA, bB, rA, rB, axis, j.Jn)
		rows = append(rows, row)
	}
	ecs.SetResource(w, JointBatch2D{Rows: rows})
}

func buildRevolute(w *World, bodies *ecs.Store[Body2D], dt fx.FX) {
	store := ecs.StoreOf[RevoluteJoint2D](w)
	ends := ecs.StoreOf[JointEndpoints](w)

	var cands []jointCandidate
	store.Each(func(e Entity, j *RevoluteJoint2D) {
		if j.Broken {
			return
		}
		ep, ok := ends.Get(e)
		if !ok {
			return
		}
		if _, ok := bodies.Get(ep.A); !ok {
			return
		}
		if _, ok := bodies.Get(ep.B); !ok {
			return
		}
		cands = append(cands, jointCandidate{entity: e, pk: MakePairKey(w, ep.A, ep.B).Key})
	})
	sortJointCandidates(cands)

	var rows []revoluteRow
	for _, c := range cands {
		j, _ := store.Get(c.entity)
		ep, _ := ends.Get(c.entity)
		bA, _ := bodies.Get(ep.A)
		bB, _ := bodies.Get(ep.B)
		if !wakeIfNeeded(w, ep.A, ep.B, bA, bB) {
			continue
		}
		pA, pB, rA, rB := jointArms(bA, bB, j.LocalAnchorA, j.LocalAnchorB)
		c1 := vSub(pB, pA)

		gammaK := fx.Zero
		if j.Gamma != 0 {
			gammaK = fx.Div(j.Gamma, dt)
		}
		k00 := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
			fx.Add(fx.Mul(fx.Mul(rA.Y, rA.Y), bA.InvI), fx.Mul(fx.Mul(rB.Y, rB.Y), bB.InvI)))
		k11 := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
			fx.Add(fx.Mul(fx.Mul(rA.X, rA.X), bA.InvI), fx.Mul(fx.Mul(rB.X, rB.X), bB.InvI)))
		k01 := fx.Neg(fx.Add(fx.Mul(fx.Mul(rA.X, rA.Y), bA.InvI), fx.Mul(fx.Mul(rB.X, rB.Y), bB.InvI)))
		k00 = fx.Add(k00, gammaK)
		k11 = fx.Add(k11, gammaK)

		det := fx.Sub(fx.Mul(k00, k11), fx.Mul(k01, k01))
		invDet := fx.Zero
		if det != 0 {
			invDet = fx.Div(fx.One, det)
		}

		row := revoluteRow{
			entity: c.entity, a: ep.A, b: ep.B,
			bodyA: bA, bodyB: bB, joint: j,
			rA: rA, rB: rB,
			bias:   vScale(c1, fx.Div(j.Beta, dt)),
			gammaK: gammaK,
			k00: k00, k01: k01, k11: k11, invDet: invDet,
		}
		applyImpulse(bA, bB, rA, rB, Vec2{X: fx.One, Y: 0}, j.Jx)
		applyImpulse(bA, bB, rA, rB, Vec2{X: 0, Y: fx.One}, j.Jy)
		rows = append(rows, row)
	}
	ecs.SetResource(w, RevoluteBatch2D{Rows: rows})
}

func buildPrismatic(w *World, bodies *ecs.Store[Body2D], dt fx.FX) {
	store := ecs.StoreOf[PrismaticJoint2D](w)
	ends := ecs.StoreOf[JointEndpoints](w)

	var cands []jointCandidate
	store.Each(func(e Entity, j *PrismaticJoint2D) {
		if j.Broken {
			return
		}
		ep, ok := ends.Get(e)
		if !ok {
			return
		}
		if _, ok := bodies.Get(ep.A); !ok {
			return
		}
		if _, ok := bodies.Get(ep.B); !ok {
			return
		}
		cands = append(cands, jointCandidate{entity: e, pk: MakePairKey(w, ep.A, ep.B).Key})
	})
	sortJointCandidates(cands)

	var rows []prismaticRow
	for _, c := range cands {
		j, _ := store.Get(c.entity)
		ep, _ := ends.Get(c.entity)
		bA, _ := bodies.Get(ep.A)
		bB, _ := bodies.Get(ep.B)
		if !wakeIfNeeded(w, ep.A, ep.B, bA, bB) {
			continue
		}
		pA, pB, rA, rB := jointArms(bA, bB, j.LocalAnchorA, j.LocalAnchorB)
		cosA, sinA := fx.Cos(bA.Angle), fx.Sin(bA.Angle)
		axis := Vec2{
			X: fx.Sub(fx.Mul(j.LocalAxisA.X, cosA), fx.Mul(j.LocalAxisA.Y, sinA)),
			Y: fx.Add(fx.Mul(j.LocalAxisA.X, sinA), fx.Mul(j.LocalAxisA.Y, cosA)),
		}
		axis, _ = vNormalize(axis)
		perp := vPerp(axis)

		d := vSub(pB, pA)
		cPerp := vDot(perp, d)
		tr := fx.Neg(vDot(axis, d))

		gammaK := fx.Zero
		if j.Gamma != 0 {
			gammaK = fx.Div(j.Gamma, dt)
		}

		rAxnP := vCross(rA, perp)
		rBxnP := vCross(rB, perp)
		kPerp := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
			fx.Add(fx.Mul(fx.Mul(rAxnP, rAxnP), bA.InvI), fx.Mul(fx.Mul(rBxnP, rBxnP), bB.InvI)))
		kPerp = fx.Add(kPerp, gammaK)
		perpMass := fx.Zero
		if kPerp != 0 {
			perpMass = fx.Div(fx.One, kPerp)
		}

		rAxnA := vCross(rA, axis)
		rBxnA := vCross(rB, axis)
		kAxis := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
			fx.Add(fx.Mul(fx.Mul(rAxnA, rAxnA), bA.InvI), fx.Mul(fx.Mul(rBxnA, rBxnA), bB.InvI)))
		axisMass := fx.Zero
		if kAxis != 0 {
			axisMass = fx.Div(fx.One, kAxis)
		}

		lowerActive := j.EnableLimit && tr < fx.Sub(j.Lower, PosSlop)
		upperActive := j.EnableLimit && tr > fx.Add(j.Upper, PosSlop)

		row := prismaticRow{
			entity: c.entity, a: ep.A, b: ep.B,
			bodyA: bA, bodyB: bB, joint: j,
			rA: rA, rB: rB, axis: axis, perp: perp,
			perpMass: perpMass, axisMass: axisMass,
			perpBias: fx.Div(fx.Mul(j.Beta, cPerp), dt), gammaK: gammaK,
			tr: tr, lowerActive: lowerActive, upperActive: upperActive,
		}
		applyImpulse(bA, bB, rA, rB, perp, j.JPerp)
		applyImpulse(bA, bB, rA, rB, axis, j.JAxis)
		rows = append(rows, row)
	}
	ecs.SetResource(w, PrismaticBatch2D{Rows: rows})
}

// RunSolveJoints runs the GS iterations for every built joint batch and
// raises break events.
func RunSolveJoints(w *World) {
	solveDistanceRows(w)
	solveRevoluteRows(w)
	solvePrismaticRows(w)
}

func solveDistanceRows(w *World) {
	batch := ecs.Resource[JointBatch2D](w)
	events := ecs.Resource[JointEvents2D](w)
	for i := range batch.Rows {
		row := &batch.Rows[i]
		for iter := 0; iter < IterJ; iter++ {
			vRel := relativeVelocity(row.bodyA, row.bodyB, row.rA, row.rB)
			vn := vDot(vRel, row.axis)
			lambda := fx.Mul(row.mass, fx.Neg(fx.Add(fx.Add(vn, row.bias), fx.Mul(row.gammaK, row.joint.Jn))))
			row.joint.Jn = fx.Add(row.joint.Jn, lambda)
			applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.axis, lambda)
		}
		if row.joint.BreakImpulse > 0 && fx.Abs(row.joint.Jn) > row.joint.BreakImpulse {
			row.joint.Broken = true
			row.joint.Jn = 0
			events.Events = append(events.Events, JointBrokenEvent{Joint: row.entity, A: row.a, B: row.b})
		}
	}
}

func solveRevoluteRows(w *World) {
	batch := ecs.Resource[RevoluteBatch2D](w)
	events := ecs.Resource[JointEvents2D](w)
	for i := range batch.Rows {
		row := &batch.Rows[i]
		for iter := 0; iter < IterR; iter++ {
			vRel := relativeVelocity(row.bodyA, row.bodyB, row.rA, row.rB)
			rhsX := fx.Neg(fx.Add(fx.Add(vRel.X, row.bias.X), fx.Mul(row.gammaK, row.joint.Jx)))
			rhsY := fx.Neg(fx.Add(fx.Add(vRel.Y, row.bias.Y), fx.Mul(row.gammaK, row.joint.Jy)))
			// dJ = K^-1 * rhs, K = [[k00,k01],[k01,k11]].
			dx := fx.Mul(row.invDet, fx.Sub(fx.Mul(row.k11, rhsX), fx.Mul(row.k01, rhsY)))
			dy := fx.Mul(row.invDet, fx.Sub(fx.Mul(row.k00, rhsY), fx.Mul(row.k01, rhsX)))
			row.joint.Jx = fx.Add(row.joint.Jx, dx)
			row.joint.Jy = fx.Add(row.joint.Jy, dy)
			applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, Vec2{X: fx.One, Y: 0}, dx)
			applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, Vec2{X: 0, Y: fx.One}, dy)
		}
		if row.joint.BreakImpulse > 0 && fx.LenApprox(row.joint.Jx, row.joint.Jy) > row.joint.BreakImpulse {
			row.joint.Broken = true
			row.joint.Jx, row.joint.Jy = 0, 0
			events.Events = append(events.Events, JointBrokenEvent{Joint: row.entity, A: row.a, B: row.b})
		}
	}
}

func solvePrismaticRows(w *World) {
	batch := ecs.Resource[PrismaticBatch2D](w)
	events := ecs.Resource[JointEvents2D](w)
	dt := w.FixedStep()
	for i := range batch.Rows {
		row := &batch.Rows[i]
		for iter := 0; iter < IterP; iter++ {
			vRel := relativeVelocity(row.bodyA, row.bodyB, row.rA, row.rB)
			vPerp := vDot(vRel, row.perp)
			lambdaPerp := fx.Mul(row.perpMass, fx.Neg(fx.Add(fx.Add(vPerp, row.perpBias), fx.Mul(row.gammaK, row.joint.JPerp))))
			row.joint.JPerp = fx.Add(row.joint.JPerp, lambdaPerp)
			applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.perp, lambdaPerp)

			if !row.joint.EnableLimit && !row.joint.EnableMotor {
				continue
			}
			vAxis := vDot(relativeVelocity(row.bodyA, row.bodyB, row.rA, row.rB), row.axis)
			target := fx.Zero
			if row.joint.EnableMotor {
				target = row.joint.MotorSpeed
			}
			// tr runs against the axis (tr = -axis.d), so vAxis moves it the
			// other way: the bias is negated to push c back toward zero.
			bias := fx.Zero
			switch {
			case row.lowerActive:
				c := fx.Sub(row.tr, row.joint.Lower)
				bias = fx.Neg(fx.Div(fx.Mul(Baumgarte, fx.Min(fx.Zero, c)), dt))
			case row.upperActive:
				c := fx.Sub(row.tr, row.joint.Upper)
				bias = fx.Neg(fx.Div(fx.Mul(Baumgarte, fx.Max(fx.Zero, c)), dt))
			}
			lambdaAxis := fx.Mul(row.axisMass, fx.Sub(target, fx.Add(vAxis, bias)))
			jNew := fx.Add(row.joint.JAxis, lambdaAxis)
			switch {
			case row.lowerActive:
				jNew = fx.Min(jNew, fx.Zero)
			case row.upperActive:
				jNew = fx.Max(jNew, fx.Zero)
			case row.joint.EnableMotor:
				jNew = fx.Clamp(jNew, fx.Neg(row.joint.MaxMotorImpulse), row.joint.MaxMotorImpulse)
			default:
				jNew = fx.Zero
			}
			dj := fx.Sub(jNew, row.joint.JAxis)
			row.joint.JAxis = jNew
			applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.axis, dj)
		}
		total := fx.Add(fx.Abs(row.joint.JPerp), fx.Abs(row.joint.JAxis))
		if row.joint.BreakImpulse > 0 && total > row.joint.BreakImpulse {
			row.joint.Broken = true
			row.joint.JPerp, row.joint.JAxis = 0, 0
			events.Events = append(events.Events, JointBrokenEvent{Joint: row.entity, A: row.a, B: row.b})
		}
	}
}
