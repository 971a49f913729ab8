// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// solver.go implements the Gauss-Seidel sequential-impulse contact
// solver: warm-start, normal iterations with a Baumgarte position bias
// and restitution bounce, Coulomb friction iterations clamped to the
// normal impulse, and a separate split-impulse position correction pass
// that never touches velocity.

import (
	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// contactRow is the per-contact precomputed solver state (arms,
// effective masses, tangent), rebuilt fresh every tick from the current
// contact list and body state.
type contactRow struct {
	contact *Contact2D
	bodyA   *Body2D
	bodyB   *Body2D
	rA, rB  Vec2
	normal  Vec2
	tangent Vec2
	mN, mT  fx.FX
	friction, restitution fx.FX
}

// RunSolveContacts runs the Gauss-Seidel normal and friction iterations
// over Contacts2D.List. Expects RunWarmStart to have already seeded
// Jn/Jt and applied nothing yet — the warm-start impulse application
// happens here, immediately before the iteration loops.
func RunSolveContacts(w *World) {
	dt := w.FixedStep()
	bodies := ecs.StoreOf[Body2D](w)
	contacts := ecs.Resource[Contacts2D](w)

	rows := make([]contactRow, 0, len(contacts.List))
	for i := range contacts.List {
		c := &contacts.List[i]
		bA, okA := bodies.Get(c.A)
		bB, okB := bodies.Get(c.B)
		if !okA || !okB {
			continue // destroyed entity: drop the row.
		}
		if bA.IsStatic() && bB.IsStatic() {
			continue // fully static pairs never solve.
		}
		row := buildContactRow(c, bA, bB)
		applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.normal, c.Jn)
		applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.tangent, c.Jt)
		rows = append(rows, row)
	}

	for iter := 0; iter < IterN; iter++ {
		for i := range rows {
			solveNormal(&rows[i], dt)
		}
	}
	for iter := 0; iter < IterT; iter++ {
		for i := range rows {
			solveFriction(&rows[i])
		}
	}
}

func buildContactRow(c *Contact2D, bA, bB *Body2D) contactRow {
	rA := Vec2{X: fx.Sub(c.Point.X, bA.PX), Y: fx.Sub(c.Point.Y, bA.PY)}
	rB := Vec2{X: fx.Sub(c.Point.X, bB.PX), Y: fx.Sub(c.Point.Y, bB.PY)}
	n := c.Normal
	t := vPerp(n)

	rAxnN := vCross(rA, n)
	rBxnN := vCross(rB, n)
	kN := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
		fx.Add(fx.Mul(fx.Mul(rAxnN, rAxnN), bA.InvI), fx.Mul(fx.Mul(rBxnN, rBxnN), bB.InvI)))
	mN := fx.Zero
	if kN != 0 {
		mN = fx.Div(fx.One, kN)
	}

	rAxnT := vCross(rA, t)
	rBxnT := vCross(rB, t)
	kT := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
		fx.Add(fx.Mul(fx.Mul(rAxnT, rAxnT), bA.InvI), fx.Mul(fx.Mul(rBxnT, rBxnT), bB.InvI)))
	mT := fx.Zero
	if kT != 0 {
		mT = fx.Div(fx.One, kT)
	}

	restitution := fx.Max(bA.Restitution, bB.Restitution)
	if c.Speculative {
		restitution = fx.Zero // speculative contacts never bounce.
	}

	return contactRow{
		contact:     c,
		bodyA:       bA,
		bodyB:       bB,
		rA:          rA,
		rB:          rB,
		normal:      n,
		tangent:     t,
		mN:          mN,
		mT:          mT,
		friction:    fx.Div(fx.Add(bA.Friction, bB.Friction), fx.From(2)),
		restitution: restitution,
	}
}

// relativeVelocity returns the velocity of B's contact point minus A's,
// including each body's angular contribution (w x r, 2D cross product).
func relativeVelocity(bA, bB *Body2D, rA, rB Vec2) Vec2 {
	vA := Vec2{
		X: fx.Sub(bA.VX, fx.Mul(bA.W, rA.Y)),
		Y: fx.Add(bA.VY, fx.Mul(bA.W, rA.X)),
	}
	vB := Vec2{
		X: fx.Sub(bB.VX, fx.Mul(bB.W, rB.Y)),
		Y: fx.Add(bB.VY, fx.Mul(bB.W, rB.X)),
	}
	return vSub(vB, vA)
}

func solveNormal(row *contactRow, dt fx.FX) {
	c := row.contact
	vRel := relativeVelocity(row.bodyA, row.bodyB, row.rA, row.rB)
	vn := vDot(vRel, row.normal)

	bias := fx.Div(fx.Mul(Baumgarte, fx.Max(fx.Zero, c.Penetration)), dt)
	bounce := fx.Zero
	negVn := fx.Neg(vn)
	if negVn > RestitThresh {
		bounce = fx.Mul(row.restitution, negVn)
	}

	lambda := fx.Mul(row.mN, fx.Neg(fx.Add(fx.Add(vn, bias), bounce)))
	jnNew := fx.Max(fx.Zero, fx.Add(c.Jn, lambda))
	dj := fx.Sub(jnNew, c.Jn)
	c.Jn = jnNew
	applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.normal, dj)
}

func solveFriction(row *contactRow) {
	c := row.contact
	vRel := relativeVelocity(row.bodyA, row.bodyB, row.rA, row.rB)
	vt := vDot(vRel, row.tangent)

	lambda := fx.Mul(row.mT, fx.Neg(vt))
	jtTarget := fx.Add(c.Jt, lambda)
	maxJt := fx.Mul(row.friction, c.Jn)
	jtNew := fx.Clamp(jtTarget, fx.Neg(maxJt), maxJt)
	dj := fx.Sub(jtNew, c.Jt)
	c.Jt = jtNew
	applyImpulse(row.bodyA, row.bodyB, row.rA, row.rB, row.tangent, dj)
}

// applyImpulse applies +/-dj along axis to A and B at their respective
// contact arms: subtract from A, add to B, matching the normal's A->B
// convention.
func applyImpulse(bA, bB *Body2D, rA, rB Vec2, axis Vec2, dj fx.FX) {
	if dj == 0 {
		return
	}
	px, py := fx.Mul(axis.X, dj), fx.Mul(axis.Y, dj)
	if !bA.IsStatic() {
		bA.VX = fx.Sub(bA.VX, fx.Mul(px, bA.InvMass))
		bA.VY = fx.Sub(bA.VY, fx.Mul(py, bA.InvMass))
		bA.W = fx.Sub(bA.W, fx.Mul(vCross(rA, Vec2{X: px, Y: py}), bA.InvI))
	}
	if !bB.IsStatic() {
		bB.VX = fx.Add(bB.VX, fx.Mul(px, bB.InvMass))
		bB.VY = fx.Add(bB.VY, fx.Mul(py, bB.InvMass))
		bB.W = fx.Add(bB.W, fx.Mul(vCross(rB, Vec2{X: px, Y: py}), bB.InvI))
	}
}

// RunPositionCorrection is the split-impulse position pass: it
// translates bodies directly, never touching velocity, so restitution/
// friction already solved this frame is not perturbed. Contacts whose
// penetration is within PosSlop are skipped.
func RunPositionCorrection(w *World) {
	bodies := ecs.StoreOf[Body2D](w)
	contacts := ecs.Resource[Contacts2D](w)

	pens := make([]fx.FX, len(contacts.List))
	for i := range contacts.List {
		pens[i] = contacts.List[i].Penetration
	}

	for iter := 0; iter < PosIters; iter++ {
		for i := range contacts.List {
			c := &contacts.List[i]
			pen := fx.Sub(pens[i], PosSlop)
			if pen <= 0 {
				continue
			}
			bA, okA := bodies.Get(c.A)
			bB, okB := bodies.Get(c.B)
			if !okA || !okB || (bA.IsStatic() && bB.IsStatic()) {
				continue
			}
			n := c.Normal
			// Position-level effective mass, same form as the velocity
			// solver's mN: rotational arm terms included.
			rA := Vec2{X: fx.Sub(c.Point.X, bA.PX), Y: fx.Sub(c.Point.Y, bA.PY)}
			rB := Vec2{X: fx.Sub(c.Point.X, bB.PX), Y: fx.Sub(c.Point.Y, bB.PY)}
			rAxn := vCross(rA, n)
			rBxn := vCross(rB, n)
			k := fx.Add(fx.Add(bA.InvMass, bB.InvMass),
				fx.Add(fx.Mul(fx.Mul(rAxn, rAxn), bA.InvI), fx.Mul(fx.Mul(rBxn, rBxn), bB.InvI)))
			if k == 0 {
				continue
			}
			lambda := fx.Div(fx.Mul(PosPercent, pen), k)
			if !bA.IsStatic() {
				bA.PX = fx.Sub(bA.PX, fx.Mul(fx.Mul(n.X, lambda), bA.InvMass))
				bA.PY = fx.Sub(bA.PY, fx.Mul(fx.Mul(n.Y, lambda), bA.InvMass))
			}
			if !bB.IsStatic() {
				bB.PX = fx.Add(bB.PX, fx.Mul(fx.Mul(n.X, lambda), bB.InvMass))
				bB.PY = fx.Add(bB.PY, fx.Mul(fx.Mul(n.Y, lambda), bB.InvMass))
			}
			pens[i] = fx.Sub(pens[i], fx.Mul(lambda, k))
		}
	}
}
