// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// sleep.go implements idle detection, wake-on-contact, and wake-on-
// impulse. Bodies are grouped into union-find simulation islands each
// tick, and both sleep and wake decisions are made per island: waking
// one body wakes every body reachable through this frame's live
// contacts and unbroken joints, and a resting group only sleeps as a
// unit.

import (
	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// RunUpdateSleep runs the per-body timer/threshold pass, then decides
// sleep per island rather than per body: an island of contact/joint-
// connected dynamic bodies sleeps only when every member's timer has
// crossed TimeToSleep. A lone body degenerates to the per-body rule.
// Deciding per island is what lets a resting stack sleep at all — its
// members are permanently in contact, so any rule that wakes a sleeper
// merely for touching a neighbor would wake each body the same tick it
// dozed off.
func RunUpdateSleep(w *World) {
	cfg := ecs.Resource[PhysicsSleepConfig](w)
	dt := w.FixedStep()
	bodies := ecs.StoreOf[Body2D](w)
	sleeps := ecs.StoreOf[Sleep2D](w)

	bodies.Each(func(e Entity, b *Body2D) {
		s, ok := sleeps.Get(e)
		if !ok {
			sleeps.Set(e, Sleep2D{})
			s, _ = sleeps.Get(e)
		}
		if b.IsStatic() {
			s.Timer = 0
			s.Sleeping = false
			b.Awake = true
			return
		}
		linSq := fx.Add(fx.Mul(b.VX, b.VX), fx.Mul(b.VY, b.VY))
		angAbs := fx.Abs(b.W)
		below := linSq < fx.Mul(cfg.LinThresh, cfg.LinThresh) && angAbs < cfg.AngThresh
		if below && !s.KeepAwake {
			s.Timer = fx.Add(s.Timer, fx.Mul(dt, cfg.WakeBias))
		} else {
			s.Timer = 0
			b.Awake = true
			s.Sleeping = false
		}
	})

	wakeOnContact(w, bodies, sleeps)
	applyIslandSleep(w, bodies, sleeps, cfg)
}

// wakeOnContact wakes a sleeping body touched by an awake dynamic body
// this frame. Contacts with other sleepers or with statics don't count —
// a settled stack touches its neighbors and the ground forever, and
// those contacts must not keep it awake.
func wakeOnContact(w *World, bodies *ecs.Store[Body2D], sleeps *ecs.Store[Sleep2D]) {
	contacts := ecs.Resource[Contacts2D](w)
	for i := range contacts.List {
		c := &contacts.List[i]
		bA, okA := bodies.Get(c.A)
		bB, okB := bodies.Get(c.B)
		if !okA || !okB {
			continue
		}
		aAwake := !bA.IsStatic() && bA.Awake
		bAwake := !bB.IsStatic() && bB.Awake
		if sa, ok := sleeps.Get(c.A); ok && sa.Sleeping && !bA.IsStatic() && bAwake {
			wakeBody(sa, bA)
		}
		if sb, ok := sleeps.Get(c.B); ok && sb.Sleeping && !bB.IsStatic() && aAwake {
			wakeBody(sb, bB)
		}
	}
}

// applyIslandSleep groups dynamic bodies into simulation islands via
// this frame's contacts and unbroken joints, takes the minimum sleep
// timer per island, and puts the whole island to sleep when that minimum
// crosses TimeToSleep — or wakes any still-sleeping member when it does
// not.
// One moving member (timer 0) therefore keeps, or makes, its entire
// island awake within the same tick.
func applyIslandSleep(w *World, bodies *ecs.Store[Body2D], sleeps *ecs.Store[Sleep2D], cfg *PhysicsSleepConfig) {
	parent := buildIslands(w, bodies)

	minTimer := map[Entity]fx.FX{}
	for _, e := range bodies.Entities() {
		if _, ok := parent[e]; !ok {
			continue
		}
		s, ok := sleeps.Get(e)
		if !ok {
			continue
		}
		root := ufFind(parent, e)
		if cur, ok := minTimer[root]; !ok || s.Timer < cur {
			minTimer[root] = s.Timer
		}
	}

	for _, e := range bodies.Entities() {
		if _, ok := parent[e]; !ok {
			continue
		}
		s, ok := sleeps.Get(e)
		if !ok {
			continue
		}
		b, _ := bodies.Get(e)
		if minTimer[ufFind(parent, e)] >= cfg.TimeToSleep {
			s.Sleeping = true
			b.Awake = false
			b.VX, b.VY, b.W = 0, 0, 0
		} else if s.Sleeping {
			wakeBody(s, b)
		}
	}
}

// WakeOnImpulse is the wake-on-impulse hook: any system that applies an
// impulse larger than ImpulseWake to a body wakes it, and the wake
// spreads to the body's island. The decision stays deterministic because
// callers reach it through the same pair-keyed, sorted contact/joint
// order every other per-frame decision uses.
func WakeOnImpulse(w *World, e Entity, impulse fx.FX) {
	cfg := ecs.Resource[PhysicsSleepConfig](w)
	if fx.Abs(impulse) <= cfg.ImpulseWake {
		return
	}
	bodies := ecs.StoreOf[Body2D](w)
	b, ok := bodies.Get(e)
	if !ok || b.IsStatic() {
		return
	}
	sleeps := ecs.StoreOf[Sleep2D](w)
	s, ok := sleeps.Get(e)
	if !ok || !s.Sleeping {
		return
	}
	wakeBody(s, b)
	propagateIslandWake(w, bodies, sleeps)
}

// ufFind and ufUnion are a path-compression-free union-find over
// entities.
func ufFind(parent map[Entity]Entity, x Entity) Entity {
	p, ok := parent[x]
	if !ok {
		return x
	}
	if p == x {
		return x
	}
	return ufFind(parent, p)
}

func ufUnion(parent map[Entity]Entity, x, y Entity) {
	rx, ry := ufFind(parent, x), ufFind(parent, y)
	if rx != ry {
		parent[ry] = rx
	}
}

// buildIslands groups dynamic bodies into simulation islands via this
// frame's contacts and unbroken joints, returning the union-find parent
// map. Static bodies never join an island, so two stacks sharing a
// static floor stay independent.
func buildIslands(w *World, bodies *ecs.Store[Body2D]) map[Entity]Entity {
	parent := map[Entity]Entity{}
	bodies.Each(func(e Entity, b *Body2D) {
		if !b.IsStatic() {
			parent[e] = e
		}
	})

	union := func(a, b Entity) {
		bA, okA := bodies.Get(a)
		bB, okB := bodies.Get(b)
		if !okA || !okB || bA.IsStatic() || bB.IsStatic() {
			return
		}
		ufUnion(parent, a, b)
	}

	contacts := ecs.Resource[Contacts2D](w)
	for i := range contacts.List {
		union(contacts.List[i].A, contacts.List[i].B)
	}
	unionJointEndpoints[JointDistance2D](w, union)
	unionJointEndpoints[RevoluteJoint2D](w, union)
	unionJointEndpoints[PrismaticJoint2D](w, union)
	return parent
}

// propagateIslandWake wakes every sleeping body in any island that
// contains at least one awake body. Used by WakeOnImpulse, which wakes a
// body mid-tick and needs the wake to reach the rest of the island before
// the next sleep pass.
func propagateIslandWake(w *World, bodies *ecs.Store[Body2D], sleeps *ecs.Store[Sleep2D]) {
	parent := buildIslands(w, bodies)

	islandAwake := map[Entity]bool{}
	for e := range parent {
		s, ok := sleeps.Get(e)
		if ok && !s.Sleeping {
			islandAwake[ufFind(parent, e)] = true
		}
	}
	for e := range parent {
		root := ufFind(parent, e)
		if !islandAwake[root] {
			continue
		}
		if s, ok := sleeps.Get(e); ok && s.Sleeping {
			b, _ := bodies.Get(e)
			wakeBody(s, b)
		}
	}
}

// brokenJoint is implemented by every joint component carrying a Broken
// flag, so unionJointEndpoints can skip broken joints generically.
type brokenJoint interface {
	isBroken() bool
}

func (j *JointDistance2D) isBroken() bool  { return j.Broken }
func (j *RevoluteJoint2D) isBroken() bool  { return j.Broken }
func (j *PrismaticJoint2D) isBroken() bool { return j.Broken }

// unionJointEndpoints walks every live joint of type T and unions its
// two connected bodies, skipping broken joints and joints missing their
// JointEndpoints component.
func unionJointEndpoints[T any](w *World, union func(a, b Entity)) {
	var zero T
	if _, ok := any(&zero).(brokenJoint); !ok {
		return
	}
	store := ecs.StoreOf[T](w)
	ends := ecs.StoreOf[JointEndpoints](w)
	store.Each(func(e Entity, j *T) {
		if any(j).(brokenJoint).isBroken() {
			return
		}
		ep, ok := ends.Get(e)
		if !ok {
			return
		}
		union(ep.A, ep.B)
	})
}
