// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// warmstart.go implements the warm-start/commit pair: before the solver
// runs, seed each contact's accumulated impulse from the per-feature
// cache when the contact geometry still matches closely enough to trust
// the old impulse; after the solver runs, write the solved impulses
// back.

import (
	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// RunWarmStart seeds Contacts2D.List's Jn/Jt from ContactCache2D where
// the cached feature's normal and position still match closely enough
// (zeroing them otherwise), then writes every contact's impulses and
// current geometry back into its cache entry. Expects
// RunNarrowphase (and RunSpeculativeCCD) to have already run.
func RunWarmStart(w *World) {
	cache := ecs.Resource[ContactCache2D](w)
	contacts := ecs.Resource[Contacts2D](w)
	cache.BeginFrame(contacts.Frame)

	for i := range contacts.List {
		c := &contacts.List[i]
		cached, ok := cache.Get(c.Key, c.FeatureID)
		if ok && warmStartMatches(cached, *c) {
			c.Jn, c.Jt = cached.Jn, cached.Jt
		} else {
			c.Jn, c.Jt = 0, 0
		}
		cache.Set(c.Key, c.FeatureID, c.Jn, c.Jt, c.Point.X, c.Point.Y, c.Normal.X, c.Normal.Y)
	}
}

func warmStartMatches(cached CachedPoint, c Contact2D) bool {
	cn := Vec2{X: cached.Nx, Y: cached.Ny}
	if vDot(cn, c.Normal) < CosWarmStartAngle {
		return false
	}
	dx, dy := fx.Sub(c.Point.X, cached.Px), fx.Sub(c.Point.Y, cached.Py)
	distSq := fx.Add(fx.Mul(dx, dx), fx.Mul(dy, dy))
	return distSq <= fx.Mul(MaxPositionDrift, MaxPositionDrift)
}

// RunCommitContacts writes the solver's post-iteration Jn/Jt back into
// ContactCache2D and the lightweight Contacts2D.Prev map. Expects the
// contact solver to have already run this frame.
func RunCommitContacts(w *World) {
	cache := ecs.Resource[ContactCache2D](w)
	contacts := ecs.Resource[Contacts2D](w)
	if contacts.Prev == nil {
		contacts.Prev = map[string]PrevImpulse{}
	}
	for _, c := range contacts.List {
		cache.UpdateImpulses(c.Key, c.FeatureID, c.Jn, c.Jt)
		contacts.Prev[c.Key] = PrevImpulse{Jn: c.Jn, Jt: c.Jt}
	}
}
