// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// broadphase.go implements the sweep-and-prune broadphase: sort AABB
// endpoints along X, sweep, and emit a candidate pair whenever two
// active intervals also overlap on Y.

import (
	"sort"

	"github.com/lockstep-sim/detphys2d/ecs"
)

type sapSide uint8

const (
	sapOpen  sapSide = 0
	sapClose sapSide = 1
)

type sapEndpoint struct {
	x    int64 // raw FX value, so the sort is exact.
	side sapSide
	id   ecs.Entity
	box  AABB2D
}

// RunBroadphase recomputes BroadphasePairs from the current AABB2D set,
// via sweep-and-prune on the X axis. Expects SyncGeometry to have
// already run this frame.
func RunBroadphase(w *World) {
	boxes := ecs.StoreOf[AABB2D](w)

	var endpoints []sapEndpoint
	boxes.Each(func(e Entity, box *AABB2D) {
		endpoints = append(endpoints,
			sapEndpoint{x: int64(box.MinX), side: sapOpen, id: e, box: *box},
			sapEndpoint{x: int64(box.MaxX), side: sapClose, id: e, box: *box},
		)
	})

	sort.Slice(endpoints, func(i, j int) bool {
		a, b := endpoints[i], endpoints[j]
		if a.x != b.x {
			return a.x < b.x
		}
		if a.side != b.side {
			return a.side < b.side
		}
		return a.id < b.id
	})

	var active []sapEndpoint
	var pairs []PairKey
	for _, ep := range endpoints {
		if ep.side == sapClose {
			active = removeActive(active, ep.id)
			continue
		}
		for _, other := range active {
			if yOverlap(ep.box, other.box) {
				pairs = append(pairs, MakePairKey(w, ep.id, other.id))
			}
		}
		active = append(active, ep)
	}

	ecs.SetResource(w, BroadphasePairs{Pairs: pairs})
}

func removeActive(active []sapEndpoint, id ecs.Entity) []sapEndpoint {
	for i, a := range active {
		if a.id == id {
			return append(active[:i], active[i+1:]...)
		}
	}
	return active
}

func yOverlap(a, b AABB2D) bool {
	return a.MinY <= b.MaxY && b.MinY <= a.MaxY
}
