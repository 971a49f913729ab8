// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// hash.go implements the deterministic frame fingerprint: an
// FNV-1a-style fold over bodies sorted by (guid_hi, guid_lo, entityID),
// then over contacts in list order. The byte-at-a-time mixing is spelled
// out by hand so every field order is explicit and nothing routes
// through map iteration.

import (
	"sort"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

const (
	fnvOffsetBasis32 uint32 = 2166136261
	fnvPrime32       uint32 = 16777619
)

func fnvMixU32(h uint32, v uint32) uint32 {
	h = (h ^ (v & 0xff)) * fnvPrime32
	h = (h ^ ((v >> 8) & 0xff)) * fnvPrime32
	h = (h ^ ((v >> 16) & 0xff)) * fnvPrime32
	h = (h ^ ((v >> 24) & 0xff)) * fnvPrime32
	return h
}

func fnvMixFX(h uint32, v fx.FX) uint32 { return fnvMixU32(h, uint32(v)) }

func fnvMixBool(h uint32, b bool) uint32 {
	if b {
		return fnvMixU32(h, 1)
	}
	return fnvMixU32(h, 0)
}

// hashBodyRow is a sortable snapshot of one body's hashed fields.
type hashBodyRow struct {
	guidHi, guidLo uint32
	entity         uint32
	px, py         fx.FX
	vx, vy         fx.FX
	w              fx.FX
	angle          fx.FX
	awake          bool
}

// FrameHashState caches the last computed FrameHash so an embedder can
// read it back after a tick without recomputing.
type FrameHashState struct {
	Value uint32
}

// RunComputeHash is the tick's final stage: folds FrameHash and stores it
// in FrameHashState.
func RunComputeHash(w *World) {
	ecs.SetResource(w, FrameHashState{Value: FrameHash(w)})
}

// LastFrameHash returns the hash computed by the most recent tick.
func LastFrameHash(w *World) uint32 {
	return ecs.Resource[FrameHashState](w).Value
}

// FrameHash folds a deterministic 32 bit fingerprint over the world's
// current bodies and contacts. Pure: it mutates nothing and depends only
// on Body2D and Contacts2D state.
func FrameHash(w *World) uint32 {
	bodies := ecs.StoreOf[Body2D](w)
	guids := ecs.StoreOf[Guid](w)

	rows := make([]hashBodyRow, 0, bodies.Len())
	bodies.Each(func(e Entity, b *Body2D) {
		var hi, lo uint32
		if g, ok := guids.Get(e); ok {
			hi, lo = g.Hi, g.Lo
		}
		rows = append(rows, hashBodyRow{
			guidHi: hi, guidLo: lo, entity: uint32(e),
			px: b.PX, py: b.PY, vx: b.VX, vy: b.VY,
			w: b.W, angle: b.Angle, awake: b.Awake,
		})
	})
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.guidHi != b.guidHi {
			return a.guidHi < b.guidHi
		}
		if a.guidLo != b.guidLo {
			return a.guidLo < b.guidLo
		}
		return a.entity < b.entity
	})

	h := fnvOffsetBasis32
	for _, r := range rows {
		h = fnvMixFX(h, r.px)
		h = fnvMixFX(h, r.py)
		h = fnvMixFX(h, r.vx)
		h = fnvMixFX(h, r.vy)
		h = fnvMixFX(h, r.w)
		h = fnvMixFX(h, r.angle)
		h = fnvMixBool(h, r.awake)
	}

	contacts := ecs.Resource[Contacts2D](w)
	for i := range contacts.List {
		c := &contacts.List[i]
		h = fnvMixU32(h, uint32(c.A))
		h = fnvMixU32(h, uint32(c.B))
		h = fnvMixFX(h, c.Jn)
		h = fnvMixFX(h, c.Jt)
		h = fnvMixFX(h, c.Penetration)
		h = fnvMixFX(h, c.Normal.X)
		h = fnvMixFX(h, c.Normal.Y)
	}
	return h
}
