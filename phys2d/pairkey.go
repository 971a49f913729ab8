// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// pairkey.go implements the deterministic pair key: a calling-order-
// independent identity for an unordered entity pair, preferring an
// optional stable Guid over the entity id, in the decimal string format
// the warm-start cache requires.

import (
	"strconv"

	"github.com/lockstep-sim/detphys2d/ecs"
)

// sortKey is the 64 bit value entities are compared by: (Hi, Lo),
// unsigned, lexicographic.
type sortKey struct {
	Hi, Lo uint32
}

func less(a, b sortKey) bool {
	if a.Hi != b.Hi {
		return a.Hi < b.Hi
	}
	return a.Lo < b.Lo
}

// sortKeyFor returns the sort key for e: its Guid if one is registered
// and non-zero, otherwise (0, entity id).
func sortKeyFor(w *World, e ecs.Entity) sortKey {
	if g, ok := ecs.StoreOf[Guid](w).Get(e); ok && (g.Hi != 0 || g.Lo != 0) {
		return sortKey{Hi: g.Hi, Lo: g.Lo}
	}
	return sortKey{Hi: 0, Lo: uint32(e)}
}

// PairKey is the result of ordering two entities deterministically.
type PairKey struct {
	A, B ecs.Entity // ordered: A has the lower sort key.
	Key  string      // "hi1:lo1|hi2:lo2" decimal.
}

// MakePairKey orders a and b by their sort keys (Guid if present,
// otherwise entity id) and produces the canonical string key. Ties
// (equal sort keys, which cannot happen for distinct valid entities
// under non-zero Guids, but can for the default (0, entityID) fallback
// only when a==b) are resolved by entity id.
//
// MakePairKey(a, b).Key == MakePairKey(b, a).Key and the ordered (A, B)
// pair is identical regardless of call order.
func MakePairKey(w *World, a, b ecs.Entity) PairKey {
	ka, kb := sortKeyFor(w, a), sortKeyFor(w, b)
	lo, hi := a, b
	lk, hk := ka, kb
	if less(kb, ka) || (kb == ka && b < a) {
		lo, hi = b, a
		lk, hk = kb, ka
	}
	key := strconv.FormatUint(uint64(lk.Hi), 10) + ":" + strconv.FormatUint(uint64(lk.Lo), 10) +
		"|" + strconv.FormatUint(uint64(hk.Hi), 10) + ":" + strconv.FormatUint(uint64(hk.Lo), 10)
	return PairKey{A: lo, B: hi, Key: key}
}
