// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package ecs is the entity-component-system substrate the deterministic
// physics core runs on: entity identifiers, component stores, resource
// singletons, and the stage scheduler. It owns no physics semantics —
// those live in package phys2d — it only gives the core somewhere
// deterministic to keep its data.
package ecs

// entity.go defines entity identifiers: ids pack an array index and a
// generation into one uint32 so destroyed-then-recreated ids differ from
// the ids that slot had before, until its 4-bit generation saturates.

import "log/slog"

// Entity is an opaque identifier. The low 28 bits are an index, the upper
// 4 bits are a generation tag, so a destroyed-then-recreated slot produces
// a different Entity value than before. The generation stops at 15: once a
// slot has been disposed 15 times, every later reuse of it yields the same
// Entity value.
type Entity uint32

const (
	indexBits     = 28
	genBits       = 4
	maxIndex      = (1 << indexBits) - 1
	maxGeneration = (1 << genBits) - 1
)

// Index is the value used for array/column lookups.
func (e Entity) Index() uint32 { return uint32(e) & maxIndex }

// Generation returns the value that tracks whether an id is still valid.
func (e Entity) Generation() uint8 { return uint8((uint32(e) >> indexBits) & maxGeneration) }

// maxFree starts recycling indices once the amount of disposed entities
// waiting for reuse exceeds this size.
const maxFree = 1 << (genBits + 8)

// Entities allocates and recycles Entity values. Zero value is ready to
// use.
type Entities struct {
	generations []uint8  // current generation per index slot.
	free        []uint32 // indices queued for reuse.
}

// Create returns a new, previously-unused Entity value.
func (es *Entities) Create() Entity {
	var idx uint32
	if len(es.free) > maxFree {
		idx = es.free[0]
		es.free = append(es.free[:0], es.free[1:]...)
	} else {
		es.generations = append(es.generations, 0)
		idx = uint32(len(es.generations) - 1)
		if idx > maxIndex {
			if len(es.free) == 0 {
				slog.Error("entity indices exhausted", "max", maxIndex)
				es.generations = es.generations[:len(es.generations)-1]
				return 0
			}
			idx = es.free[0]
			es.free = append(es.free[:0], es.free[1:]...)
		}
	}
	return Entity(idx | uint32(es.generations[idx])<<indexBits)
}

// Valid reports whether e was created and has not since been disposed.
func (es *Entities) Valid(e Entity) bool {
	idx := e.Index()
	if idx >= uint32(len(es.generations)) {
		return false
	}
	return es.generations[idx] == uint8(e.Generation())
}

// Dispose marks e as no longer valid and queues its index for reuse.
func (es *Entities) Dispose(e Entity) {
	idx := e.Index()
	if idx >= uint32(len(es.generations)) {
		return
	}
	if es.generations[idx] != maxGeneration {
		es.generations[idx]++
	}
	es.free = append(es.free, idx)
}

// Reset discards all entity bookkeeping.
func (es *Entities) Reset() {
	es.generations = nil
	es.free = nil
}
