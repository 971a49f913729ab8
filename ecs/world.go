// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ecs

import (
	"reflect"

	"github.com/lockstep-sim/detphys2d/fx"
)

// World owns entities, component stores, resource singletons, the
// scheduler, the frame counter, and the fixed timestep. It is the only
// mutable shared state in the simulation — every system reaches its data
// through World, never through a free global.
type World struct {
	Entities Entities
	Sched    *Scheduler

	stores    map[reflect.Type]any
	resources map[reflect.Type]any

	frame     uint64
	fixedStep fx.FX // default timestep in seconds, Q16.16.
}

// Option configures a World at construction time, functional-options
// style.
type Option func(*World)

// WithFixedStep overrides the default fixed simulation timestep
// (default 1/60 s).
func WithFixedStep(step fx.FX) Option {
	return func(w *World) { w.fixedStep = step }
}

// defaultFixedStep is 1/60 second in Q16.16.
var defaultFixedStep = fx.Div(fx.One, fx.From(60))

// NewWorld builds an empty World ready for component registration.
func NewWorld(opts ...Option) *World {
	w := &World{
		stores:    map[reflect.Type]any{},
		resources: map[reflect.Type]any{},
		fixedStep: defaultFixedStep,
	}
	w.Sched = newScheduler()
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FixedStep returns the fixed simulation timestep in seconds (Q16.16).
func (w *World) FixedStep() fx.FX { return w.fixedStep }

// Frame returns the number of ticks simulated so far.
func (w *World) Frame() uint64 { return w.frame }

// NewEntity allocates a fresh Entity.
func (w *World) NewEntity() Entity { return w.Entities.Create() }

// DisposeEntity releases e and all bookkeeping for it. Component stores
// are not swept automatically — systems that read a store and find a
// stale entity (Entities.Valid returns false) are expected to skip that
// row, the same way a joint row referencing a destroyed body is dropped
// from its batch.
func (w *World) DisposeEntity(e Entity) { w.Entities.Dispose(e) }

// AdvanceFrame increments the frame counter. Called once per Tick by the
// physics pipeline, before any system runs, so systems observing Frame()
// during tick N all see N.
func (w *World) AdvanceFrame() { w.frame++ }

// storeFor returns (creating if necessary) the Store[T] for component
// type T.
func storeFor[T any](w *World) *Store[T] {
	key := reflect.TypeOf((*T)(nil))
	if s, ok := w.stores[key]; ok {
		return s.(*Store[T])
	}
	s := NewStore[T]()
	w.stores[key] = s
	return s
}

// StoreOf returns the component store for type T, creating it on first use.
func StoreOf[T any](w *World) *Store[T] { return storeFor[T](w) }

// Resource returns the resource singleton of type T, creating a zero
// value on first use. Resources are owned by World and reached only
// through it, never as package-level globals.
func Resource[T any](w *World) *T {
	key := reflect.TypeOf((*T)(nil))
	if r, ok := w.resources[key]; ok {
		return r.(*T)
	}
	r := new(T)
	w.resources[key] = r
	return r
}

// SetResource overwrites the resource singleton of type T.
func SetResource[T any](w *World, v T) {
	key := reflect.TypeOf((*T)(nil))
	w.resources[key] = &v
}
