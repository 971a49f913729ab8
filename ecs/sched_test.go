// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsInRegistrationOrderWithNoDeps(t *testing.T) {
	w := NewWorld()
	var order []string
	s := newScheduler()
	s.Add("a", func(*World) { order = append(order, "a") })
	s.Add("b", func(*World) { order = append(order, "b") })
	s.Add("c", func(*World) { order = append(order, "c") })
	require.NoError(t, s.Run(w))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestSchedulerHonorsAfter(t *testing.T) {
	w := NewWorld()
	var order []string
	s := newScheduler()
	s.Add("solve", func(*World) { order = append(order, "solve") }, After("broadphase"))
	s.Add("broadphase", func(*World) { order = append(order, "broadphase") })
	require.NoError(t, s.Run(w))
	assert.Equal(t, []string{"broadphase", "solve"}, order)
}

func TestSchedulerHonorsBefore(t *testing.T) {
	w := NewWorld()
	var order []string
	s := newScheduler()
	s.Add("narrowphase", func(*World) { order = append(order, "narrowphase") }, Before("solve"))
	s.Add("solve", func(*World) { order = append(order, "solve") })
	require.NoError(t, s.Run(w))
	assert.Equal(t, []string{"narrowphase", "solve"}, order)
}

func TestSchedulerDetectsCycle(t *testing.T) {
	w := NewWorld()
	s := newScheduler()
	s.Add("a", func(*World) {}, After("b"))
	s.Add("b", func(*World) {}, After("a"))
	err := s.Run(w)
	assert.Error(t, err)
}

func TestSchedulerDeterministicAcrossRuns(t *testing.T) {
	build := func() []string {
		w := NewWorld()
		var order []string
		s := newScheduler()
		s.Add("integrate", func(*World) { order = append(order, "integrate") })
		s.Add("sync-aabb", func(*World) { order = append(order, "sync-aabb") }, After("integrate"))
		s.Add("broadphase", func(*World) { order = append(order, "broadphase") }, After("sync-aabb"))
		s.Add("narrowphase", func(*World) { order = append(order, "narrowphase") }, After("broadphase"))
		s.Add("solve", func(*World) { order = append(order, "solve") }, After("narrowphase"))
		_ = s.Run(w)
		return order
	}
	a, b := build(), build()
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"integrate", "sync-aabb", "broadphase", "narrowphase", "solve"}, a)
}
