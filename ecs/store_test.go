// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	s := NewStore[int]()
	var es Entities
	e := es.Create()
	s.Set(e, 42)
	v, ok := s.Get(e)
	require.True(t, ok)
	assert.Equal(t, 42, *v)
}

func TestStoreOverwrite(t *testing.T) {
	s := NewStore[string]()
	var es Entities
	e := es.Create()
	s.Set(e, "a")
	s.Set(e, "b")
	v, _ := s.Get(e)
	assert.Equal(t, "b", *v)
	assert.Equal(t, 1, s.Len())
}

func TestStoreRemoveSwapsWithLast(t *testing.T) {
	s := NewStore[int]()
	var es Entities
	e0, e1, e2 := es.Create(), es.Create(), es.Create()
	s.Set(e0, 0)
	s.Set(e1, 1)
	s.Set(e2, 2)

	s.Remove(e0)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Has(e0))
	assert.True(t, s.Has(e1))
	assert.True(t, s.Has(e2))
	v1, _ := s.Get(e1)
	v2, _ := s.Get(e2)
	assert.Equal(t, 1, *v1)
	assert.Equal(t, 2, *v2)
}

func TestStoreEachVisitsAllLiveRows(t *testing.T) {
	s := NewStore[int]()
	var es Entities
	want := map[Entity]int{}
	for i := 0; i < 10; i++ {
		e := es.Create()
		s.Set(e, i)
		want[e] = i
	}
	got := map[Entity]int{}
	s.Each(func(e Entity, v *int) { got[e] = *v })
	assert.Equal(t, want, got)
}

func TestWorldResourceSingleton(t *testing.T) {
	w := NewWorld()
	type counter struct{ n int }
	Resource[counter](w).n++
	Resource[counter](w).n++
	assert.Equal(t, 2, Resource[counter](w).n)
}

func TestWorldStoreOf(t *testing.T) {
	w := NewWorld()
	e := w.NewEntity()
	StoreOf[int](w).Set(e, 7)
	v, ok := StoreOf[int](w).Get(e)
	require.True(t, ok)
	assert.Equal(t, 7, *v)
}
