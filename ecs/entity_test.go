// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyInvalid(t *testing.T) {
	var es Entities
	assert.False(t, es.Valid(0))
}

func TestFirstIsZero(t *testing.T) {
	var es Entities
	assert.Equal(t, Entity(0), es.Create())
}

func TestCreateSequential(t *testing.T) {
	var es Entities
	for i := 0; i < 100; i++ {
		e := es.Create()
		assert.Equal(t, uint32(i), e.Index())
		assert.True(t, es.Valid(e))
	}
}

func TestDisposeInvalidates(t *testing.T) {
	var es Entities
	e := es.Create()
	assert.True(t, es.Valid(e))
	es.Dispose(e)
	assert.False(t, es.Valid(e))
}

func TestRecycledIndexGetsNewGeneration(t *testing.T) {
	var es Entities
	first := es.Create()
	es.Dispose(first)

	// Push enough churn through the free list that the allocator starts
	// recycling instead of growing (maxFree threshold).
	var recycled Entity
	for i := 0; i < maxFree+2; i++ {
		e := es.Create()
		es.Dispose(e)
		if e.Index() == first.Index() {
			recycled = e
		}
	}
	if recycled.Index() == first.Index() {
		assert.NotEqual(t, first, recycled, "generation must bump on reuse")
	}
}
