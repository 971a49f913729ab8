// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package fx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	a, b := From(1.5), From(2.25)
	require.Equal(t, From(3.75), Add(a, b))
	require.Equal(t, From(-0.75), Sub(a, b))
}

func TestMulDiv(t *testing.T) {
	a, b := From(2.0), From(3.0)
	assert.Equal(t, From(6.0), Mul(a, b))
	assert.Equal(t, From(0.5), Div(a, From(4.0)))
}

func TestDivByZeroReturnsZero(t *testing.T) {
	assert.Equal(t, Zero, Div(From(1.0), Zero))
}

func TestAbsNegClamp(t *testing.T) {
	assert.Equal(t, From(3.0), Abs(From(-3.0)))
	assert.Equal(t, From(-3.0), Neg(From(3.0)))
	assert.Equal(t, From(1.0), Clamp(From(5.0), From(-1.0), From(1.0)))
	assert.Equal(t, From(-1.0), Clamp(From(-5.0), From(-1.0), From(1.0)))
}

func TestLenApproxAxisAligned(t *testing.T) {
	// On an axis, lenApprox is exact: min==0 so the correction term is 0.
	got := LenApprox(From(3.0), Zero)
	assert.Equal(t, From(3.0), got)
}

func TestLenApproxSymmetric(t *testing.T) {
	a := LenApprox(From(3.0), From(4.0))
	b := LenApprox(From(4.0), From(3.0))
	assert.Equal(t, a, b, "lenApprox must be symmetric in its arguments")
	// Approximation should be close to the true length (5.0) within a
	// few percent - this is the documented behavior of the 0.375 term.
	assert.InDelta(t, 5.0, a.ToFloat(), 0.2)
}

func TestNormalizeDegenerate(t *testing.T) {
	nx, ny, l := Normalize(Zero, Zero)
	assert.Equal(t, One, nx)
	assert.Equal(t, Zero, ny)
	assert.Equal(t, Zero, l)
}

func TestNormalizeUnit(t *testing.T) {
	nx, ny, l := Normalize(From(3.0), From(4.0))
	assert.InDelta(t, 5.0, l.ToFloat(), 0.2)
	lenSq := Mul(nx, nx) + Mul(ny, ny)
	// LenApprox(3,4) is 4.84375, not 5, so the "unit" vector comes out
	// slightly long: its squared length is about 25/4.84375^2 ~= 1.0655.
	assert.InDelta(t, 1.0655, lenSq.ToFloat(), 0.01)
}

func TestRoundTripConversion(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 0.5, -0.5, 1000.25, -1000.25} {
		got := From(v).ToFloat()
		assert.InDelta(t, v, got, 1.0/Scale)
	}
}
