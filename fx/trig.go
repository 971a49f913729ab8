// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package fx

import "math"

// trig.go provides deterministic sin/cos for FX angles expressed in
// "turns" (One == one full revolution), via a lookup table built once at
// package init. The table is built exactly once, so math.Sin here does
// not reintroduce per-frame floating-point math into the solver hot path —
// only the one-time table construction touches float64, and each entry is
// rounded to Q16.16.
const trigTableSize = 1024

var sinTable [trigTableSize]FX

func init() {
	for i := 0; i < trigTableSize; i++ {
		turns := float64(i) / float64(trigTableSize)
		sinTable[i] = From(math.Sin(turns * 2 * math.Pi))
	}
}

// wrapIndex wraps turns (Q16.16) into a table index in [0, trigTableSize).
func wrapIndex(turns FX) int {
	w := int64(turns) % int64(Scale)
	if w < 0 {
		w += int64(Scale)
	}
	return int(w * trigTableSize / int64(Scale))
}

// Sin returns an approximate sine of the angle given in turns (Q16.16,
// One == 360 degrees), via table lookup.
func Sin(turns FX) FX {
	return sinTable[wrapIndex(turns)]
}

// Cos returns an approximate cosine of the angle given in turns, via the
// same table shifted by a quarter turn.
func Cos(turns FX) FX {
	quarter := FX(Scale / 4)
	return sinTable[wrapIndex(Add(turns, quarter))]
}
