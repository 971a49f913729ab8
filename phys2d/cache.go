// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// cache.go implements ContactCache2D: per-feature warm-start memory
// with an age horizon and an LRU-by-pair cap, kept in the same
// small-struct-plus-methods shape as the rest of phys2d's resources.

import (
	"sort"

	"github.com/lockstep-sim/detphys2d/fx"
)

// Get returns the cached point for (key, featureID) if present.
func (c *ContactCache2D) Get(key string, featureID int32) (CachedPoint, bool) {
	byFeature, ok := c.Pairs[key]
	if !ok {
		return CachedPoint{}, false
	}
	p, ok := byFeature[featureID]
	return p, ok
}

// Set writes (or refreshes) a cached point. Age increments on refresh,
// starts at 1 on first write; lastFrame is always the cache's current
// frame.
func (c *ContactCache2D) Set(key string, featureID int32, jn, jt, px, py, nx, ny fx.FX) {
	if c.Pairs == nil {
		c.Pairs = map[string]map[int32]CachedPoint{}
	}
	byFeature, ok := c.Pairs[key]
	if !ok {
		byFeature = map[int32]CachedPoint{}
		c.Pairs[key] = byFeature
	}
	age := 1
	if prev, ok := byFeature[featureID]; ok {
		age = prev.Age + 1
	}
	byFeature[featureID] = CachedPoint{
		Jn: jn, Jt: jt, Px: px, Py: py, Nx: nx, Ny: ny,
		Age: age, LastFrame: c.Frame,
	}
}

// UpdateImpulses overwrites jn/jt in place without touching age or
// position/normal, for the solver's post-iteration commit.
func (c *ContactCache2D) UpdateImpulses(key string, featureID int32, jn, jt fx.FX) {
	byFeature, ok := c.Pairs[key]
	if !ok {
		return
	}
	p, ok := byFeature[featureID]
	if !ok {
		return
	}
	p.Jn, p.Jt = jn, jt
	byFeature[featureID] = p
}

// RemoveContact deletes a single feature entry.
func (c *ContactCache2D) RemoveContact(key string, featureID int32) {
	if byFeature, ok := c.Pairs[key]; ok {
		delete(byFeature, featureID)
	}
}

// RemovePair deletes every feature entry for a pair.
func (c *ContactCache2D) RemovePair(key string) {
	delete(c.Pairs, key)
}

// BeginFrame advances the cache to frame f, evicts stale entries, and
// then evicts whole pairs (oldest-lastFrame first) until the pair count
// is at most MaxPairs.
func (c *ContactCache2D) BeginFrame(f uint64) {
	c.Frame = f
	for key, byFeature := range c.Pairs {
		for fid, p := range byFeature {
			stale := p.Age > c.MaxAge
			if !stale && c.Frame >= uint64(c.MaxAge) {
				stale = p.LastFrame < c.Frame-uint64(c.MaxAge)
			}
			if stale {
				delete(byFeature, fid)
			}
		}
		if len(byFeature) == 0 {
			delete(c.Pairs, key)
		}
	}

	if len(c.Pairs) <= c.MaxPairs {
		return
	}
	type pairAge struct {
		key     string
		oldest  uint64
	}
	ages := make([]pairAge, 0, len(c.Pairs))
	for key, byFeature := range c.Pairs {
		oldest := c.Frame
		for _, p := range byFeature {
			if p.LastFrame < oldest {
				oldest = p.LastFrame
			}
		}
		ages = append(ages, pairAge{key: key, oldest: oldest})
	}
	sort.Slice(ages, func(i, j int) bool {
		if ages[i].oldest != ages[j].oldest {
			return ages[i].oldest < ages[j].oldest
		}
		return ages[i].key < ages[j].key
	})
	for i := 0; len(c.Pairs) > c.MaxPairs && i < len(ages); i++ {
		delete(c.Pairs, ages[i].key)
	}
}
