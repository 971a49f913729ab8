// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

import "github.com/lockstep-sim/detphys2d/ecs"

// World and Entity are re-exported so callers of package phys2d do not
// also need to import package ecs for the common case.
type World = ecs.World
type Entity = ecs.Entity

// NewWorld forwards to ecs.NewWorld.
func NewWorld(opts ...ecs.Option) *World { return ecs.NewWorld(opts...) }
