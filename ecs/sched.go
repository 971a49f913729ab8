// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ecs

// sched.go resolves the fixed, deterministic order systems run in each
// tick: a declared stage graph with after/before edges instead of a
// hardcoded dispatch chain.
//
// Cycle detection is delegated to github.com/katalvlaran/lvlath: stages
// become graph vertices, after/before become directed edges, and
// lvlath/dfs.TopologicalSort rejects cycles. lvlath's DFS order is not
// documented to be insertion-stable, and the run order must never depend
// on hash/iteration order, so Scheduler derives the actual order itself
// from the same validated edges: a stable Kahn pass over stages in
// registration order.

import (
	"fmt"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// System is one unit of scheduled work.
type System func(w *World)

type registeredSystem struct {
	name   string
	stage  string
	fn     System
	after  []string
	before []string
	order  int // registration order, for stable tie-breaking.
}

// Scheduler holds the declared systems and the resolved run order.
type Scheduler struct {
	systems []*registeredSystem
	order   []*registeredSystem // resolved; nil until Build is called.
}

func newScheduler() *Scheduler {
	return &Scheduler{}
}

// SystemOption configures a registered system's ordering constraints.
type SystemOption func(*registeredSystem)

// After requires the named stage(s) to run before this one.
func After(stages ...string) SystemOption {
	return func(rs *registeredSystem) { rs.after = append(rs.after, stages...) }
}

// Before requires the named stage(s) to run after this one.
func Before(stages ...string) SystemOption {
	return func(rs *registeredSystem) { rs.before = append(rs.before, stages...) }
}

// Add registers a system under the given stage name. Stage names double
// as dependency-graph vertices: two systems sharing a stage name run
// adjacently, in registration order.
func (s *Scheduler) Add(stage string, fn System, opts ...SystemOption) {
	rs := &registeredSystem{name: stage, stage: stage, fn: fn, order: len(s.systems)}
	for _, opt := range opts {
		opt(rs)
	}
	s.systems = append(s.systems, rs)
	s.order = nil // invalidate any previously resolved order.
}

// Build resolves the stage dependency graph once. Safe to call multiple
// times; it is a no-op if nothing changed since the last successful
// Build.
func (s *Scheduler) Build() error {
	if s.order != nil {
		return nil
	}

	g := core.NewGraph(core.WithDirected(true))
	seen := map[string]bool{}
	addVertex := func(name string) {
		if !seen[name] {
			seen[name] = true
			_ = g.AddVertex(name)
		}
	}
	for _, rs := range s.systems {
		addVertex(rs.stage)
	}

	addEdge := func(from, to string) {
		if from == to {
			return
		}
		addVertex(from)
		addVertex(to)
		if _, err := g.AddEdge(from, to, 0); err != nil {
			// Parallel after/before declarations collapse onto the same
			// edge; lvlath rejects the duplicate, which is fine here.
			_ = err
		}
	}
	for _, rs := range s.systems {
		for _, dep := range rs.after {
			addEdge(dep, rs.stage)
		}
		for _, dep := range rs.before {
			addEdge(rs.stage, dep)
		}
	}

	if _, err := dfs.TopologicalSort(g); err != nil {
		return fmt.Errorf("ecs: scheduler stage graph: %w", err)
	}

	// lvlath validated the graph is acyclic; now derive a deterministic
	// order ourselves via a stable Kahn pass over registration order, so
	// ties are broken by insertion order, never by lvlath's internal
	// DFS/iteration order.
	indeg := map[string]int{}
	edgesOut := map[string][]string{}
	for _, v := range g.Vertices() {
		indeg[v] = 0
	}
	for _, rs := range s.systems {
		for _, dep := range rs.after {
			if dep == rs.stage {
				continue
			}
			edgesOut[dep] = append(edgesOut[dep], rs.stage)
			indeg[rs.stage]++
		}
		for _, dep := range rs.before {
			if dep == rs.stage {
				continue
			}
			edgesOut[rs.stage] = append(edgesOut[rs.stage], dep)
			indeg[dep]++
		}
	}

	// Distinct stage names in first-registration order.
	stageOrder := []string{}
	stageSeen := map[string]bool{}
	for _, rs := range s.systems {
		if !stageSeen[rs.stage] {
			stageSeen[rs.stage] = true
			stageOrder = append(stageOrder, rs.stage)
		}
	}

	placed := map[string]bool{}
	var stageSequence []string
	for len(stageSequence) < len(stageOrder) {
		advanced := false
		for _, name := range stageOrder {
			if placed[name] || indeg[name] > 0 {
				continue
			}
			placed[name] = true
			stageSequence = append(stageSequence, name)
			for _, next := range edgesOut[name] {
				indeg[next]--
			}
			advanced = true
		}
		if !advanced {
			return fmt.Errorf("ecs: scheduler stage graph contains a cycle")
		}
	}

	stagePos := map[string]int{}
	for i, name := range stageSequence {
		stagePos[name] = i
	}

	ordered := make([]*registeredSystem, len(s.systems))
	copy(ordered, s.systems)
	// Stable sort by (stage position, registration order).
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0; j-- {
			a, b := ordered[j-1], ordered[j]
			if stagePos[a.stage] < stagePos[b.stage] {
				break
			}
			if stagePos[a.stage] == stagePos[b.stage] && a.order <= b.order {
				break
			}
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	s.order = ordered
	return nil
}

// Run executes every registered system once, in the resolved
// deterministic order, building the order first if necessary.
func (s *Scheduler) Run(w *World) error {
	if err := s.Build(); err != nil {
		return err
	}
	for _, rs := range s.order {
		rs.fn(w)
	}
	return nil
}
