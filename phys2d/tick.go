// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package phys2d

// tick.go wires the full pipeline into the world's Scheduler and
// exposes the single per-tick entry point an embedder calls once per
// fixed step.

import (
	"fmt"

	"github.com/lockstep-sim/detphys2d/ecs"
	"github.com/lockstep-sim/detphys2d/fx"
)

// Stage names, in dataflow order. Exported so an embedder wanting to
// insert its own systems (e.g. gravity, input) can target After/Before
// against them.
const (
	StageIntegrate        = "integrate"
	StageSyncAABB         = "syncAABB"
	StageBroadphase       = "broadphase"
	StageNarrowphase      = "narrowphase"
	StageCCD              = "ccd"
	StageWarmStart        = "warmStart"
	StageClearJointEvents = "clearJointEvents"
	StageJointBuild       = "jointBuild"
	StageContactSolve     = "contactSolve"
	StageJointSolve       = "jointSolve"
	StagePositionCorrect  = "positionCorrect"
	StageContactCommit    = "contactCommit"
	StageSleep            = "sleep"
	StageStateHash        = "stateHash"
)

// systemsRegistered is a world-scoped marker so RegisterSystems is safe
// to call more than once without double-adding stages.
type systemsRegistered struct{ done bool }

// RegisterSystems adds the fixed, ordered set of pipeline systems to
// w's Scheduler: integrate -> sync AABBs -> broadphase SAP ->
// narrowphase -> speculative CCD -> warm-start -> joint build -> GS
// contact solve -> GS joint solves -> split-impulse position correction
// -> contact commit -> sleep update -> state hash. Safe to call more
// than once; later calls are a no-op.
func RegisterSystems(w *World) {
	marker := ecs.Resource[systemsRegistered](w)
	if marker.done {
		return
	}
	marker.done = true
	ecs.SetResource(w, DefaultSleepConfig())

	w.Sched.Add(StageIntegrate, Integrate)
	w.Sched.Add(StageSyncAABB, SyncGeometry, ecs.After(StageIntegrate))
	w.Sched.Add(StageBroadphase, RunBroadphase, ecs.After(StageSyncAABB))
	w.Sched.Add(StageNarrowphase, RunNarrowphase, ecs.After(StageBroadphase))
	w.Sched.Add(StageCCD, RunSpeculativeCCD, ecs.After(StageNarrowphase))
	w.Sched.Add(StageWarmStart, RunWarmStart, ecs.After(StageCCD))
	w.Sched.Add(StageClearJointEvents, RunClearJointEvents, ecs.After(StageWarmStart))
	w.Sched.Add(StageJointBuild, RunBuildJoints, ecs.After(StageClearJointEvents))
	w.Sched.Add(StageContactSolve, RunSolveContacts, ecs.After(StageJointBuild))
	w.Sched.Add(StageJointSolve, RunSolveJoints, ecs.After(StageContactSolve))
	w.Sched.Add(StagePositionCorrect, RunPositionCorrection, ecs.After(StageJointSolve))
	w.Sched.Add(StageContactCommit, RunCommitContacts, ecs.After(StagePositionCorrect))
	w.Sched.Add(StageSleep, RunUpdateSleep, ecs.After(StageContactCommit))
	w.Sched.Add(StageStateHash, RunComputeHash, ecs.After(StageSleep))
}

// Tick advances the simulation by exactly one fixed step. External
// callers may drive multiple ticks per wall-clock frame; the core itself
// is oblivious. dtMS must match the world's FixedStep expressed in
// milliseconds to within 1ms; passing anything else is a programmer
// error, since the lock-step contract has no notion of a variable-length
// tick.
// RegisterSystems must have already been called.
func Tick(w *World, dtMS int64) error {
	wantMS := fx.Mul(w.FixedStep(), fx.From(1000))
	gotMS := fx.From(float64(dtMS))
	if fx.Abs(fx.Sub(wantMS, gotMS)) > fx.One {
		return fmt.Errorf("phys2d: Tick called with dt=%dms, want %.3fms (world fixed step)", dtMS, wantMS.ToFloat())
	}
	w.AdvanceFrame()
	return w.Sched.Run(w)
}
