// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package phys2d is the deterministic, lock-step 2D rigid-body physics
// core: fixed-point math, broadphase/narrowphase contact generation, the
// Gauss-Seidel sequential-impulse solver (contacts plus distance/
// revolute/prismatic joints), warm-start persistence, split-impulse
// position correction, speculative continuous collision, sleep/wake, and
// the deterministic state hash. Everything here is a pure function of
// ECS state — no I/O, no wall-clock reads, no goroutines.
package phys2d

import "github.com/lockstep-sim/detphys2d/fx"

// Vec2 is a plain FX pair. It carries no behavior of its own — all vector
// math goes through the fx package's scalar operations so replays agree
// bit-for-bit.
type Vec2 struct {
	X, Y fx.FX
}

// Body2D is the rigid body component. Mutated by the integrator, the
// solvers, split-impulse position correction, and sleep/wake.
//
// InvMass==0 iff InvI==0 iff the body is static. A sleeping body has
// VX=VY=W=0.
type Body2D struct {
	PX, PY  fx.FX // world position.
	VX, VY  fx.FX // linear velocity.
	W       fx.FX // angular velocity.
	Angle   fx.FX // orientation, wrapped into [0, fx.One) turns.
	InvMass fx.FX // zero => static/infinite mass.
	InvI    fx.FX // zero => static/infinite inertia.

	Friction    fx.FX
	Restitution fx.FX
	Awake       bool
}

// IsStatic reports whether b participates in the simulation as an
// immovable body.
func (b *Body2D) IsStatic() bool { return b.InvMass == 0 }

// WrapAngle wraps a into [0, fx.One), treating fx.One as one full turn.
// Keeping angles in Q16.16 turns instead of raw wrapped bits lets the
// same wrap logic compose with every other FX operation without a
// separate integer type.
func WrapAngle(a fx.FX) fx.FX {
	if a >= 0 {
		return a % fx.One
	}
	m := a % fx.One
	if m != 0 {
		m += fx.One
	}
	return m
}

// Sleep2D tracks per-body idle time for the sleep/wake system.
type Sleep2D struct {
	Sleeping  bool
	Timer     fx.FX
	KeepAwake bool
}

// ShapeCircle is a circle collider in the body's local frame.
type ShapeCircle struct {
	R          fx.FX
	MaterialID int32
}

// ConvexHull2D is a convex polygon collider in the body's local frame.
// Vertices are wound counter-clockwise.
type ConvexHull2D struct {
	Local []Vec2
	Skin  fx.FX
}

// CircleWorld2D is the geometry-sync system's cached world-space circle,
// recomputed every frame from Body2D + ShapeCircle.
type CircleWorld2D struct {
	Center Vec2
	R      fx.FX
}

// HullWorld2D is the geometry-sync system's cached world-space hull:
// transformed vertices and outward edge normals, recomputed every frame.
type HullWorld2D struct {
	Verts   []Vec2
	Normals []Vec2
	Skin    fx.FX
}

// AABB2D is the axis-aligned bounding box used by broadphase, recomputed
// every frame from Body2D + shape.
type AABB2D struct {
	MinX, MinY, MaxX, MaxY fx.FX
}

// BroadphasePairs is the world-scoped resource holding the sweep-and-
// prune output: candidate pairs whose AABBs overlap this frame, in the
// deterministic insertion order the SAP sweep produces them.
type BroadphasePairs struct {
	Pairs []PairKey
}

// hullVertexFeature flags a featureId as referring to a hull vertex
// rather than a hull edge/face.
const hullVertexFeature = 0x8000

// Contact2D is one narrowphase contact point between A and B.
type Contact2D struct {
	A, B        Entity
	Key         string // PairKey.Key, for cache/warm-start lookup.
	Normal      Vec2   // points from A to B.
	Point       Vec2
	Penetration fx.FX
	FeatureID   int32
	Jn, Jt      fx.FX // warm-started/solved impulses.

	// Speculative contacts come from CCD rather than narrowphase
	// overlap: the solver treats them like any other contact but
	// forces restitution to zero.
	Speculative bool
	TOI         fx.FX
}

// Contacts2D is the world-scoped resource holding this frame's contact
// list plus the lightweight warm-start map consumed between frames.
type Contacts2D struct {
	List  []Contact2D
	Prev  map[string]PrevImpulse
	Frame uint64
}

// PrevImpulse is the cached (jn, jt) pair keyed by PairKey.Key in the
// lightweight warm-start path (as opposed to the per-feature
// ContactCache2D, which additionally keys on FeatureID).
type PrevImpulse struct {
	Jn, Jt fx.FX
}

// CachedPoint is one per-feature warm-start memory entry.
type CachedPoint struct {
	Jn, Jt     fx.FX
	Px, Py     fx.FX
	Nx, Ny     fx.FX
	Age        int
	LastFrame  uint64
}

// ContactCache2D is the per-feature warm-start memory, keyed by pair key
// then feature id, with an LRU-by-pair cap and a staleness horizon.
// Defaults (maxPairs=10000, maxAge=8) are set by NewContactCache2D.
type ContactCache2D struct {
	Pairs    map[string]map[int32]CachedPoint
	Frame    uint64
	MaxPairs int
	MaxAge   int
}

// Defaults for a freshly built ContactCache2D. Part of the bit-identical
// contract: changing either changes the state hash.
const (
	ContactCacheDefaultMaxPairs = 10000
	ContactCacheDefaultMaxAge   = 8
)

// NewContactCache2D builds a ContactCache2D with the default tuning.
func NewContactCache2D() ContactCache2D {
	return ContactCache2D{
		Pairs:    map[string]map[int32]CachedPoint{},
		MaxPairs: ContactCacheDefaultMaxPairs,
		MaxAge:   ContactCacheDefaultMaxAge,
	}
}

// Guid is an optional stable 64 bit identity. When present with a
// non-zero value it takes precedence over the entity id for pair keying,
// because entity ids are not stable across replays.
type Guid struct {
	Hi, Lo uint32
}

// JointEndpoints names the two bodies a joint entity connects. The joint
// components themselves carry only local anchors and spring/limit
// parameters, so this sits alongside them on the same joint entity.
type JointEndpoints struct {
	A, B Entity
}

// JointDistance2D pins the distance between two local anchor points.
type JointDistance2D struct {
	LocalAnchorA, LocalAnchorB Vec2
	Rest                       fx.FX
	Beta, Gamma                fx.FX
	Jn                         fx.FX // accumulated normal impulse, for warm-start.
	BreakImpulse               fx.FX
	Broken                     bool
}

// RevoluteJoint2D pins two local anchor points to the same world point.
type RevoluteJoint2D struct {
	LocalAnchorA, LocalAnchorB Vec2
	Beta, Gamma                fx.FX
	Jx, Jy                     fx.FX // accumulated point impulse.
	BreakImpulse               fx.FX
	Broken                     bool
}

// PrismaticJoint2D constrains relative motion to a single axis, with
// optional limits and a motor.
type PrismaticJoint2D struct {
	LocalAnchorA, LocalAnchorB Vec2
	LocalAxisA                 Vec2 // axis direction in A's local frame.
	Beta, Gamma                fx.FX
	Lower, Upper                fx.FX
	EnableLimit                 bool
	EnableMotor                 bool
	MotorSpeed, MaxMotorImpulse fx.FX
	JPerp, JAxis                fx.FX // accumulated impulses, for warm-start.
	BreakImpulse                fx.FX
	Broken                      bool
}

// PhysicsSleepConfig is the world-scoped sleep/wake tuning resource.
type PhysicsSleepConfig struct {
	LinThresh    fx.FX
	AngThresh    fx.FX
	TimeToSleep  fx.FX
	WakeBias     fx.FX
	ImpulseWake  fx.FX
}

// DefaultSleepConfig returns the default tuning. Changing any of these
// values changes the state hash: they are part of the bit-identical
// contract, not a free-to-tune knob.
func DefaultSleepConfig() PhysicsSleepConfig {
	return PhysicsSleepConfig{
		LinThresh:   fx.From(0.02),
		AngThresh:   fx.From(0.05),
		TimeToSleep: fx.From(0.5),
		WakeBias:    fx.From(1.5),
		ImpulseWake: fx.From(0.05),
	}
}

// Solver constants. Part of the bit-identical contract: changing one
// changes the state hash.
var (
	IterN = 8  // normal (contact) iterations.
	IterT = 4  // friction iterations.
	IterJ = 8  // distance joint iterations.
	IterR = 8  // revolute joint iterations.
	IterP = 8  // prismatic joint iterations.
	PosIters = 4

	Baumgarte    = fx.From(0.2)
	PosPercent   = fx.From(0.8)
	PosSlop      = fx.From(0.0005)
	RestitThresh = fx.From(1.0)

	// MaxPositionDrift is the warm-start geometric drift tolerance
	// (world units); it is squared before comparison, so the effective
	// bound is 0.01 in squared world units.
	MaxPositionDrift = fx.From(0.1)

	// CosWarmStartAngle is cos(75 degrees) in Q16.16, the minimum normal
	// alignment required to reuse a cached warm-start impulse.
	CosWarmStartAngle = fx.From(0.258819045)
)
