// Package systems holds the particle simulation: the particle set stored in
// an ark ECS world, the creation throttle and the wind model.
package systems

import (
	"image"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/snowdrift/components"
	"github.com/pthm-cable/snowdrift/config"
	"github.com/pthm-cable/snowdrift/registry"
)

const (
	initialYSpeed     = 120
	maxWindSensitive  = 0.4
	maxWindForce      = 0.9
	cullDissolveTime  = 0.51
	hitDissolveTime   = 0.9
	cullSparedCyclic  = 0.9 // a cyclic particle is culled when rand exceeds this
	cullSparedBlowoff = 0.3
)

// Collider tests a particle against the accumulation surfaces.
type Collider interface {
	HitTest(x, y, w int) registry.Hit
}

// Occluder reports whether a rectangle is hidden behind a foreground window.
type Occluder interface {
	Covers(x, y, w, h int) bool
}

// ShapeSize is the pixel size of one particle shape.
type ShapeSize struct {
	W, H int
}

// Params are the simulation parameters a tick reads.
type Params struct {
	Width, Height int
	CountMax      int
	SpeedFactor   float64
	ShowWind      bool
	DT            float64 // seconds per physics step
}

// RemoveReason says why a particle left the set.
type RemoveReason uint8

const (
	RemovedFloor RemoveReason = iota // fell past the bottom edge
	RemovedExit                      // non-cyclic particle left horizontally
	RemovedConsumed
	RemovedDissolved
	RemovedStalled
)

// Counters accumulate particle churn since creation of the set.
type Counters struct {
	Created   int
	Floor     int
	Exit      int
	Consumed  int
	Dissolved int
	Stalled   int
}

// Removed returns the total number of removals.
func (c Counters) Removed() int {
	return c.Floor + c.Exit + c.Consumed + c.Dissolved + c.Stalled
}

func (c *Counters) record(r RemoveReason) {
	switch r {
	case RemovedFloor:
		c.Floor++
	case RemovedExit:
		c.Exit++
	case RemovedConsumed:
		c.Consumed++
	case RemovedDissolved:
		c.Dissolved++
	case RemovedStalled:
		c.Stalled++
	}
}

type doomed struct {
	entity ecs.Entity
	reason RemoveReason
	fluff  bool
}

// ParticleSet owns every airborne particle.
type ParticleSet struct {
	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Velocity, components.Flake]
	filter *ecs.Filter3[components.Position, components.Velocity, components.Flake]

	rng      *rand.Rand
	params   Params
	shapes   []ShapeSize
	collider Collider
	occluder Occluder

	windClass int
	newWind   float64

	live        int
	dissolving  int
	stalling    bool
	removeFluff bool
	counters    Counters

	iterating bool
	pending   []components.Spawn
	doomed    []doomed
}

// NewParticleSet creates an empty set.
func NewParticleSet(p Params, rng *rand.Rand) *ParticleSet {
	world := ecs.NewWorld()
	return &ParticleSet{
		world:  world,
		mapper: ecs.NewMap3[components.Position, components.Velocity, components.Flake](world),
		filter: ecs.NewFilter3[components.Position, components.Velocity, components.Flake](world),
		rng:    rng,
		params: p,
		shapes: []ShapeSize{{1, 2}},
	}
}

// SetParams replaces the simulation parameters.
func (s *ParticleSet) SetParams(p Params) { s.params = p }

// Params returns the simulation parameters.
func (s *ParticleSet) Params() Params { return s.params }

// SetShapes replaces the shape table. Existing particles keep their index,
// clamped into the new table when drawn.
func (s *ParticleSet) SetShapes(sizes []ShapeSize) {
	if len(sizes) == 0 {
		return
	}
	s.shapes = append(s.shapes[:0], sizes...)
}

// SetCollider sets the accumulation surfaces particles land on.
func (s *ParticleSet) SetCollider(c Collider) { s.collider = c }

// SetOccluder sets the windows that can hide particles.
func (s *ParticleSet) SetOccluder(o Occluder) { s.occluder = o }

// SetWind records the current wind class and target speed.
func (s *ParticleSet) SetWind(class int, speed float64) {
	s.windClass, s.newWind = class, speed
}

// Count returns the number of live particles.
func (s *ParticleSet) Count() int { return s.live }

// Dissolving returns the number of live particles that are dissolving.
func (s *ParticleSet) Dissolving() int { return s.dissolving }

// Counters returns churn counters.
func (s *ParticleSet) Counters() Counters { return s.counters }

// Stalling reports whether creation is suspended until the set empties.
func (s *ParticleSet) Stalling() bool { return s.stalling }

// SetStalling enables or disables stall mode. While stalling, every
// particle starts a short dissolve on its next step and is counted as
// stalled once it fades out.
func (s *ParticleSet) SetStalling(on bool) { s.stalling = on }

// SetRemoveFluff makes the next steps drop dissolving and frozen particles.
func (s *ParticleSet) SetRemoveFluff(on bool) { s.removeFluff = on }

func (s *ParticleSet) shape(i int) ShapeSize {
	if i < 0 || i >= len(s.shapes) {
		return s.shapes[0]
	}
	return s.shapes[i]
}

// randint returns a uniform integer in [0, m), or 0 when m ≤ 0.
func (s *ParticleSet) randint(m int) int {
	if m <= 0 {
		return 0
	}
	return s.rng.Intn(m)
}

// newFlake builds a particle entering from above the top edge.
func (s *ParticleSet) newFlake() (components.Position, components.Velocity, components.Flake) {
	f := components.Flake{
		Shape:   s.rng.Intn(len(s.shapes)),
		Cyclic:  true,
		Visible: true,
	}
	sz := s.shape(f.Shape)
	f.Mass = s.rng.Float64() + 0.1
	f.Sensitivity = s.rng.Float64() * maxWindSensitive
	f.InitVY = initialYSpeed * math.Sqrt(f.Mass)

	pos := components.Position{
		X: float64(s.randint(s.params.Width - sz.W)),
		Y: float64(-s.randint(s.params.Height/10) - sz.H),
	}
	vel := components.Velocity{Y: f.InitVY}
	if s.params.ShowWind {
		vel.X = float64(s.randint(int(s.newWind)) / 2)
	}
	return pos, vel, f
}

// Create adds n particles entering from above the top edge.
func (s *ParticleSet) Create(n int) {
	for i := 0; i < n; i++ {
		pos, vel, f := s.newFlake()
		s.add(&pos, &vel, &f)
	}
}

// Emit adds a particle at a given position and velocity. During a step the
// particle is queued and added once the step's sweep completes.
func (s *ParticleSet) Emit(sp components.Spawn) {
	if s.iterating {
		s.pending = append(s.pending, sp)
		return
	}
	s.spawn(sp)
}

func (s *ParticleSet) spawn(sp components.Spawn) {
	pos, vel, f := s.newFlake()
	pos = components.Position{X: sp.X, Y: sp.Y}
	vel = components.Velocity{X: sp.VX, Y: sp.VY}
	f.Cyclic = sp.Cyclic
	s.add(&pos, &vel, &f)
}

func (s *ParticleSet) add(pos *components.Position, vel *components.Velocity, f *components.Flake) {
	s.mapper.NewEntity(pos, vel, f)
	s.live++
	s.counters.Created++
}

func (s *ParticleSet) startFluff(f *components.Flake, t float64) {
	if f.StartFluff(t) {
		s.dissolving++
	}
}

// Step advances every particle by one physics step. Removals and queued
// spawns are applied after the sweep.
func (s *ParticleSet) Step() {
	s.iterating = true
	query := s.filter.Query()
	for query.Next() {
		pos, vel, f := query.Get()
		if reason, remove := s.update(pos, vel, f); remove {
			s.doomed = append(s.doomed, doomed{entity: query.Entity(), reason: reason, fluff: f.Fluff})
		}
	}
	s.iterating = false

	for _, d := range s.doomed {
		s.mapper.Remove(d.entity)
		s.live--
		if d.fluff {
			s.dissolving--
		}
		s.counters.record(d.reason)
	}
	s.doomed = s.doomed[:0]

	for _, sp := range s.pending {
		s.spawn(sp)
	}
	s.pending = s.pending[:0]
}

// update steps one particle and reports whether it must be removed.
func (s *ParticleSet) update(pos *components.Position, vel *components.Velocity, f *components.Flake) (RemoveReason, bool) {
	p := &s.params
	switch {
	case s.removeFluff && (f.Fluff || f.Frozen):
		return RemovedDissolved, true
	case f.Fluff && f.FluffTimer > f.FluffTime:
		if f.Stalled {
			return RemovedStalled, true
		}
		return RemovedDissolved, true
	case s.stalling && !f.Fluff:
		f.Stalled = true
		s.startFluff(f, cullDissolveTime)
	}

	step := p.DT * p.SpeedFactor
	newX := pos.X + vel.X*step
	newY := pos.Y + vel.Y*step

	if f.Fluff {
		if !f.Frozen {
			pos.X, pos.Y = newX, newY
		}
		f.FluffTimer += p.DT
		return 0, false
	}

	if s.live-s.dissolving >= p.CountMax {
		if (!f.Cyclic && s.rng.Float64() > cullSparedBlowoff) || s.rng.Float64() > cullSparedCyclic {
			s.startFluff(f, cullDissolveTime)
			return 0, false
		}
	}

	if p.ShowWind {
		force := p.DT * f.Sensitivity / f.Mass
		force = math.Max(-maxWindForce, math.Min(maxWindForce, force))
		vel.X += force * (s.newWind - vel.X)
		bound := config.WindMax(s.windClass) * 2
		vel.X = math.Max(-bound, math.Min(bound, vel.X))
	}

	vel.Y += initialYSpeed * (s.rng.Float64() - 0.4) * 0.1
	vel.Y = math.Min(vel.Y, f.InitVY*1.5)

	if f.Frozen {
		return 0, false
	}

	sz := s.shape(f.Shape)
	w := float64(p.Width)
	if f.Cyclic {
		if newX < -float64(sz.W) {
			newX += w - 1
		}
		if newX >= w {
			newX -= w
		}
	} else if newX < 0 || newX >= w {
		return RemovedExit, true
	}

	if newY >= float64(p.Height) {
		return RemovedFloor, true
	}

	ix, iy := int(math.Round(newX)), int(math.Round(newY))
	if s.collider != nil {
		switch s.collider.HitTest(ix, iy, sz.W) {
		case registry.HitConsumed:
			return RemovedConsumed, true
		case registry.HitDissolve:
			s.startFluff(f, hitDissolveTime)
		}
	}

	f.Visible = s.occluder == nil || !s.occluder.Covers(ix, iy, sz.W, sz.H)
	pos.X, pos.Y = newX, newY
	return 0, false
}

// Draw calls fn for every drawable particle with its rounded position,
// shape and fade factor, and records the position for the next erase.
// Frozen and hidden particles are skipped.
func (s *ParticleSet) Draw(fn func(x, y, shape int, fade float64)) {
	query := s.filter.Query()
	for query.Next() {
		pos, _, f := query.Get()
		f.DrawX = int(math.Round(pos.X))
		f.DrawY = int(math.Round(pos.Y))
		if f.Frozen || !f.Visible {
			continue
		}
		fn(f.DrawX, f.DrawY, f.Shape, f.FadeFactor())
	}
}

// Freeze pins every particle whose position lies inside r.
func (s *ParticleSet) Freeze(r image.Rectangle) int {
	n := 0
	query := s.filter.Query()
	for query.Next() {
		pos, _, f := query.Get()
		if image.Pt(int(pos.X), int(pos.Y)).In(r) {
			f.Frozen = true
			n++
		}
	}
	return n
}

// Unfreeze releases every frozen particle.
func (s *ParticleSet) Unfreeze() {
	query := s.filter.Query()
	for query.Next() {
		_, _, f := query.Get()
		f.Frozen = false
	}
}

// Speeds appends |vx| of every particle to dst.
func (s *ParticleSet) Speeds(dst []float64) []float64 {
	query := s.filter.Query()
	for query.Next() {
		_, vel, _ := query.Get()
		dst = append(dst, math.Abs(vel.X))
	}
	return dst
}

// Clear removes every particle without counting them as churn.
func (s *ParticleSet) Clear() {
	var all []ecs.Entity
	query := s.filter.Query()
	for query.Next() {
		all = append(all, query.Entity())
	}
	for _, e := range all {
		s.mapper.Remove(e)
	}
	s.live, s.dissolving = 0, 0
}
