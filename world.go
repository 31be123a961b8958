// Package quill steps a rigid-body world: bodies are paired by a grid
// broadphase, their contacts are kept in persistent manifolds, connected
// bodies are grouped in islands and each awake island is solved with its
// contacts and joints together.
package quill

import (
	"fmt"
	"slices"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/constraint"
	"github.com/akmonengine/quill/dispatch"
	"github.com/akmonengine/quill/island"
	"github.com/akmonengine/quill/manifold"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_WORKERS = 1

// Settings configures a world at creation
type Settings struct {
	// Gravity acceleration (m/s², or N/kg)
	Gravity  mgl64.Vec3
	Substeps int
	Workers  int

	Solver       constraint.SolverInfo
	Deactivation actor.Deactivation

	ContactBreakingThreshold float64
	// CcdMargin is how far a swept body may sink into what it hits
	CcdMargin float64

	CellSize float64
	NumCells int

	Callbacks manifold.Callbacks
}

// DefaultSettings is earth gravity, one substep at 60Hz and the default
// solver and sleeping thresholds.
func DefaultSettings() Settings {
	return Settings{
		Gravity:                  mgl64.Vec3{0, -9.81, 0},
		Substeps:                 1,
		Workers:                  DEFAULT_WORKERS,
		Solver:                   constraint.DefaultSolverInfo(1.0 / 60.0),
		Deactivation:             actor.DefaultDeactivation(),
		ContactBreakingThreshold: manifold.DefaultBreakingThreshold,
		CcdMargin:                0.01,
		CellSize:                 4,
		NumCells:                 1024,
	}
}

type World struct {
	// List of all rigid bodies in the world
	Bodies []*actor.RigidBody
	// Gravity acceleration (m/s², or N/kg)
	Gravity  mgl64.Vec3
	Substeps int
	Workers  int

	SolverInfo   constraint.SolverInfo
	Deactivation actor.Deactivation
	CcdMargin    float64

	Broadphase  *broadphase.Grid
	Dispatcher  *dispatch.Dispatcher
	Islands     *island.Manager
	Constraints *constraint.Registry

	Events Events
	Logger *log.Logger

	solver            *constraint.Solver
	proxies           map[*actor.RigidBody]*broadphase.Proxy
	islandConstraints map[int][]constraint.TypedConstraint
	nextBodyID        int
	stepCount         int
}

// NewWorld creates an empty world. A nil logger uses the default one.
func NewWorld(settings Settings, logger *log.Logger) *World {
	if logger == nil {
		logger = log.Default()
	}

	w := &World{
		Gravity:      settings.Gravity,
		Substeps:     max(1, settings.Substeps),
		Workers:      max(DEFAULT_WORKERS, settings.Workers),
		SolverInfo:   settings.Solver,
		Deactivation: settings.Deactivation,
		CcdMargin:    settings.CcdMargin,
		Broadphase:   broadphase.NewGrid(settings.CellSize, settings.NumCells, nil),
		Dispatcher: dispatch.NewDispatcher(dispatch.Config{
			Logger:            logger,
			Callbacks:         settings.Callbacks,
			BreakingThreshold: settings.ContactBreakingThreshold,
		}),
		Islands:           island.NewManager(logger),
		Constraints:       constraint.NewRegistry(),
		Events:            NewEvents(),
		Logger:            logger,
		solver:            constraint.NewSolver(settings.Solver, logger),
		proxies:           make(map[*actor.RigidBody]*broadphase.Proxy),
		islandConstraints: make(map[int][]constraint.TypedConstraint),
		nextBodyID:        1,
	}

	return w
}

// AddBody adds a rigid body to the world and gives it a broadphase proxy
func (w *World) AddBody(body *actor.RigidBody) {
	if _, ok := w.proxies[body]; ok {
		return
	}

	body.ID = w.nextBodyID
	w.nextBodyID++
	w.Bodies = append(w.Bodies, body)

	group, mask := collisionFilter(body)
	w.proxies[body] = w.Broadphase.CreateProxy(body.UpdateAABB(), body, group, mask)
}

// collisionFilter keeps static and kinematic bodies from pairing with each other
func collisionFilter(body *actor.RigidBody) (group, mask broadphase.CollisionFilter) {
	switch {
	case body.IsStatic():
		return broadphase.FilterStatic, broadphase.FilterAll &^ (broadphase.FilterStatic | broadphase.FilterKinematic)
	case body.IsKinematic():
		return broadphase.FilterKinematic, broadphase.FilterAll &^ (broadphase.FilterStatic | broadphase.FilterKinematic)
	}
	return broadphase.FilterDefault, broadphase.FilterAll
}

// RemoveBody removes a rigid body from the world, with its pairs, its
// manifolds and the constraints attached to it.
func (w *World) RemoveBody(body *actor.RigidBody) {
	k := slices.Index(w.Bodies, body)
	if k == -1 {
		return
	}
	w.Bodies = slices.Delete(w.Bodies, k, k+1)

	if proxy, ok := w.proxies[body]; ok {
		if err := w.Broadphase.DestroyProxy(proxy); err != nil {
			w.Logger.Warn("destroy proxy", "body", body.ID, "err", err)
		}
		delete(w.proxies, body)
	}

	for _, c := range w.Constraints.ConstraintsOf(body) {
		other := c.BodyA()
		if other == body {
			other = c.BodyB()
		}
		other.Activate(false)
	}
	w.Constraints.RemoveBody(body)

	w.Events.forget(body)
}

// AddConstraint registers a joint and wakes its bodies. With
// disableLinkedCollision the two bodies stop colliding with each other.
func (w *World) AddConstraint(c constraint.TypedConstraint, disableLinkedCollision bool) int {
	c.BodyA().Activate(false)
	c.BodyB().Activate(false)
	return w.Constraints.Add(c, disableLinkedCollision)
}

func (w *World) RemoveConstraint(id int) error {
	c, ok := w.Constraints.ByID(id)
	if !ok {
		return fmt.Errorf("remove constraint: %w", constraint.ErrUnknownConstraint)
	}
	c.BodyA().Activate(false)
	c.BodyB().Activate(false)
	return w.Constraints.Remove(id)
}

// SetConstraintParam changes a joint parameter by index, see constraint.Registry.SetParam
func (w *World) SetConstraintParam(id, param int, value0, value1 float64) error {
	if err := w.Constraints.SetParam(id, param, value0, value1); err != nil {
		return err
	}
	c, _ := w.Constraints.ByID(id)
	c.BodyA().Activate(false)
	c.BodyB().Activate(false)
	return nil
}

func (w *World) ConstraintParam(id, param int) (float64, error) {
	return w.Constraints.Param(id, param)
}

// SetContactBreakingThreshold applies to live and future manifolds
func (w *World) SetContactBreakingThreshold(threshold float64) {
	w.Dispatcher.SetBreakingThreshold(threshold)
}

func (w *World) Step(dt float64) {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)
	w.Substeps = max(1, w.Substeps)
	h := dt / float64(w.Substeps)

	for range w.Substeps {
		w.stepCount++

		// Phase 1: forces into velocities, motion prediction
		w.predictUnconstrainedMotion(h)

		// Phase 2.0: Collision pair finding - Broad phase
		// Phase 2.1: Contact generation - narrow phase
		w.performDiscreteCollisionDetection(h)
		w.Events.recordManifolds(w.Dispatcher.Manifolds())

		// Phase 3: islands from contacts and joints
		w.calculateSimulationIslands()

		// Phase 4: Solver, island by island
		w.solveConstraints(h)

		// Phase 5: commit positions, clamped by the time of impact
		w.integrateTransforms(h)

		w.updateActivationState(h)
	}

	w.Events.processSleepEvents(w.Bodies)
	w.Events.flush()
}

func (w *World) predictUnconstrainedMotion(h float64) {
	task(w.Workers, w.Bodies, func(body *actor.RigidBody) {
		if body.IsStatic() || !body.IsActive() {
			return
		}
		body.IntegrateVelocities(h, w.Gravity)
		body.PredictIntegratedTransform(h)
	})
}

func (w *World) calculateSimulationIslands() {
	w.Islands.UpdateActivationState(w.Bodies, w.Broadphase.OverlappingPairCache())

	for _, c := range w.Constraints.Constraints() {
		if !c.IsEnabled() {
			continue
		}
		a, b := c.BodyA(), c.BodyB()
		if a.IsActive() || b.IsActive() {
			w.Islands.Unite(a, b)
		}
	}

	w.Islands.StoreIslandActivationState(w.Bodies)
}

func (w *World) solveConstraints(h float64) {
	info := w.SolverInfo
	info.TimeStep = h

	for id, constraints := range w.islandConstraints {
		w.islandConstraints[id] = constraints[:0]
	}
	for _, c := range w.Constraints.Constraints() {
		if !c.IsEnabled() {
			continue
		}
		if id := constraintIslandID(c); id >= 0 {
			w.islandConstraints[id] = append(w.islandConstraints[id], c)
		}
	}

	w.Islands.BuildAndProcessIslands(w.Dispatcher, w.Bodies, func(bodies []*actor.RigidBody, manifolds []*manifold.PersistentManifold, islandID int) {
		w.solver.SolveGroup(bodies, manifolds, w.islandConstraints[islandID], info)
	})
}

// constraintIslandID is the island of the first body that belongs to one
func constraintIslandID(c constraint.TypedConstraint) int {
	if tag := c.BodyA().IslandTag; tag >= 0 {
		return tag
	}
	return c.BodyB().IslandTag
}

// updateActivationState runs the sleep timers. A body below the thresholds
// long enough asks for deactivation; the island manager puts it to sleep
// once its whole island agrees.
func (w *World) updateActivationState(h float64) {
	for _, body := range w.Bodies {
		body.UpdateDeactivation(h, w.Deactivation)

		if !body.WantsSleeping(w.Deactivation) {
			if body.ActivationState != actor.DisableDeactivation {
				body.SetActivationState(actor.ActiveTag)
			}
			continue
		}

		if body.IsStaticOrKinematic() {
			body.SetActivationState(actor.IslandSleeping)
			continue
		}
		if body.ActivationState == actor.ActiveTag {
			body.SetActivationState(actor.WantsDeactivation)
		}
		if body.ActivationState == actor.IslandSleeping {
			body.Velocity = mgl64.Vec3{}
			body.AngularVelocity = mgl64.Vec3{}
		}
	}
}
