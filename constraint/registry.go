package constraint

import (
	"fmt"
	"slices"

	"github.com/akmonengine/quill/actor"
)

// Registry owns the constraints of a world and hands out their ids
type Registry struct {
	constraints []TypedConstraint
	byID        map[int]TypedConstraint
	byBody      map[*actor.RigidBody][]TypedConstraint
	linked      map[int]bool
	nextID      int
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[int]TypedConstraint),
		byBody: make(map[*actor.RigidBody][]TypedConstraint),
		linked: make(map[int]bool),
		nextID: 1,
	}
}

// Add registers c under a new id. With disableLinkedCollision the two
// bodies stop colliding with each other until the constraint is removed.
func (r *Registry) Add(c TypedConstraint, disableLinkedCollision bool) int {
	b := c.base()
	b.id = r.nextID
	r.nextID++

	r.constraints = append(r.constraints, c)
	r.byID[b.id] = c
	r.byBody[b.bodyA] = append(r.byBody[b.bodyA], c)
	r.byBody[b.bodyB] = append(r.byBody[b.bodyB], c)

	if disableLinkedCollision {
		b.bodyA.SetIgnoreCollisionCheck(b.bodyB, true)
		b.bodyB.SetIgnoreCollisionCheck(b.bodyA, true)
		r.linked[b.id] = true
	}

	return b.id
}

// Remove unregisters the constraint. Collisions between its bodies come back
// once no other linked constraint joins them.
func (r *Registry) Remove(id int) error {
	c, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownConstraint)
	}
	b := c.base()

	delete(r.byID, id)
	r.constraints = slices.DeleteFunc(r.constraints, func(other TypedConstraint) bool { return other == c })
	for _, body := range []*actor.RigidBody{b.bodyA, b.bodyB} {
		r.byBody[body] = slices.DeleteFunc(r.byBody[body], func(other TypedConstraint) bool { return other == c })
		if len(r.byBody[body]) == 0 {
			delete(r.byBody, body)
		}
	}

	if r.linked[id] {
		delete(r.linked, id)
		if !r.linksPair(b.bodyA, b.bodyB) {
			b.bodyA.SetIgnoreCollisionCheck(b.bodyB, false)
			b.bodyB.SetIgnoreCollisionCheck(b.bodyA, false)
		}
	}
	return nil
}

// linksPair reports whether a registered constraint still disables the
// collisions between the two bodies.
func (r *Registry) linksPair(bodyA, bodyB *actor.RigidBody) bool {
	for _, c := range r.byBody[bodyA] {
		if !r.linked[c.ID()] {
			continue
		}
		other := c.base()
		if (other.bodyA == bodyA && other.bodyB == bodyB) || (other.bodyA == bodyB && other.bodyB == bodyA) {
			return true
		}
	}
	return false
}

// RemoveBody drops every constraint attached to body
func (r *Registry) RemoveBody(body *actor.RigidBody) {
	for _, c := range slices.Clone(r.byBody[body]) {
		_ = r.Remove(c.ID())
	}
}

func (r *Registry) ByID(id int) (TypedConstraint, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Constraints lists the registered constraints in insertion order
func (r *Registry) Constraints() []TypedConstraint {
	return r.constraints
}

// ConstraintsOf lists the constraints attached to body
func (r *Registry) ConstraintsOf(body *actor.RigidBody) []TypedConstraint {
	return r.byBody[body]
}

func (r *Registry) Len() int {
	return len(r.constraints)
}

// SetParam changes a typed parameter by index:
//
//	generic 6dof   0-5 limits (value0 lower, value1 upper)
//	               6-8 linear motors, 9-11 angular motors (value0 target
//	               velocity, value1 max force; a positive force enables)
//	6dof spring    12-17 springs (value0 stiffness, 0 disables; value1
//	               damping; the current pose becomes the equilibrium)
//	cone-twist     3 twist, 4 swing 2, 5 swing 1 span (value1; negative
//	               removes the limit)
//	hinge          3 limit (value0 lower, value1 upper)
func (r *Registry) SetParam(id, param int, value0, value1 float64) error {
	c, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("set param %d of %d: %w", param, id, ErrUnknownConstraint)
	}

	var err error
	switch typed := c.(type) {
	case *Generic6DofSpring:
		if param >= 12 && param <= 17 {
			typed.setSpringParam(param-12, value0, value1)
			return nil
		}
		err = typed.Generic6Dof.setParam(param, value0, value1)
	case *Generic6Dof:
		err = typed.setParam(param, value0, value1)
	case *ConeTwist:
		err = typed.SetLimit(param, value1)
	case *Hinge:
		if param != 3 {
			err = ErrUnknownParam
			break
		}
		typed.SetLimit(value0, value1)
	default:
		err = ErrUnknownParam
	}
	if err != nil {
		return fmt.Errorf("set param %d of %s %d: %w", param, c.Type(), id, err)
	}
	return nil
}

// Param reads a generic 6dof value: the relative pivot position along
// axes 0-2, or the Euler angles 3-5.
func (r *Registry) Param(id, param int) (float64, error) {
	c, ok := r.byID[id]
	if !ok {
		return 0, fmt.Errorf("param %d of %d: %w", param, id, ErrUnknownConstraint)
	}

	var g *Generic6Dof
	switch typed := c.(type) {
	case *Generic6DofSpring:
		g = &typed.Generic6Dof
	case *Generic6Dof:
		g = typed
	}
	if g == nil || param < 0 || param > 5 {
		return 0, fmt.Errorf("param %d of %s %d: %w", param, c.Type(), id, ErrUnknownParam)
	}

	g.CalculateTransforms()
	if param < 3 {
		return g.RelativePivotPosition(param), nil
	}
	return g.Angle(param - 3), nil
}

func (g *Generic6Dof) setParam(param int, value0, value1 float64) error {
	switch {
	case param >= 0 && param <= 5:
		return g.SetLimit(param, value0, value1)
	case param >= 6 && param <= 11:
		m := g.Axis(param - 6)
		m.TargetVelocity = value0
		m.MaxMotorForce = value1
		m.EnableMotor = value1 > 0
		return nil
	}
	return ErrUnknownParam
}

func (s *Generic6DofSpring) setSpringParam(axis int, stiffness, damping float64) {
	if stiffness == 0 {
		s.EnableSpring(axis, false)
		return
	}
	s.SetStiffness(axis, stiffness)
	s.SetDamping(axis, damping)
	s.EnableSpring(axis, true)
	s.SetEquilibriumPoint(axis)
}
