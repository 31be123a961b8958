package config

import (
	"fmt"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/constraint"
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene describes the bodies and joints of a world
type Scene struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	// Track names the body whose height the CLI plots
	Track       string             `yaml:"track,omitempty"`
	Bodies      []BodyConfig       `yaml:"bodies,omitempty"`
	Constraints []ConstraintConfig `yaml:"constraints,omitempty"`
}

type BodyConfig struct {
	Name string `yaml:"name"`
	// Shape is box, sphere or plane
	Shape string `yaml:"shape"`
	// Type is dynamic (default), static or kinematic. Planes are always static.
	Type     string     `yaml:"type,omitempty"`
	Position [3]float64 `yaml:"position"`
	// Rotation holds XYZ Euler angles in degrees
	Rotation [3]float64 `yaml:"rotation,omitempty"`

	HalfExtents [3]float64 `yaml:"half_extents,omitempty"`
	Radius      float64    `yaml:"radius,omitempty"`
	Normal      [3]float64 `yaml:"normal,omitempty"`
	Distance    float64    `yaml:"distance,omitempty"`

	Density     float64  `yaml:"density,omitempty"`
	Friction    *float64 `yaml:"friction,omitempty"`
	Restitution float64  `yaml:"restitution,omitempty"`

	Velocity        [3]float64 `yaml:"velocity,omitempty"`
	AngularVelocity [3]float64 `yaml:"angular_velocity,omitempty"`

	CcdMotionThreshold float64 `yaml:"ccd_motion_threshold,omitempty"`
	Trigger            bool    `yaml:"trigger,omitempty"`
	NoSleep            bool    `yaml:"no_sleep,omitempty"`
}

type ConstraintConfig struct {
	// Type is point2point, hinge, slider, cone_twist, fixed, generic6dof or generic6dof_spring
	Type string `yaml:"type"`
	// BodyB may be empty to attach BodyA to the world
	BodyA string `yaml:"body_a"`
	BodyB string `yaml:"body_b,omitempty"`

	// Pivots are local to their body, or in world space for a missing BodyB
	PivotA [3]float64 `yaml:"pivot_a"`
	PivotB [3]float64 `yaml:"pivot_b"`
	// Axes default to x, the hinge axis or the slide and twist direction
	AxisA [3]float64 `yaml:"axis_a,omitempty"`
	AxisB [3]float64 `yaml:"axis_b,omitempty"`

	// Limit is lower/upper for sliders and hinges, swing1/swing2/twist for
	// cone twists. Angles are in degrees.
	Limit            []float64     `yaml:"limit,omitempty"`
	DisableCollision bool          `yaml:"disable_collision,omitempty"`
	Params           []ParamConfig `yaml:"params,omitempty"`
}

// ParamConfig sets a constraint parameter by index once the scene is built
type ParamConfig struct {
	Index  int        `yaml:"index"`
	Values [2]float64 `yaml:"values"`
}

func (s Scene) validate() error {
	names := make(map[string]bool, len(s.Bodies))
	for i, b := range s.Bodies {
		if b.Name == "" {
			return fmt.Errorf("body %d has no name: %w", i, ErrInvalidConfig)
		}
		if names[b.Name] {
			return fmt.Errorf("%s: %w", b.Name, ErrDuplicateBody)
		}
		names[b.Name] = true

		if _, err := b.bodyType(); err != nil {
			return err
		}
		if err := b.validateShape(); err != nil {
			return err
		}
	}

	for i, c := range s.Constraints {
		if !names[c.BodyA] {
			return fmt.Errorf("constraint %d body_a %q: %w", i, c.BodyA, ErrUnknownBody)
		}
		if c.BodyB != "" && !names[c.BodyB] {
			return fmt.Errorf("constraint %d body_b %q: %w", i, c.BodyB, ErrUnknownBody)
		}
		switch c.Type {
		case "point2point", "hinge", "slider", "cone_twist", "fixed", "generic6dof", "generic6dof_spring":
		default:
			return fmt.Errorf("constraint %d %q: %w", i, c.Type, ErrUnknownJoint)
		}
	}

	if s.Track != "" && !names[s.Track] {
		return fmt.Errorf("track %q: %w", s.Track, ErrUnknownBody)
	}
	return nil
}

func (b BodyConfig) validateShape() error {
	switch b.Shape {
	case "box":
		if b.HalfExtents[0] <= 0 || b.HalfExtents[1] <= 0 || b.HalfExtents[2] <= 0 {
			return fmt.Errorf("%s half extents %v: %w", b.Name, b.HalfExtents, ErrInvalidConfig)
		}
	case "sphere":
		if b.Radius <= 0 {
			return fmt.Errorf("%s radius %v: %w", b.Name, b.Radius, ErrInvalidConfig)
		}
	case "plane":
		if mgl64.Vec3(b.Normal).Len() == 0 {
			return fmt.Errorf("%s plane normal: %w", b.Name, ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%s %q: %w", b.Name, b.Shape, ErrUnknownShape)
	}
	return nil
}

func (b BodyConfig) bodyType() (actor.BodyType, error) {
	if b.Shape == "plane" {
		return actor.BodyTypeStatic, nil
	}
	switch b.Type {
	case "", "dynamic":
		return actor.BodyTypeDynamic, nil
	case "static":
		return actor.BodyTypeStatic, nil
	case "kinematic":
		return actor.BodyTypeKinematic, nil
	}
	return 0, fmt.Errorf("%s %q: %w", b.Name, b.Type, ErrUnknownBodyType)
}

func (b BodyConfig) shape() actor.Shape {
	switch b.Shape {
	case "box":
		return &actor.Box{HalfExtents: mgl64.Vec3(b.HalfExtents)}
	case "sphere":
		return &actor.Sphere{Radius: b.Radius}
	}
	return &actor.Plane{Normal: mgl64.Vec3(b.Normal).Normalize(), Distance: b.Distance}
}

// Body creates the rigid body, not yet added to a world
func (b BodyConfig) Body() (*actor.RigidBody, error) {
	if err := b.validateShape(); err != nil {
		return nil, err
	}
	bodyType, err := b.bodyType()
	if err != nil {
		return nil, err
	}

	density := b.Density
	if density <= 0 {
		density = 1
	}
	rotation := mgl64.AnglesToQuat(
		mgl64.DegToRad(b.Rotation[0]),
		mgl64.DegToRad(b.Rotation[1]),
		mgl64.DegToRad(b.Rotation[2]),
		mgl64.XYZ,
	)

	body := actor.NewRigidBody(actor.NewTransformAt(mgl64.Vec3(b.Position), rotation), b.shape(), bodyType, density)
	if b.Friction != nil {
		body.Material.Friction = *b.Friction
	}
	body.Material.Restitution = b.Restitution
	body.Velocity = mgl64.Vec3(b.Velocity)
	body.AngularVelocity = mgl64.Vec3(b.AngularVelocity)

	if b.CcdMotionThreshold > 0 {
		body.CcdMotionThreshold = b.CcdMotionThreshold
		body.CcdSweptSphereRadius = b.Radius
		if b.Shape == "box" {
			body.CcdSweptSphereRadius = min(b.HalfExtents[0], b.HalfExtents[1], b.HalfExtents[2])
		}
	}
	if b.Trigger {
		body.Flags |= actor.FlagNoContactResponse
	}
	if b.NoSleep {
		body.ForceActivationState(actor.DisableDeactivation)
	}
	return body, nil
}

// Build creates a world from the settings and fills it with the scene. The
// bodies are returned by name.
func (c *Config) Build(logger *log.Logger) (*quill.World, map[string]*actor.RigidBody, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	world := quill.NewWorld(c.Settings(), logger)
	bodies, err := c.Scene.Populate(world)
	if err != nil {
		return nil, nil, err
	}
	return world, bodies, nil
}

// Populate adds the scene bodies and constraints to world
func (s Scene) Populate(world *quill.World) (map[string]*actor.RigidBody, error) {
	bodies := make(map[string]*actor.RigidBody, len(s.Bodies))
	for _, b := range s.Bodies {
		if _, ok := bodies[b.Name]; ok {
			return nil, fmt.Errorf("%s: %w", b.Name, ErrDuplicateBody)
		}
		body, err := b.Body()
		if err != nil {
			return nil, err
		}
		world.AddBody(body)
		bodies[b.Name] = body
	}

	for i, cc := range s.Constraints {
		bodyA, ok := bodies[cc.BodyA]
		if !ok {
			return nil, fmt.Errorf("constraint %d body_a %q: %w", i, cc.BodyA, ErrUnknownBody)
		}
		var bodyB *actor.RigidBody
		if cc.BodyB != "" {
			if bodyB, ok = bodies[cc.BodyB]; !ok {
				return nil, fmt.Errorf("constraint %d body_b %q: %w", i, cc.BodyB, ErrUnknownBody)
			}
		}

		joint, err := cc.constraint(bodyA, bodyB)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		id := world.AddConstraint(joint, cc.DisableCollision)
		for _, p := range cc.Params {
			if err := world.SetConstraintParam(id, p.Index, p.Values[0], p.Values[1]); err != nil {
				return nil, err
			}
		}
	}

	return bodies, nil
}

func (cc ConstraintConfig) constraint(bodyA, bodyB *actor.RigidBody) (constraint.TypedConstraint, error) {
	pivotA, pivotB := mgl64.Vec3(cc.PivotA), mgl64.Vec3(cc.PivotB)
	axisA, axisB := axisOrX(cc.AxisA), axisOrX(cc.AxisB)
	frameA := actor.NewTransformAt(pivotA, mgl64.QuatBetweenVectors(mgl64.Vec3{1, 0, 0}, axisA))
	frameB := actor.NewTransformAt(pivotB, mgl64.QuatBetweenVectors(mgl64.Vec3{1, 0, 0}, axisB))

	switch cc.Type {
	case "point2point":
		return constraint.NewPoint2Point(bodyA, bodyB, pivotA, pivotB), nil
	case "hinge":
		hinge := constraint.NewHinge(bodyA, bodyB, pivotA, pivotB, axisA, axisB)
		if len(cc.Limit) == 2 {
			hinge.SetLimit(mgl64.DegToRad(cc.Limit[0]), mgl64.DegToRad(cc.Limit[1]))
		}
		return hinge, nil
	case "slider":
		slider := constraint.NewSlider(bodyA, bodyB, frameA, frameB, true)
		if len(cc.Limit) == 2 {
			slider.LowerLinLimit, slider.UpperLinLimit = cc.Limit[0], cc.Limit[1]
		}
		return slider, nil
	case "cone_twist":
		coneTwist := constraint.NewConeTwist(bodyA, bodyB, frameA, frameB)
		if len(cc.Limit) == 3 {
			coneTwist.SetLimits(mgl64.DegToRad(cc.Limit[0]), mgl64.DegToRad(cc.Limit[1]), mgl64.DegToRad(cc.Limit[2]))
		}
		return coneTwist, nil
	case "fixed":
		return constraint.NewFixed(bodyA, bodyB, frameA, frameB), nil
	case "generic6dof":
		return constraint.NewGeneric6Dof(bodyA, bodyB, frameA, frameB), nil
	case "generic6dof_spring":
		return constraint.NewGeneric6DofSpring(bodyA, bodyB, frameA, frameB), nil
	}
	return nil, fmt.Errorf("%q: %w", cc.Type, ErrUnknownJoint)
}

func axisOrX(axis [3]float64) mgl64.Vec3 {
	v := mgl64.Vec3(axis)
	if v.Len() == 0 {
		return mgl64.Vec3{1, 0, 0}
	}
	return v.Normalize()
}
