package constraint

import (
	"github.com/akmonengine/quill/actor"
)

// Fixed welds two frames together: three pivot rows and three rotation
// rows, always all six.
type Fixed struct {
	Base

	FrameA actor.Transform
	FrameB actor.Transform
}

// NewFixed welds two local frames. A nil bodyB welds A to the world.
func NewFixed(bodyA, bodyB *actor.RigidBody, frameA, frameB actor.Transform) *Fixed {
	return &Fixed{
		Base:   newBase(TypeFixed, bodyA, bodyB),
		FrameA: frameA,
		FrameB: frameB,
	}
}

// NewFixedInPlace welds two bodies in their current relative pose
func NewFixedInPlace(bodyA, bodyB *actor.RigidBody) *Fixed {
	if bodyB == nil {
		bodyB = FixedBody()
	}
	frameB := bodyB.Transform.Inverse().Mul(bodyA.Transform)
	return NewFixed(bodyA, bodyB, actor.NewTransform(), frameB)
}

func (f *Fixed) Info1() Info1 {
	return Info1{NumRows: 6, Nub: 6}
}

func (f *Fixed) Info2(info *Info2) {
	frameA, frameB := worldFrames(&f.Base, f.FrameA, f.FrameB)
	k := info.FPS * info.ERP

	pinRows(info.Rows, &f.Base, frameA.Position, frameB.Position, k)

	// small rotation carrying A's frame onto B's
	q := frameB.Rotation.Mul(frameA.Rotation.Conjugate())
	if q.W < 0 {
		q = q.Scale(-1)
	}
	errorVector := q.V.Mul(2)
	for i := 0; i < 3; i++ {
		r := &info.Rows[3+i]
		r.setAngular(unitAxes[i])
		r.ConstraintError = k * errorVector[i]
	}
}
