package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// vecNear compares two vectors within an absolute distance
func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func matNear(a, b mgl64.Mat3, tol float64) bool {
	for i := range a {
		if a[i]-b[i] > tol || b[i]-a[i] > tol {
			return false
		}
	}
	return true
}

func TestTransform_ApplyInverseApply(t *testing.T) {
	tr := NewTransformAt(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))

	world := tr.Apply(mgl64.Vec3{1, 0, 0})
	if !vecNear(world, mgl64.Vec3{1, 3, 3}, 1e-9) {
		t.Errorf("Apply() = %v, want {1,3,3}", world)
	}

	local := tr.InverseApply(world)
	if !vecNear(local, mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("InverseApply() = %v, want {1,0,0}", local)
	}
}

func TestTransform_MulInverse(t *testing.T) {
	a := NewTransformAt(mgl64.Vec3{1, 0, 0}, mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0}))
	b := NewTransformAt(mgl64.Vec3{0, 2, 0}, mgl64.QuatRotate(1.1, mgl64.Vec3{1, 0, 0}))

	p := mgl64.Vec3{0.5, -0.25, 2}
	composed := a.Mul(b).Apply(p)
	sequential := a.Apply(b.Apply(p))
	if !vecNear(composed, sequential, 1e-9) {
		t.Errorf("Mul().Apply() = %v, want %v", composed, sequential)
	}

	identity := a.Mul(a.Inverse()).Apply(p)
	if !vecNear(identity, p, 1e-9) {
		t.Errorf("a * a^-1 moved point to %v", identity)
	}
}

func TestIntegrateTransform(t *testing.T) {
	tests := []struct {
		name    string
		linear  mgl64.Vec3
		angular mgl64.Vec3
		dt      float64
	}{
		{"pure translation", mgl64.Vec3{1, 2, 3}, mgl64.Vec3{}, 0.5},
		{"slow spin", mgl64.Vec3{}, mgl64.Vec3{0, 0.0001, 0}, 0.1},
		{"spin and move", mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0.3, 0, 0.4}, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from := NewTransform()
			to := IntegrateTransform(from, tt.linear, tt.angular, tt.dt)

			linear, angular := CalculateVelocity(from, to, tt.dt)
			if !vecNear(linear, tt.linear, 1e-9) {
				t.Errorf("linear = %v, want %v", linear, tt.linear)
			}
			if !vecNear(angular, tt.angular, 1e-6) {
				t.Errorf("angular = %v, want %v", angular, tt.angular)
			}
		})
	}
}

func TestIntegrateTransform_ClampsRotation(t *testing.T) {
	from := NewTransform()
	to := IntegrateTransform(from, mgl64.Vec3{}, mgl64.Vec3{0, 100, 0}, 1)

	_, angular := CalculateVelocity(from, to, 1)
	if angular.Len() > angularMotionThreshold+1e-9 {
		t.Errorf("rotation per step = %v, want at most %v", angular.Len(), angularMotionThreshold)
	}
	if !vecNear(angular, mgl64.Vec3{0, angularMotionThreshold, 0}, 1e-9) {
		t.Errorf("clamped rotation = %v, want the full threshold about y", angular)
	}
}

func TestIntegrateTransform_ClampKeepsAxis(t *testing.T) {
	omega := mgl64.Vec3{30, 0, 40}
	dt := 1.0 / 60.0

	to := IntegrateTransform(NewTransform(), mgl64.Vec3{}, omega, dt)
	_, angular := CalculateVelocity(NewTransform(), to, dt)

	want := omega.Normalize().Mul(angularMotionThreshold / dt)
	if !vecNear(angular, want, 1e-6) {
		t.Errorf("angular velocity = %v, want %v", angular, want)
	}
}
