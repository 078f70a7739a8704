package frames

import (
	"math"
	"testing"

	"github.com/signalsfoundry/orbital-propagator/model"
)

func rotZ(angle float64) Rotation {
	c, s := math.Cos(angle), math.Sin(angle)
	return NewRotationFromColumns(
		model.Vec3{X: c, Y: s},
		model.Vec3{X: -s, Y: c},
		model.Vec3{Z: 1},
	)
}

func vecClose(t *testing.T, got, want model.Vec3, tol float64) {
	t.Helper()
	if got.DistanceTo(want) > tol {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestIdentityIsAValue(t *testing.T) {
	if Identity != (Transform{Rotation: IdentityRotation}) {
		t.Fatal("identity should be the comparable zero-translation transform")
	}

	other := NewTransform(model.Vec3{X: 5}, rotZ(0.3))
	if got := Identity.Compose(other); got != other {
		t.Fatalf("identity compose should return the operand, got %+v", got)
	}
	if got := other.Compose(Identity); got != other {
		t.Fatalf("compose with identity should return the operand, got %+v", got)
	}
	if Identity.Inverse() != Identity {
		t.Fatal("identity inverse should be identity")
	}

	p := model.Vec3{X: 1, Y: 2, Z: 3}
	if Identity.TransformPosition(p) != p || Identity.TransformVector(p) != p {
		t.Fatal("identity should pass positions and vectors through unchanged")
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := NewTransform(model.Vec3{X: 10, Y: -4, Z: 2}, rotZ(1.1))
	p := model.Vec3{X: 3, Y: 7, Z: -1}

	back := tr.Inverse().TransformPosition(tr.TransformPosition(p))
	vecClose(t, back, p, 1e-12)

	v := model.Vec3{X: -2, Y: 5, Z: 9}
	backV := tr.Inverse().TransformVector(tr.TransformVector(v))
	vecClose(t, backV, v, 1e-12)
}

func TestComposeMatchesSequentialApplication(t *testing.T) {
	a := NewTransform(model.Vec3{X: 1, Y: 2}, rotZ(0.4))
	b := NewTransform(model.Vec3{Z: -3}, rotZ(-0.9))
	p := model.Vec3{X: 5, Y: -6, Z: 7}

	sequential := b.TransformPosition(a.TransformPosition(p))
	composed := a.Compose(b).TransformPosition(p)
	vecClose(t, composed, sequential, 1e-12)

	// Associativity.
	c := NewTransform(model.Vec3{Y: 8}, rotZ(2.2))
	left := a.Compose(b).Compose(c).TransformPosition(p)
	right := a.Compose(b.Compose(c)).TransformPosition(p)
	vecClose(t, left, right, 1e-9)
}

func TestRotationInverseIsTranspose(t *testing.T) {
	r := rotZ(0.7)
	v := model.Vec3{X: 2, Y: -3, Z: 4}
	vecClose(t, r.Inverse().Apply(r.Apply(v)), v, 1e-12)

	composed := r.Compose(r.Inverse())
	vecClose(t, composed.Apply(v), v, 1e-12)
}
