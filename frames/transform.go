// Package frames provides immutable kinematic transforms between reference
// frames. A Transform is a value: composing or inverting one never mutates
// the operands, and the identity is a distinguished comparable value rather
// than a polymorphic variant.
package frames

import "github.com/signalsfoundry/orbital-propagator/model"

// Transform maps positions and vectors from a source frame to a destination
// frame: first a translation of the origin, then a rotation of the axes.
type Transform struct {
	Translation model.Vec3
	Rotation    Rotation
}

// Identity is the do-nothing transform. Compose and apply operations
// short-circuit on it by comparison.
var Identity = Transform{Rotation: IdentityRotation}

// NewTransform builds a transform from a translation followed by a rotation.
func NewTransform(translation model.Vec3, rotation Rotation) Transform {
	return Transform{Translation: translation, Rotation: rotation}
}

// Compose returns the transform equivalent to applying t first, then next.
// Composition is associative.
func (t Transform) Compose(next Transform) Transform {
	if t == Identity {
		return next
	}
	if next == Identity {
		return t
	}
	return Transform{
		Translation: t.Translation.Add(t.Rotation.Inverse().Apply(next.Translation)),
		Rotation:    next.Rotation.Compose(t.Rotation),
	}
}

// Inverse returns the transform mapping the destination frame back to the
// source frame.
func (t Transform) Inverse() Transform {
	if t == Identity {
		return Identity
	}
	return Transform{
		Translation: t.Rotation.Apply(t.Translation).Scale(-1),
		Rotation:    t.Rotation.Inverse(),
	}
}

// TransformPosition maps a position through the transform.
func (t Transform) TransformPosition(p model.Vec3) model.Vec3 {
	if t == Identity {
		return p
	}
	return t.Rotation.Apply(p.Add(t.Translation))
}

// TransformVector maps a free vector (direction, velocity increment) through
// the transform; translations do not apply.
func (t Transform) TransformVector(v model.Vec3) model.Vec3 {
	if t == Identity {
		return v
	}
	return t.Rotation.Apply(v)
}
