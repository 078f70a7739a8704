package frames

import "github.com/signalsfoundry/orbital-propagator/model"

// Rotation is a proper rotation stored as a 3x3 direction cosine matrix.
// The zero value is not a valid rotation; use IdentityRotation.
type Rotation struct {
	m [3][3]float64
}

// IdentityRotation leaves vectors unchanged.
var IdentityRotation = Rotation{m: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}

// NewRotationFromColumns builds the rotation whose columns are the images of
// the source-frame basis vectors, i.e. Apply maps source-frame coordinates to
// target-frame coordinates when c1, c2, c3 are the source axes expressed in
// the target frame. The columns are assumed orthonormal.
func NewRotationFromColumns(c1, c2, c3 model.Vec3) Rotation {
	return Rotation{m: [3][3]float64{
		{c1.X, c2.X, c3.X},
		{c1.Y, c2.Y, c3.Y},
		{c1.Z, c2.Z, c3.Z},
	}}
}

// Apply rotates v.
func (r Rotation) Apply(v model.Vec3) model.Vec3 {
	return model.Vec3{
		X: r.m[0][0]*v.X + r.m[0][1]*v.Y + r.m[0][2]*v.Z,
		Y: r.m[1][0]*v.X + r.m[1][1]*v.Y + r.m[1][2]*v.Z,
		Z: r.m[2][0]*v.X + r.m[2][1]*v.Y + r.m[2][2]*v.Z,
	}
}

// Compose returns the rotation applying r after other.
func (r Rotation) Compose(other Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = r.m[i][0]*other.m[0][j] + r.m[i][1]*other.m[1][j] + r.m[i][2]*other.m[2][j]
		}
	}
	return out
}

// Inverse returns the reverse rotation (the transpose).
func (r Rotation) Inverse() Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = r.m[j][i]
		}
	}
	return out
}
