package mathutil

import "github.com/chewxy/math32"

// Quat represents a rotation quaternion (x, y, z, w).
type Quat [4]float32

// QuatIdentity is the no-rotation quaternion.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
func EulerToQuat(rx, ry, rz float32) Quat {
	cx, sx := math32.Cos(rx*0.5), math32.Sin(rx*0.5)
	cy, sy := math32.Cos(ry*0.5), math32.Sin(ry*0.5)
	cz, sz := math32.Cos(rz*0.5), math32.Sin(rz*0.5)

	return Quat{
		sx*cy*cz - cx*sy*sz, // x
		cx*sy*cz + sx*cy*sz, // y
		cx*cy*sz - sx*sy*cz, // z
		cx*cy*cz + sx*sy*sz, // w
	}
}

// Rotate applies the rotation to v: q * v * q⁻¹, expanded to avoid
// building a matrix. Assumes q is unit length.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q[0], q[1], q[2]}
	w := q[3]
	uv := u.Cross(v)
	uuv := u.Cross(uv)
	return v.Add(uv.Scale(2 * w)).Add(uuv.Scale(2))
}

// Normalize returns a unit-length copy of q. The zero quaternion
// normalizes to identity.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l < 1e-9 {
		return QuatIdentity()
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float32) float32 {
	return deg * math32.Pi / 180
}
