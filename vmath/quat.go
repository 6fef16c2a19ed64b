package vmath

import (
	"math"
)

// Quat is a rotation quaternion (x, y, z, w), w is the scalar part
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity is the no-rotation quaternion
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// QNormalize returns q scaled to unit length, identity when degenerate
func QNormalize(q Quat) Quat {
	magSq := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if magSq == 0 {
		return QuatIdentity()
	}
	inv := float32(1.0 / math.Sqrt(float64(magSq)))
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// QFromAxisAngle builds a quaternion rotating angle radians around axis
func QFromAxisAngle(axis Vec3, angle float32) Quat {
	half := float64(angle) * 0.5
	s := float32(math.Sin(half))
	n := axis
	if mag := V3Mag(n); mag != 0 {
		n = V3Scale(n, 1/mag)
	}
	return Quat{n.X * s, n.Y * s, n.Z * s, float32(math.Cos(half))}
}
