package vmath

import (
	"math"
)

// Mat4 is a column-major 4x4 matrix: element (row r, col c) at index c*4+r
// Matches the render-state transform buffer layout directly
type Mat4 [16]float32

// Mat4Identity returns the identity matrix
func Mat4Identity() Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

// Mat4TRS composes translation, rotation and scale into one matrix
// Rotation is applied to the scaled basis, translation lands in column 3
func Mat4TRS(t Vec3, r Quat, s Vec3) Mat4 {
	q := QNormalize(r)
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z

	var m Mat4
	// Column 0: rotated X basis scaled by s.X
	m[0] = (1 - 2*(yy+zz)) * s.X
	m[1] = 2 * (xy + wz) * s.X
	m[2] = 2 * (xz - wy) * s.X
	// Column 1: rotated Y basis scaled by s.Y
	m[4] = 2 * (xy - wz) * s.Y
	m[5] = (1 - 2*(xx+zz)) * s.Y
	m[6] = 2 * (yz + wx) * s.Y
	// Column 2: rotated Z basis scaled by s.Z
	m[8] = 2 * (xz + wy) * s.Z
	m[9] = 2 * (yz - wx) * s.Z
	m[10] = (1 - 2*(xx+yy)) * s.Z
	// Column 3: translation
	m[12] = t.X
	m[13] = t.Y
	m[14] = t.Z
	m[15] = 1
	return m
}

// Mat4Mul returns a * b (b applied first)
func Mat4Mul(a, b Mat4) Mat4 {
	var m Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+r] * b[c*4+k]
			}
			m[c*4+r] = sum
		}
	}
	return m
}

// Translation extracts the translation column
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// BasisScale returns the length of each basis column, the effective
// per-axis scale after any parent composition
func (m Mat4) BasisScale() Vec3 {
	return Vec3{
		float32(math.Sqrt(float64(m[0]*m[0] + m[1]*m[1] + m[2]*m[2]))),
		float32(math.Sqrt(float64(m[4]*m[4] + m[5]*m[5] + m[6]*m[6]))),
		float32(math.Sqrt(float64(m[8]*m[8] + m[9]*m[9] + m[10]*m[10]))),
	}
}
