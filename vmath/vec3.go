package vmath

import (
	"math"
)

// Vec3 is a float32 3D vector matching the layout of render-state buffers
// Avoids float64 conversion churn when filling GPU-style arrays
type Vec3 struct {
	X, Y, Z float32
}

func V3Add(a, b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func V3Sub(a, b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func V3Scale(v Vec3, s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func V3MagSq(v Vec3) float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func V3Mag(v Vec3) float32 {
	return float32(math.Sqrt(float64(V3MagSq(v))))
}

func V3Max(v Vec3) float32 {
	m := v.X
	if v.Y > m {
		m = v.Y
	}
	if v.Z > m {
		m = v.Z
	}
	return m
}

func V3Abs(v Vec3) Vec3 {
	return Vec3{abs32(v.X), abs32(v.Y), abs32(v.Z)}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
