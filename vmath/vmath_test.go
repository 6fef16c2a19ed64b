package vmath

import (
	"math"
	"testing"
)

func closeEnough(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestMat4TRSIdentity(t *testing.T) {
	m := Mat4TRS(Vec3{}, QuatIdentity(), Vec3{1, 1, 1})
	want := Mat4Identity()
	for i := range m {
		if !closeEnough(m[i], want[i]) {
			t.Fatalf("element %d: got %f, want %f", i, m[i], want[i])
		}
	}
}

func TestMat4TRSTranslationColumn(t *testing.T) {
	m := Mat4TRS(Vec3{1, 2, 3}, QuatIdentity(), Vec3{1, 1, 1})
	tr := m.Translation()
	if tr.X != 1 || tr.Y != 2 || tr.Z != 3 {
		t.Errorf("translation = %+v, want (1,2,3)", tr)
	}
	// Translation must live at indices 12,13,14 in column-major layout
	if m[12] != 1 || m[13] != 2 || m[14] != 3 {
		t.Errorf("translation not in column 3: %v", m)
	}
}

func TestMat4MulComposesTranslation(t *testing.T) {
	parent := Mat4TRS(Vec3{10, 0, 0}, QuatIdentity(), Vec3{1, 1, 1})
	child := Mat4TRS(Vec3{0, 5, 0}, QuatIdentity(), Vec3{1, 1, 1})
	world := Mat4Mul(parent, child)
	tr := world.Translation()
	if !closeEnough(tr.X, 10) || !closeEnough(tr.Y, 5) || !closeEnough(tr.Z, 0) {
		t.Errorf("composed translation = %+v, want (10,5,0)", tr)
	}
}

func TestBasisScale(t *testing.T) {
	m := Mat4TRS(Vec3{}, QFromAxisAngle(Vec3{0, 0, 1}, math.Pi/3), Vec3{2, 3, 4})
	s := m.BasisScale()
	if !closeEnough(s.X, 2) || !closeEnough(s.Y, 3) || !closeEnough(s.Z, 4) {
		t.Errorf("basis scale = %+v, want (2,3,4)", s)
	}
}

func TestQNormalizeDegenerate(t *testing.T) {
	q := QNormalize(Quat{})
	if q != QuatIdentity() {
		t.Errorf("zero quaternion should normalize to identity, got %+v", q)
	}
}
