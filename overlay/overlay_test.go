package overlay

import (
	"testing"

	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/vmath"
)

// Two-entity snapshot with identity transforms and unit bounds
func twoEntitySnapshot() *snapshot.Snapshot {
	s := &snapshot.Snapshot{}
	s.Reset(2)
	s.Entities[0], s.Entities[1] = 10, 20
	for i := 0; i < 2; i++ {
		ident := vmath.Mat4Identity()
		copy(s.Transforms[i*snapshot.TransformStride:], ident[:])
		s.Bounds[i*snapshot.BoundsStride+3] = 1 // radius
	}
	return s
}

func TestPatchTransformsTranslationOnly(t *testing.T) {
	s := twoEntitySnapshot()
	before := append([]float32(nil), s.Transforms...)

	o := New()
	o.Set(20, 7, 8, 9)
	o.PatchTransforms(s.Transforms, s.Entities, s.Count)

	// Entity 20 sits at index 1; translation becomes (7,8,9)
	base := 1 * snapshot.TransformStride
	if s.Transforms[base+12] != 7 || s.Transforms[base+13] != 8 || s.Transforms[base+14] != 9 {
		t.Errorf("translation = (%f,%f,%f), want (7,8,9)",
			s.Transforms[base+12], s.Transforms[base+13], s.Transforms[base+14])
	}

	// Entity 10 at index 0 and all non-translation elements of entity 20
	// must be bit-identical to before
	for i, v := range s.Transforms {
		if i == base+12 || i == base+13 || i == base+14 {
			continue
		}
		if v != before[i] {
			t.Errorf("element %d changed: %f -> %f", i, before[i], v)
		}
	}
}

func TestPatchBoundsCenterOnly(t *testing.T) {
	s := twoEntitySnapshot()
	o := New()
	o.Set(10, -1, -2, -3)
	o.PatchBounds(s.Bounds, s.Entities, s.Count)

	if s.Bounds[0] != -1 || s.Bounds[1] != -2 || s.Bounds[2] != -3 {
		t.Errorf("center = (%f,%f,%f), want (-1,-2,-3)", s.Bounds[0], s.Bounds[1], s.Bounds[2])
	}
	if s.Bounds[3] != 1 {
		t.Errorf("radius changed: %f", s.Bounds[3])
	}
	// Entity 20's entry untouched
	for i := 4; i < 8; i++ {
		want := float32(0)
		if i == 7 {
			want = 1
		}
		if s.Bounds[i] != want {
			t.Errorf("bounds[%d] = %f, want %f", i, s.Bounds[i], want)
		}
	}
}

func TestPatchAbsentEntityIsNoOp(t *testing.T) {
	s := twoEntitySnapshot()
	beforeT := append([]float32(nil), s.Transforms...)
	beforeB := append([]float32(nil), s.Bounds...)

	o := New()
	o.Set(999, 5, 5, 5) // Not yet spawned from the simulation's perspective
	o.Patch(s)

	for i := range s.Transforms {
		if s.Transforms[i] != beforeT[i] {
			t.Fatalf("transform element %d changed", i)
		}
	}
	for i := range s.Bounds {
		if s.Bounds[i] != beforeB[i] {
			t.Fatalf("bounds element %d changed", i)
		}
	}
}

func TestClearAndClearAll(t *testing.T) {
	o := New()
	o.Set(1, 1, 1, 1)
	o.Set(2, 2, 2, 2)
	o.Clear(1)
	if o.Len() != 1 {
		t.Errorf("len after Clear = %d, want 1", o.Len())
	}

	s := twoEntitySnapshot()
	s.Entities[0] = 1 // Cleared entity must not be patched
	o.PatchTransforms(s.Transforms, s.Entities, s.Count)
	if s.Transforms[12] != 0 {
		t.Error("cleared override still applied")
	}

	o.ClearAll()
	if o.Len() != 0 {
		t.Errorf("len after ClearAll = %d, want 0", o.Len())
	}
}

func TestVisualAndPickableStayInSync(t *testing.T) {
	s := twoEntitySnapshot()
	o := New()
	o.Set(10, 4, 5, 6)
	o.Patch(s)

	if s.Transforms[12] != s.Bounds[0] || s.Transforms[13] != s.Bounds[1] ||
		s.Transforms[14] != s.Bounds[2] {
		t.Error("patched transform translation and bounds center diverge")
	}
}

// When the renderer is the bridge's sink, Patch runs on the render goroutine
// while the pointer handler mutates the overlay; drive both sides hard under
// the race detector
func TestConcurrentMutateAndPatch(t *testing.T) {
	const rounds = 10000

	o := New()
	s := twoEntitySnapshot()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			o.Set(20, float32(i), float32(i), float32(i))
			if i%3 == 0 {
				o.Clear(20)
			}
			if i%1000 == 0 {
				o.ClearAll()
			}
		}
	}()

	for i := 0; i < rounds; i++ {
		o.Patch(s)
		_ = o.Len()
	}
	<-done

	// Entity 10 was never overridden; its translation must still be the
	// identity's regardless of interleaving
	if s.Transforms[12] != 0 || s.Transforms[13] != 0 || s.Transforms[14] != 0 {
		t.Errorf("untouched entity translation = (%f,%f,%f), want (0,0,0)",
			s.Transforms[12], s.Transforms[13], s.Transforms[14])
	}
}
