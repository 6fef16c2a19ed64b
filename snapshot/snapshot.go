// Package snapshot defines the per-tick render state and the one-slot
// channel that publishes it from the simulation toward readers.
package snapshot

// TransformStride is floats per entity transform (column-major 4x4)
const TransformStride = 16

// BoundsStride is floats per entity bounds entry (center xyz + radius)
const BoundsStride = 4

// Snapshot is the complete simulation output of one tick. Readers always
// see a whole snapshot; partially written state never escapes the channel
type Snapshot struct {
	Tick       uint64
	Count      int
	Entities   []uint32  // Count ids
	Transforms []float32 // Count * TransformStride
	Bounds     []float32 // Count * BoundsStride

	ListenerX float32
	ListenerY float32
}

// Reset prepares s to hold n entities, reusing backing arrays when possible
func (s *Snapshot) Reset(n int) {
	s.Count = n
	s.Entities = grow(s.Entities, n)
	s.Transforms = growF(s.Transforms, n*TransformStride)
	s.Bounds = growF(s.Bounds, n*BoundsStride)
}

// CopyFrom replaces s's contents with src, reusing s's backing arrays
func (s *Snapshot) CopyFrom(src *Snapshot) {
	s.Tick = src.Tick
	s.ListenerX = src.ListenerX
	s.ListenerY = src.ListenerY
	s.Reset(src.Count)
	copy(s.Entities, src.Entities[:src.Count])
	copy(s.Transforms, src.Transforms[:src.Count*TransformStride])
	copy(s.Bounds, src.Bounds[:src.Count*BoundsStride])
}

func grow(buf []uint32, n int) []uint32 {
	if cap(buf) < n {
		return make([]uint32, n)
	}
	return buf[:n]
}

func growF(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
