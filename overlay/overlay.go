// Package overlay bridges the latency gap between a command being written
// and the simulation echoing the result back through the render state.
//
// Direct-manipulation interactions (drag to move) expect zero-latency visual
// and hit-test feedback, but the simulation may lag the command stream by a
// tick or more. The overlay holds pending position overrides and patches
// them into the render-state buffers just before the renderer or the picking
// routine reads them, so both stay in lockstep with the pointer.
package overlay

import (
	"sync"

	"github.com/lixenwraith/tickbridge/snapshot"
)

// Overlay maps entity id to a pending position override. Mutations come
// from the command-issuing goroutine while Patch may run on a render
// goroutine, so the map is guarded; patching holds the read lock only
type Overlay struct {
	mu      sync.RWMutex
	pending map[uint32][3]float32
}

func New() *Overlay {
	return &Overlay{pending: make(map[uint32][3]float32)}
}

// Set stores an override for entity. The caller must Clear it when the
// entity is destroyed; overrides never expire on their own
func (o *Overlay) Set(entity uint32, x, y, z float32) {
	o.mu.Lock()
	o.pending[entity] = [3]float32{x, y, z}
	o.mu.Unlock()
}

// Clear removes entity's override if present
func (o *Overlay) Clear(entity uint32) {
	o.mu.Lock()
	delete(o.pending, entity)
	o.mu.Unlock()
}

// ClearAll drops every override, used at teardown
func (o *Overlay) ClearAll() {
	o.mu.Lock()
	clear(o.pending)
	o.mu.Unlock()
}

// Len returns the number of pending overrides
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.pending)
}

// PatchTransforms overwrites the translation elements (indices 12,13,14 of
// each column-major matrix) for every entity present in both ids[:count]
// and the overlay. Rotation and scale bytes are left untouched; entities
// the simulation has not spawned yet are silently skipped
func (o *Overlay) PatchTransforms(transforms []float32, ids []uint32, count int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.pending) == 0 {
		return
	}
	for i := 0; i < count; i++ {
		p, ok := o.pending[ids[i]]
		if !ok {
			continue
		}
		base := i * snapshot.TransformStride
		transforms[base+12] = p[0]
		transforms[base+13] = p[1]
		transforms[base+14] = p[2]
	}
}

// PatchBounds overwrites the center components (offsets 0,1,2) of each
// matching bounds entry, leaving the radius untouched. Applied identically
// to PatchTransforms so picking never desynchronizes from the visuals
func (o *Overlay) PatchBounds(bounds []float32, ids []uint32, count int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.pending) == 0 {
		return
	}
	for i := 0; i < count; i++ {
		p, ok := o.pending[ids[i]]
		if !ok {
			continue
		}
		base := i * snapshot.BoundsStride
		bounds[base+0] = p[0]
		bounds[base+1] = p[1]
		bounds[base+2] = p[2]
	}
}

// Patch applies both transform and bounds patching to a snapshot in place
func (o *Overlay) Patch(s *snapshot.Snapshot) {
	o.PatchTransforms(s.Transforms, s.Entities, s.Count)
	o.PatchBounds(s.Bounds, s.Entities, s.Count)
}
