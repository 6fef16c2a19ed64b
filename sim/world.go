// Package sim is the reference simulation behind the topology bridge: it
// applies decoded commands in stream order, advances entity state by fixed
// ticks, and produces the render-state snapshot the channel publishes.
//
// The transport layers never interpret command semantics; this package is
// where "set position" acquires a meaning.
package sim

import (
	"time"

	"github.com/lixenwraith/tickbridge/command"
	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/vmath"
)

// World holds dense per-entity tables indexed through an id map, so the
// snapshot arrays can be filled with straight copies
type World struct {
	maxEntities int

	ids   []uint32
	index map[uint32]int

	pos    []vmath.Vec3
	vel    []vmath.Vec3
	rot    []vmath.Quat
	scale  []vmath.Vec3
	parent []uint32
	mesh   []uint32
	tex    []uint32
	prim   []uint32
	prim0  [][4]float32
	prim1  [][4]float32

	tick     uint64
	listener vmath.Vec3

	// Per-tick scratch, reused across ticks
	world    []vmath.Mat4
	resolved []uint8
	snap     snapshot.Snapshot
}

// NewWorld creates an empty world bounded to maxEntities live entities
func NewWorld(maxEntities int) *World {
	return &World{
		maxEntities: maxEntities,
		index:       make(map[uint32]int),
	}
}

// EntityCount returns the number of live entities
func (w *World) EntityCount() int { return len(w.ids) }

// Tick applies cmds in exactly the order given, integrates one step of dt,
// and returns the snapshot for this tick. The returned snapshot is reused
// by the next call; callers that keep it must copy it out
func (w *World) Tick(dt time.Duration, cmds []command.Command) *snapshot.Snapshot {
	for _, c := range cmds {
		w.apply(c)
	}

	step := float32(dt.Seconds())
	for i := range w.pos {
		w.pos[i] = vmath.V3Add(w.pos[i], vmath.V3Scale(w.vel[i], step))
	}

	w.tick++
	w.compose()
	w.fillSnapshot()
	return &w.snap
}

// apply dispatches one command. Commands addressing entities the world does
// not know are dropped: the producer may legitimately run ahead of (or
// behind) the entity lifecycle it is mutating
func (w *World) apply(c command.Command) {
	switch c.Op {
	case command.OpSpawnEntity:
		w.spawn(c.Entity)
		return
	case command.OpDespawnEntity:
		w.despawn(c.Entity)
		return
	case command.OpSetListenerPosition:
		w.listener = vmath.Vec3{X: c.Vec[0], Y: c.Vec[1], Z: c.Vec[2]}
		return
	}

	i, ok := w.index[c.Entity]
	if !ok {
		return
	}
	switch c.Op {
	case command.OpSetPosition:
		w.pos[i] = vmath.Vec3{X: c.Vec[0], Y: c.Vec[1], Z: c.Vec[2]}
	case command.OpSetVelocity:
		w.vel[i] = vmath.Vec3{X: c.Vec[0], Y: c.Vec[1], Z: c.Vec[2]}
	case command.OpSetRotation:
		w.rot[i] = vmath.QNormalize(vmath.Quat{X: c.Quad[0], Y: c.Quad[1], Z: c.Quad[2], W: c.Quad[3]})
	case command.OpSetScale:
		w.scale[i] = vmath.Vec3{X: c.Vec[0], Y: c.Vec[1], Z: c.Vec[2]}
	case command.OpSetTextureLayer:
		w.tex[i] = c.Ref
	case command.OpSetMeshHandle:
		w.mesh[i] = c.Ref
	case command.OpSetRenderPrimitive:
		w.prim[i] = c.Ref
	case command.OpSetParent:
		w.parent[i] = c.Ref
	case command.OpSetPrimParams0:
		w.prim0[i] = c.Quad
	case command.OpSetPrimParams1:
		w.prim1[i] = c.Quad
	}
}

func (w *World) spawn(id uint32) {
	if _, exists := w.index[id]; exists || len(w.ids) >= w.maxEntities {
		return
	}
	w.index[id] = len(w.ids)
	w.ids = append(w.ids, id)
	w.pos = append(w.pos, vmath.Vec3{})
	w.vel = append(w.vel, vmath.Vec3{})
	w.rot = append(w.rot, vmath.QuatIdentity())
	w.scale = append(w.scale, vmath.Vec3{X: 1, Y: 1, Z: 1})
	w.parent = append(w.parent, command.UnparentSentinel)
	w.mesh = append(w.mesh, 0)
	w.tex = append(w.tex, 0)
	w.prim = append(w.prim, 0)
	w.prim0 = append(w.prim0, [4]float32{})
	w.prim1 = append(w.prim1, [4]float32{})
}

// despawn swap-removes to keep the tables dense. Children of the removed
// entity keep their parent id and resolve as roots until reparented
func (w *World) despawn(id uint32) {
	i, ok := w.index[id]
	if !ok {
		return
	}
	last := len(w.ids) - 1
	if i != last {
		w.ids[i] = w.ids[last]
		w.pos[i] = w.pos[last]
		w.vel[i] = w.vel[last]
		w.rot[i] = w.rot[last]
		w.scale[i] = w.scale[last]
		w.parent[i] = w.parent[last]
		w.mesh[i] = w.mesh[last]
		w.tex[i] = w.tex[last]
		w.prim[i] = w.prim[last]
		w.prim0[i] = w.prim0[last]
		w.prim1[i] = w.prim1[last]
		w.index[w.ids[i]] = i
	}
	w.ids = w.ids[:last]
	w.pos = w.pos[:last]
	w.vel = w.vel[:last]
	w.rot = w.rot[:last]
	w.scale = w.scale[:last]
	w.parent = w.parent[:last]
	w.mesh = w.mesh[:last]
	w.tex = w.tex[:last]
	w.prim = w.prim[:last]
	w.prim0 = w.prim0[:last]
	w.prim1 = w.prim1[:last]
	delete(w.index, id)
}

const (
	unresolvedMark = 0
	resolvingMark  = 1
	resolvedMark   = 2
)

// compose resolves world matrices through parent chains, memoized per tick
func (w *World) compose() {
	n := len(w.ids)
	if cap(w.world) < n {
		w.world = make([]vmath.Mat4, n)
		w.resolved = make([]uint8, n)
	} else {
		w.world = w.world[:n]
		w.resolved = w.resolved[:n]
	}
	for i := range w.resolved {
		w.resolved[i] = unresolvedMark
	}
	for i := 0; i < n; i++ {
		w.resolve(i)
	}
}

func (w *World) resolve(i int) vmath.Mat4 {
	if w.resolved[i] == resolvedMark {
		return w.world[i]
	}
	local := vmath.Mat4TRS(w.pos[i], w.rot[i], w.scale[i])

	// Cycles and dangling parents degrade to root attachment
	if w.resolved[i] == resolvingMark {
		return local
	}
	w.resolved[i] = resolvingMark

	m := local
	if pid := w.parent[i]; pid != command.UnparentSentinel {
		if pi, ok := w.index[pid]; ok {
			m = vmath.Mat4Mul(w.resolve(pi), local)
		}
	}
	w.world[i] = m
	w.resolved[i] = resolvedMark
	return m
}

func (w *World) fillSnapshot() {
	n := len(w.ids)
	w.snap.Tick = w.tick
	w.snap.ListenerX = w.listener.X
	w.snap.ListenerY = w.listener.Y
	w.snap.Reset(n)
	copy(w.snap.Entities, w.ids)

	for i := 0; i < n; i++ {
		copy(w.snap.Transforms[i*snapshot.TransformStride:], w.world[i][:])

		// Unit sphere scaled by the largest world-space axis
		tr := w.world[i].Translation()
		base := i * snapshot.BoundsStride
		w.snap.Bounds[base+0] = tr.X
		w.snap.Bounds[base+1] = tr.Y
		w.snap.Bounds[base+2] = tr.Z
		w.snap.Bounds[base+3] = vmath.V3Max(w.world[i].BasisScale())
	}
}
