// Package render presents render-state snapshots on a tcell screen and
// answers picking queries against the snapshot's bounds, with the
// immediate-state overlay patched in before both so drag feedback and
// hit-testing never desynchronize.
package render

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tickbridge/overlay"
	"github.com/lixenwraith/tickbridge/snapshot"
)

// World extent mapped onto the screen, orthographic down the Z axis
const worldExtent = 20.0

var entityStyles = []tcell.Style{
	tcell.StyleDefault.Foreground(tcell.ColorRed),
	tcell.StyleDefault.Foreground(tcell.ColorGreen),
	tcell.StyleDefault.Foreground(tcell.ColorYellow),
	tcell.StyleDefault.Foreground(tcell.ColorBlue),
	tcell.StyleDefault.Foreground(tcell.ColorFuchsia),
	tcell.StyleDefault.Foreground(tcell.ColorAqua),
}

// TerminalRenderer draws entities as glyphs positioned by their transform
// translation. It implements bridge.RenderSink, so on FullIsolation it runs
// on the render goroutine; Pick may be called from the input goroutine
type TerminalRenderer struct {
	screen tcell.Screen
	ov     *overlay.Overlay

	mu    sync.Mutex
	frame snapshot.Snapshot // Last patched snapshot, also the pick source
}

// NewTerminalRenderer wraps an initialized screen. ov may be nil when no
// direct manipulation is wired
func NewTerminalRenderer(screen tcell.Screen, ov *overlay.Overlay) *TerminalRenderer {
	return &TerminalRenderer{screen: screen, ov: ov}
}

// Start satisfies bridge.StartableSink; a screen that cannot report a size
// is a dead presentation surface
func (r *TerminalRenderer) Start() error {
	w, h := r.screen.Size()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("render: screen reports %dx%d", w, h)
	}
	return nil
}

// Present patches the overlay into its private copy of snap, then draws.
// The patched copy is what Pick consults, so the pointer and the pixels
// agree even while the simulation lags the command stream
func (r *TerminalRenderer) Present(snap *snapshot.Snapshot) {
	r.mu.Lock()
	r.frame.CopyFrom(snap)
	if r.ov != nil {
		r.ov.Patch(&r.frame)
	}
	r.drawLocked()
	r.mu.Unlock()
}

func (r *TerminalRenderer) drawLocked() {
	r.screen.Clear()
	w, h := r.screen.Size()

	for i := 0; i < r.frame.Count; i++ {
		base := i * snapshot.TransformStride
		cx, cy, ok := project(r.frame.Transforms[base+12], r.frame.Transforms[base+13], w, h)
		if !ok {
			continue
		}
		style := entityStyles[int(r.frame.Entities[i])%len(entityStyles)]
		r.screen.SetContent(cx, cy, '●', nil, style)
	}

	status := fmt.Sprintf(" tick %d  entities %d ", r.frame.Tick, r.frame.Count)
	for i, ch := range status {
		if i >= w {
			break
		}
		r.screen.SetContent(i, h-1, ch, nil, tcell.StyleDefault.Reverse(true))
	}
	r.screen.Show()
}

// Pick returns the entity whose patched bounds cover the given screen cell,
// preferring the smallest covering sphere so overlapping entities resolve
// to the one actually under the pointer
func (r *TerminalRenderer) Pick(cellX, cellY int) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, h := r.screen.Size()
	wx, wy := unproject(cellX, cellY, w, h)

	bestID := uint32(0)
	bestRadius := float32(0)
	found := false
	for i := 0; i < r.frame.Count; i++ {
		base := i * snapshot.BoundsStride
		dx := wx - r.frame.Bounds[base+0]
		dy := wy - r.frame.Bounds[base+1]
		radius := r.frame.Bounds[base+3]
		if dx*dx+dy*dy > radius*radius {
			continue
		}
		if !found || radius < bestRadius {
			bestID = r.frame.Entities[i]
			bestRadius = radius
			found = true
		}
	}
	return bestID, found
}

// CellToWorld maps a screen cell to world coordinates, for issuing
// SetPosition commands from pointer drags
func (r *TerminalRenderer) CellToWorld(cellX, cellY int) (float32, float32) {
	w, h := r.screen.Size()
	return unproject(cellX, cellY, w, h)
}

func project(wx, wy float32, w, h int) (int, int, bool) {
	cx := int((float64(wx)/worldExtent + 0.5) * float64(w))
	cy := int((float64(-wy)/worldExtent + 0.5) * float64(h))
	if cx < 0 || cy < 0 || cx >= w || cy >= h {
		return 0, 0, false
	}
	return cx, cy, true
}

func unproject(cellX, cellY int, w, h int) (float32, float32) {
	wx := (float64(cellX)/float64(w) - 0.5) * worldExtent
	wy := -(float64(cellY)/float64(h) - 0.5) * worldExtent
	return float32(wx), float32(wy)
}
