package bridge

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/tickbridge/command"
	"github.com/lixenwraith/tickbridge/snapshot"
	"github.com/lixenwraith/tickbridge/status"
)

// simLoop is the consumer side shared by both isolated topologies: it owns
// the read half of the ring and runs the simulation on its own goroutine.
//
// Tick delivery is fire-and-forget: the producer accumulates dt into an
// atomic and pokes a size-1 signal channel, so back-to-back ticks coalesce
// into one step covering the combined dt instead of queueing
type simLoop struct {
	base   *engineBase
	sim    Simulator
	budget int

	pendingNs atomic.Int64
	tickCh    chan struct{}

	// forward, when set, hands each published snapshot to FullIsolation's
	// render goroutine; nil on PartialIsolation
	forward func(*snapshot.Snapshot)

	statTicks  *atomic.Int64
	statTickMs *status.AtomicFloat
}

func (l *simLoop) requestTick(dt time.Duration) {
	l.pendingNs.Add(dt.Nanoseconds())
	select {
	case l.tickCh <- struct{}{}:
	default:
		// A tick is already pending; the dt above rides along with it
	}
}

func (l *simLoop) run() {
	defer l.base.wg.Done()

	// Init handshake: the producer's Ready unblocks once every background
	// context has checked in
	l.base.readyCh <- nil

	cmds := make([]command.Command, 0, 256)
	for {
		select {
		case <-l.base.stopCh:
			return
		case <-l.tickCh:
		}

		dt := time.Duration(l.pendingNs.Swap(0))
		cmds = cmds[:0]
		shutdown := false
		_, err := l.base.ring.Drain(l.budget, func(c command.Command) bool {
			if c.Op == command.OpShutdown {
				shutdown = true
				return false
			}
			cmds = append(cmds, c)
			return true
		})
		if err != nil {
			// Protocol mismatch between producer and consumer builds;
			// halt consumption rather than resynchronize on garbage
			l.base.setErr(err)
			return
		}
		if shutdown {
			return
		}

		start := time.Now()
		snap := l.sim.Tick(dt, cmds)
		l.base.channel.Publish(snap)
		if l.forward != nil {
			l.forward(snap)
		}
		l.statTicks.Add(1)
		l.statTickMs.Store(float64(time.Since(start)) / float64(time.Millisecond))
	}
}

// partialIsolation runs the simulation on a dedicated goroutine; the caller
// reads Latest directly off the render-state channel
type partialIsolation struct {
	*engineBase
	loop *simLoop
}

func newPartialIsolation(base *engineBase, opts Options) *partialIsolation {
	base.readyCh = make(chan error, 1)
	base.acksNeed = 1

	p := &partialIsolation{
		engineBase: base,
		loop: &simLoop{
			base:       base,
			sim:        opts.Sim,
			budget:     opts.DrainBudget,
			tickCh:     make(chan struct{}, 1),
			statTicks:  opts.Status.Ints.Get("sim.ticks"),
			statTickMs: opts.Status.Floats.Get("sim.tick_ms"),
		},
	}
	base.wg.Add(1)
	go p.loop.run()
	return p
}

func (p *partialIsolation) Tick(dt time.Duration) {
	if p.destroyed.Load() {
		return
	}
	p.loop.requestTick(dt)
}

// fullIsolation adds a render goroutine fed by a second point-to-point
// latest-wins channel, bypassing the caller's goroutine entirely so frame
// presentation never contends with caller work
type fullIsolation struct {
	*engineBase
	loop *simLoop

	sink          RenderSink
	fwd           *snapshot.Channel
	frameInterval time.Duration
	statFrames    *atomic.Int64
}

func newFullIsolation(base *engineBase, opts Options) *fullIsolation {
	base.readyCh = make(chan error, 2)
	base.acksNeed = 2

	f := &fullIsolation{
		engineBase:    base,
		sink:          opts.Sink,
		fwd:           snapshot.NewChannel(),
		frameInterval: opts.FrameInterval,
		statFrames:    opts.Status.Ints.Get("render.frames"),
	}
	f.loop = &simLoop{
		base:       base,
		sim:        opts.Sim,
		budget:     opts.DrainBudget,
		tickCh:     make(chan struct{}, 1),
		forward:    f.fwd.Publish,
		statTicks:  opts.Status.Ints.Get("sim.ticks"),
		statTickMs: opts.Status.Floats.Get("sim.tick_ms"),
	}

	base.wg.Add(2)
	go f.loop.run()
	go f.renderLoop()
	return f
}

func (f *fullIsolation) Tick(dt time.Duration) {
	if f.destroyed.Load() {
		return
	}
	f.loop.requestTick(dt)
}

func (f *fullIsolation) renderLoop() {
	defer f.wg.Done()

	if s, ok := f.sink.(StartableSink); ok {
		if err := s.Start(); err != nil {
			// Capability probe passed but the surface refused to start;
			// terminal for this bridge instance, no topology downgrade
			err = fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
			f.setErr(err)
			f.readyCh <- err
			return
		}
	}
	f.readyCh <- nil

	ticker := time.NewTicker(f.frameInterval)
	defer ticker.Stop()

	var frame snapshot.Snapshot
	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			if f.fwd.Latest(&frame) {
				f.sink.Present(&frame)
				f.statFrames.Add(1)
			}
		}
	}
}
